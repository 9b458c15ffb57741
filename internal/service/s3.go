package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"time"
	"wave/internal/config"
	"wave/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Service stores avatar images in S3-compatible object storage.
type S3Service struct {
	config   *config.Config
	uploader *manager.Uploader
	s3Client *s3.Client
}

func NewS3Service(cfg *config.Config) (*S3Service, error) {
	s3Opts := []func(*s3.Options){}

	if cfg.S3Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	}

	var awsCfg aws.Config
	if cfg.S3AccessKeyID != "" {
		awsCfg = aws.Config{
			Region: cfg.S3Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKeyID,
				cfg.S3SecretAccessKey,
				"",
			),
		}
	} else {
		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.S3Region),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
	}

	s3Client := s3.NewFromConfig(awsCfg, s3Opts...)

	service := &S3Service{
		config:   cfg,
		uploader: manager.NewUploader(s3Client),
		s3Client: s3Client,
	}

	log.Printf("S3 service initialized with endpoint: %s", cfg.S3Endpoint)
	return service, nil
}

func (s *S3Service) UploadAvatar(ctx context.Context, file io.Reader, filename, contentType string, userID uint) (*model.AvatarMetadata, error) {
	fileID := uuid.New().String()
	s3Key := path.Join("avatars", fmt.Sprint(userID), fileID, filename)

	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3BucketName),
		Key:         aws.String(s3Key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	log.Printf("Avatar uploaded: %s", result.Location)

	return &model.AvatarMetadata{
		ID:               fileID,
		Filename:         filename,
		ContentType:      contentType,
		S3Key:            s3Key,
		S3Bucket:         s.config.S3BucketName,
		UploadedByUserID: userID,
		CreatedAt:        time.Now(),
	}, nil
}

func (s *S3Service) GeneratePresignedURL(ctx context.Context, s3Key string, expires time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.s3Client)

	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3BucketName),
		Key:    aws.String(s3Key),
	}, s3.WithPresignExpires(expires))

	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}

func (s *S3Service) HealthCheck(ctx context.Context) error {
	_, err := s.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}
