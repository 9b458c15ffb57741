package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"wave/internal/model"

	"github.com/redis/go-redis/v9"
)

var ErrCodeNotFound = errors.New("verification code not found")

type SMSRepository interface {
	SaveVerificationCode(userID uint, codeHash string, expiresIn time.Duration) error
	GetVerificationCode(userID uint) (*model.VerificationCode, error)
	DeleteVerificationCode(userID uint) error
}

type smsRepository struct {
	rdb *redis.Client
	ctx context.Context
}

func NewSMSRepository(rdb *redis.Client) SMSRepository {
	ctx := context.Background()

	if err := rdb.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	return &smsRepository{
		rdb: rdb,
		ctx: ctx,
	}
}

// SaveVerificationCode overwrites any previous code for the user, so a
// resend invalidates the old code immediately. The redis TTL is kept
// longer than the logical expiry so that an expired code can still be
// told apart from a mismatched one.
func (s *smsRepository) SaveVerificationCode(userID uint, codeHash string, expiresIn time.Duration) error {
	verification := model.VerificationCode{
		UserID:    userID,
		CodeHash:  codeHash,
		ExpiresAt: time.Now().Add(expiresIn),
	}

	data, err := json.Marshal(verification)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("verification:%d", userID)
	return s.rdb.Set(s.ctx, key, data, expiresIn*6).Err()
}

func (s *smsRepository) GetVerificationCode(userID uint) (*model.VerificationCode, error) {
	key := fmt.Sprintf("verification:%d", userID)
	data, err := s.rdb.Get(s.ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}

	var verification model.VerificationCode
	if err := json.Unmarshal(data, &verification); err != nil {
		return nil, err
	}

	return &verification, nil
}

func (s *smsRepository) DeleteVerificationCode(userID uint) error {
	key := fmt.Sprintf("verification:%d", userID)
	return s.rdb.Del(s.ctx, key).Err()
}
