package app

import (
	"log"
	"wave/internal/config"
	"wave/internal/handler"
	"wave/internal/pkg/ai"
	"wave/internal/pkg/sms"
	"wave/internal/repository"
	"wave/internal/service"
	"wave/internal/ws"

	"github.com/redis/go-redis/v9"
)

func Run(cfg *config.Config) {
	db, err := repository.NewDB(cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	var provider sms.SMSProvider
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioPhone != "" {
		provider = sms.NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhone)
	} else {
		log.Println("Twilio credentials not configured. SMS verification will be simulated.")
		provider = sms.NewMockSMSProvider()
	}

	var s3Service *service.S3Service
	if cfg.S3BucketName != "" {
		s3Service, err = service.NewS3Service(cfg)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Println("S3 bucket not configured. Avatar uploads are disabled.")
	}

	userRepo := repository.NewUserRepository(db)
	smsRepo := repository.NewSMSRepository(rdb)

	authService := service.NewAuthService(userRepo, smsRepo, provider)
	userService := service.NewUserService(userRepo)
	suggestService := service.NewSuggestService(ai.NewHTTPClient(cfg.AIEndpoint, cfg.AIAPIKey, cfg.AIModel))

	hub := ws.NewHub()

	authHandler := handler.NewAuthHandler(authService, cfg.IsDevelopment())
	userHandler := handler.NewUserHandler(userService, s3Service)
	chatHandler := handler.NewChatHandler(hub, userService, suggestService)

	server := NewServer(authHandler, userHandler, chatHandler)
	server.Run(cfg.ServerPort)
}
