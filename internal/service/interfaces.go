package service

import (
	"context"
	"wave/internal/model"
)

type AuthService interface {
	Register(phone, name string) (*CodeIssued, error)
	Login(phone string) (*CodeIssued, error)
	Verify(userID uint, code string) (*VerifyResult, error)
}

type UserService interface {
	GetProfile(userID uint) (*model.User, error)
	UpdateProfile(userID uint, name, avatar *string) (*model.User, error)
}

type SuggestService interface {
	SuggestEmojis(ctx context.Context, message string) []string
	SmartReplies(ctx context.Context, chatHistory string) []string
	SummarizeChat(ctx context.Context, chatHistory string) string
}
