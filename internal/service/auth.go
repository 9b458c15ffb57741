package service

import (
	"errors"
	"fmt"
	"time"
	"wave/internal/model"
	"wave/internal/pkg/auth"
	"wave/internal/pkg/sms"
	"wave/internal/repository"

	"gorm.io/gorm"
)

const codeLifetime = 10 * time.Minute

var (
	ErrInvalidPhone      = errors.New("invalid phone number format")
	ErrAlreadyRegistered = errors.New("phone number already registered")
	ErrNotRegistered     = errors.New("phone number not registered")
	ErrNotVerified       = errors.New("phone number not verified")
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyVerified   = errors.New("phone number already verified")
	ErrCodeInvalid       = errors.New("invalid verification code")
	ErrCodeExpired       = errors.New("verification code has expired")
	ErrSMSDelivery       = errors.New("failed to send verification code")
)

// CodeIssued is returned by Register and Login. Code carries the
// plaintext one-time code so handlers can echo it in development mode;
// it is never persisted in this form.
type CodeIssued struct {
	UserID uint
	Code   string
}

type VerifyResult struct {
	Token        string
	RefreshToken string
	User         *model.User
}

// authService drives the verification flow:
// unregistered → code_issued → verified. Codes are single-use and a
// resend overwrites the previous pair, invalidating it immediately.
type authService struct {
	userRepo repository.UserRepository
	smsRepo  repository.SMSRepository
	provider sms.SMSProvider
}

func NewAuthService(userRepo repository.UserRepository, smsRepo repository.SMSRepository, provider sms.SMSProvider) AuthService {
	return &authService{
		userRepo: userRepo,
		smsRepo:  smsRepo,
		provider: provider,
	}
}

func (s *authService) Register(phone, name string) (*CodeIssued, error) {
	formatted := sms.FormatPhoneNumber(phone)
	if !sms.ValidatePhoneNumber(formatted) {
		return nil, ErrInvalidPhone
	}

	user, err := s.userRepo.FindByPhone(formatted)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &model.User{
			Phone:    formatted,
			Name:     name,
			LastSeen: time.Now(),
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	case err != nil:
		return nil, err
	case user.IsVerified:
		return nil, ErrAlreadyRegistered
	default:
		// Re-registration of an unverified number updates the name
		// and reissues the code.
		user.Name = name
		if err := s.userRepo.Update(user); err != nil {
			return nil, err
		}
	}

	return s.issueCode(user)
}

func (s *authService) Login(phone string) (*CodeIssued, error) {
	formatted := sms.FormatPhoneNumber(phone)
	if !sms.ValidatePhoneNumber(formatted) {
		return nil, ErrInvalidPhone
	}

	user, err := s.userRepo.FindByPhone(formatted)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}

	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	return s.issueCode(user)
}

// issueCode generates a fresh 6-digit code, stores its hash with the
// 10-minute expiry and dispatches the SMS. Saving overwrites any
// previous code, so the old one stops working right away.
func (s *authService) issueCode(user *model.User) (*CodeIssued, error) {
	code := sms.GenerateVerificationCode()

	hash, err := auth.HashCode(code)
	if err != nil {
		return nil, err
	}

	if err := s.smsRepo.SaveVerificationCode(user.ID, hash, codeLifetime); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Your Wave verification code is: %s. This code will expire in 10 minutes.", code)
	if err := s.provider.SendSMS(user.Phone, message); err != nil {
		return nil, ErrSMSDelivery
	}

	return &CodeIssued{UserID: user.ID, Code: code}, nil
}

func (s *authService) Verify(userID uint, code string) (*VerifyResult, error) {
	user, err := s.userRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	verification, err := s.smsRepo.GetVerificationCode(userID)
	if errors.Is(err, repository.ErrCodeNotFound) {
		// Nothing pending: the code aged out of the store entirely.
		return nil, ErrCodeExpired
	}
	if err != nil {
		return nil, err
	}

	// Mismatch and expiry are distinct failures: the caller retries a
	// mismatch but must request a resend for an expired code.
	if !auth.CheckCodeHash(code, verification.CodeHash) {
		return nil, ErrCodeInvalid
	}

	if verification.Expired(time.Now()) {
		return nil, ErrCodeExpired
	}

	user.IsVerified = true
	user.Online = true
	user.LastSeen = time.Now()
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	// The code is consumed; clear it so it cannot be replayed.
	if err := s.smsRepo.DeleteVerificationCode(userID); err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(user.ID, user.Phone, true)
	if err != nil {
		return nil, err
	}

	refresh, err := auth.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Token:        token,
		RefreshToken: refresh,
		User:         user,
	}, nil
}
