package service

import (
	"testing"
	"time"
	"wave/internal/model"
	"wave/internal/pkg/auth"
	"wave/internal/repository"

	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users  map[uint]*model.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*model.User), nextID: 1}
}

func (r *fakeUserRepo) Create(user *model.User) error {
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(id uint) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindByPhone(phone string) (*model.User, error) {
	for _, user := range r.users {
		if user.Phone == phone {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(user *model.User) error {
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) PhoneExists(phone string) (bool, error) {
	_, err := r.FindByPhone(phone)
	return err == nil, nil
}

type fakeSMSRepo struct {
	codes map[uint]*model.VerificationCode
}

func newFakeSMSRepo() *fakeSMSRepo {
	return &fakeSMSRepo{codes: make(map[uint]*model.VerificationCode)}
}

func (r *fakeSMSRepo) SaveVerificationCode(userID uint, codeHash string, expiresIn time.Duration) error {
	r.codes[userID] = &model.VerificationCode{
		UserID:    userID,
		CodeHash:  codeHash,
		ExpiresAt: time.Now().Add(expiresIn),
	}
	return nil
}

func (r *fakeSMSRepo) GetVerificationCode(userID uint) (*model.VerificationCode, error) {
	code, ok := r.codes[userID]
	if !ok {
		return nil, repository.ErrCodeNotFound
	}
	return code, nil
}

func (r *fakeSMSRepo) DeleteVerificationCode(userID uint) error {
	delete(r.codes, userID)
	return nil
}

type fakeProvider struct {
	sent []string
	fail bool
}

func (p *fakeProvider) SendSMS(phone, message string) error {
	if p.fail {
		return ErrSMSDelivery
	}
	p.sent = append(p.sent, phone)
	return nil
}

func newTestAuth() (AuthService, *fakeUserRepo, *fakeSMSRepo, *fakeProvider) {
	users := newFakeUserRepo()
	codes := newFakeSMSRepo()
	provider := &fakeProvider{}
	return NewAuthService(users, codes, provider), users, codes, provider
}

func TestRegisterVerifyScenario(t *testing.T) {
	svc, users, codes, provider := newTestAuth()

	issued, err := svc.Register("+15551234567", "Ada")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if issued.UserID == 0 {
		t.Fatal("expected a user ID")
	}
	if len(issued.Code) != 6 {
		t.Errorf("expected a 6-digit code, got %q", issued.Code)
	}
	if len(provider.sent) != 1 {
		t.Errorf("expected 1 SMS dispatched, got %d", len(provider.sent))
	}

	// Wrong code: mismatch error, state unchanged, retry permitted.
	if _, err := svc.Verify(issued.UserID, "000000"); err != ErrCodeInvalid {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}

	result, err := svc.Verify(issued.UserID, issued.Code)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Token == "" || result.RefreshToken == "" {
		t.Error("expected session and refresh tokens")
	}
	if !result.User.IsVerified || !result.User.Online {
		t.Error("verified user must be marked verified and online")
	}

	// Code is consumed: nothing left in the store.
	if _, err := codes.GetVerificationCode(issued.UserID); err != repository.ErrCodeNotFound {
		t.Error("verification code must be cleared after success")
	}

	stored, _ := users.FindByID(issued.UserID)
	if !stored.IsVerified {
		t.Error("verified flag must be persisted")
	}

	claims, err := auth.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.UserID != issued.UserID || claims.PhoneNumber != "+15551234567" || !claims.IsVerified {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestRegister_AlreadyVerified(t *testing.T) {
	svc, _, _, _ := newTestAuth()

	issued, _ := svc.Register("5551234567", "Ada")
	if _, err := svc.Verify(issued.UserID, issued.Code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if _, err := svc.Register("5551234567", "Ada"); err != ErrAlreadyRegistered {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegister_UnverifiedReissues(t *testing.T) {
	svc, users, _, _ := newTestAuth()

	first, _ := svc.Register("5551234567", "Ada")
	second, err := svc.Register("5551234567", "Ada L.")
	if err != nil {
		t.Fatalf("re-registration of unverified number failed: %v", err)
	}
	if first.UserID != second.UserID {
		t.Error("re-registration must reuse the existing record")
	}

	user, _ := users.FindByID(second.UserID)
	if user.Name != "Ada L." {
		t.Errorf("expected updated name, got %q", user.Name)
	}

	// The first code is dead the moment the second was issued.
	if _, err := svc.Verify(second.UserID, first.Code); err != ErrCodeInvalid {
		t.Errorf("old code must be invalid after resend, got %v", err)
	}
	if _, err := svc.Verify(second.UserID, second.Code); err != nil {
		t.Errorf("fresh code must verify, got %v", err)
	}
}

func TestRegister_InvalidPhone(t *testing.T) {
	svc, _, _, _ := newTestAuth()

	if _, err := svc.Register("123", "Ada"); err != ErrInvalidPhone {
		t.Errorf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestRegister_SMSDeliveryFailure(t *testing.T) {
	svc, _, _, provider := newTestAuth()
	provider.fail = true

	if _, err := svc.Register("5551234567", "Ada"); err != ErrSMSDelivery {
		t.Errorf("expected ErrSMSDelivery, got %v", err)
	}
}

func TestLogin_Gating(t *testing.T) {
	svc, _, _, _ := newTestAuth()

	if _, err := svc.Login("5551234567"); err != ErrNotRegistered {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}

	issued, _ := svc.Register("5551234567", "Ada")
	if _, err := svc.Login("5551234567"); err != ErrNotVerified {
		t.Errorf("expected ErrNotVerified, got %v", err)
	}

	if _, err := svc.Verify(issued.UserID, issued.Code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	login, err := svc.Login("5551234567")
	if err != nil {
		t.Fatalf("Login failed for verified user: %v", err)
	}
	if login.UserID != issued.UserID {
		t.Error("login must target the registered user")
	}
}

func TestVerify_ExpiredCode(t *testing.T) {
	svc, _, codes, _ := newTestAuth()

	issued, _ := svc.Register("5551234567", "Ada")

	// Age the stored pair past the window.
	codes.codes[issued.UserID].ExpiresAt = time.Now().Add(-time.Minute)

	// The correct code after expiry is an expiry error, not a mismatch.
	if _, err := svc.Verify(issued.UserID, issued.Code); err != ErrCodeExpired {
		t.Errorf("expected ErrCodeExpired, got %v", err)
	}

	// A missing pair reads as expired as well.
	codes.DeleteVerificationCode(issued.UserID)
	if _, err := svc.Verify(issued.UserID, issued.Code); err != ErrCodeExpired {
		t.Errorf("expected ErrCodeExpired for missing code, got %v", err)
	}
}

func TestVerify_AlreadyVerified(t *testing.T) {
	svc, _, _, _ := newTestAuth()

	issued, _ := svc.Register("5551234567", "Ada")
	if _, err := svc.Verify(issued.UserID, issued.Code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if _, err := svc.Verify(issued.UserID, issued.Code); err != ErrAlreadyVerified {
		t.Errorf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestVerify_UnknownUser(t *testing.T) {
	svc, _, _, _ := newTestAuth()

	if _, err := svc.Verify(42, "123456"); err != ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
