package service

import (
	"errors"
	"time"
	"wave/internal/model"
	"wave/internal/repository"

	"gorm.io/gorm"
)

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetProfile(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateProfile applies the provided fields and bumps LastSeen. A nil
// pointer means "leave unchanged"; an avatar may be cleared with an
// empty string, a name may not.
func (s *userService) UpdateProfile(userID uint, name, avatar *string) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if name != nil && *name != "" {
		user.Name = *name
	}
	if avatar != nil {
		user.Avatar = *avatar
	}
	user.LastSeen = time.Now()

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	return user, nil
}
