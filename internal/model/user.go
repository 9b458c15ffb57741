package model

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Phone      string    `json:"phone" gorm:"uniqueIndex"` // +15551234567
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar"`
	IsVerified bool      `json:"is_verified"`
	Online     bool      `json:"online"`
	LastSeen   time.Time `json:"last_seen"`
	Contacts   []*User   `json:"-" gorm:"many2many:user_contacts;"`
	Blocked    []*User   `json:"-" gorm:"many2many:user_blocked;"`
}

// PublicUser is the sanitized view returned by the API.
// Verification fields never leave the server.
type PublicUser struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	Avatar      string    `json:"avatar"`
	Online      bool      `json:"online"`
	LastSeen    time.Time `json:"lastSeen"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          strconv.FormatUint(uint64(u.ID), 10),
		Name:        u.Name,
		PhoneNumber: u.Phone,
		Avatar:      u.Avatar,
		Online:      u.Online,
		LastSeen:    u.LastSeen,
	}
}

// VerificationCode is the one-time credential kept in redis while a
// registration or login is pending. Only the bcrypt hash is stored.
type VerificationCode struct {
	UserID    uint      `json:"user_id"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (v *VerificationCode) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
