package auth

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	tokenLifetime   = 7 * 24 * time.Hour
	refreshLifetime = 30 * 24 * time.Hour
)

var jwtKey []byte

func init() {
	key := os.Getenv("JWT_KEY")
	if key == "" {
		log.Println("WARNING: JWT_KEY is not set — using insecure fallback. Set JWT_KEY in env for production!")
		key = "insecure-development-key-change-me"
	}
	jwtKey = []byte(key)
}

type Claims struct {
	UserID      uint   `json:"user_id"`
	PhoneNumber string `json:"phone_number"`
	IsVerified  bool   `json:"is_verified"`
	jwt.StandardClaims
}

// GenerateToken issues the 7-day session token handed out after a
// successful phone verification.
func GenerateToken(userID uint, phoneNumber string, isVerified bool) (string, error) {
	claims := &Claims{
		UserID:      userID,
		PhoneNumber: phoneNumber,
		IsVerified:  isVerified,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(tokenLifetime).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(jwtKey)
}

// GenerateRefreshToken issues the 30-day variant carrying only the user ID.
func GenerateRefreshToken(userID uint) (string, error) {
	claims := &Claims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(refreshLifetime).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(jwtKey)
}

func ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return jwtKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !tkn.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	return claims, nil
}

var ErrNoToken = errors.New("no token provided")

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", ErrNoToken
	}

	return token, nil
}

// CurrentUser resolves the acting user from the request token.
func CurrentUser(r *http.Request) (*Claims, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}

	return ValidateToken(token)
}
