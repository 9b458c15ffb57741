package auth

import "golang.org/x/crypto/bcrypt"

// HashCode hashes a verification code for storage. Only the hash ever
// reaches redis.
func HashCode(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckCodeHash(code, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	return err == nil
}
