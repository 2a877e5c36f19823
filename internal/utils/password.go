package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past this many bytes
const maxPasswordBytes = 72

// compared against when an account has no password, so both paths cost one bcrypt run
var placeholderHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), bcrypt.DefaultCost)

// HashPassword hashes a password with bcrypt at cost
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. A nil hash (an account
// that only signs in with Google) never matches.
func VerifyPassword(hash *string, password string) bool {
	if hash == nil {
		_ = bcrypt.CompareHashAndPassword(placeholderHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}
