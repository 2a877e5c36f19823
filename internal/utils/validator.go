package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// RFC 5321 path limit
const maxEmailLength = 254

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks the shape of an already sanitized address
func ValidateEmail(email string) bool {
	return len(email) <= maxEmailLength && emailRegex.MatchString(email)
}

// ValidatePassword enforces the account password policy: 8 to 72 bytes with
// at least one upper case letter, one lower case letter and one digit
func ValidatePassword(password string) bool {
	if len(password) < 8 || len(password) > maxPasswordBytes {
		return false
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	return upper && lower && digit
}

// SanitizeEmail normalizes an address for storage and lookup
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
