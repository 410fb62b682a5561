package auth

import (
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the minimum number of characters in a password.
const MinPasswordLength = 8

// PasswordPolicy reports whether phrase is at least MinPasswordLength
// characters long and contains a decimal digit.
func PasswordPolicy(phrase string) bool {
	if utf8.RuneCountInString(phrase) < MinPasswordLength {
		return false
	}
	for _, r := range phrase {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
