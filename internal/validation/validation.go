package validation

import (
	"fmt"
	"strings"
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// ValidatePhoneNumber checks an E.164-style number, with or without the
// leading plus. Only digits are allowed and the length must fall inside
// the E.164 bounds.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone number is required")
	}

	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return fmt.Errorf("phone number must have %d to %d digits", minPhoneDigits, maxPhoneDigits)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("phone number contains non-digit character %q", r)
		}
	}
	return nil
}

// ValidateContactKey checks a conversation contact key: either a bare
// phone number or a provider chat key with an @domain suffix. Contact
// keys end up embedded in storage keys, so whitespace and colons are
// rejected outright.
func ValidateContactKey(contactKey string) error {
	if contactKey == "" {
		return fmt.Errorf("contact key is required")
	}
	if strings.ContainsAny(contactKey, " \t\n:") {
		return fmt.Errorf("contact key contains invalid characters")
	}

	number, _, found := strings.Cut(contactKey, "@")
	if found {
		if number == "" {
			return fmt.Errorf("contact key has empty number part")
		}
		return nil
	}
	return ValidatePhoneNumber(contactKey)
}
