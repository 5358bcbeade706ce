// Package format provides display formatting for Honduran identity
// numbers and phone numbers as printed on work-order views.
package format

import (
	"strings"
)

const (
	// IdentityDigits is the length of a national ID number (DNI)
	IdentityDigits = 13
	// PhoneDigits is the length of a local phone number
	PhoneDigits = 8
)

// StripFormatting removes every non-digit character from a value
func StripFormatting(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatIdentity renders a national ID as NNNN-NNNN-NNNNN. Partial
// input keeps as many groups as its digits fill; input longer than 13
// digits is truncated. Formatting its own output again is a no-op.
func FormatIdentity(value string) string {
	if value == "" {
		return value
	}

	numbers := StripFormatting(value)
	if len(numbers) > IdentityDigits {
		numbers = numbers[:IdentityDigits]
	}

	switch {
	case len(numbers) <= 4:
		return numbers
	case len(numbers) <= 8:
		return numbers[:4] + "-" + numbers[4:]
	default:
		return numbers[:4] + "-" + numbers[4:8] + "-" + numbers[8:]
	}
}

// FormatPhoneNumber renders a phone number as NNNN-NNNN. Digits past
// the eighth are dropped. Formatting its own output again is a no-op.
func FormatPhoneNumber(value string) string {
	if value == "" {
		return value
	}

	numbers := StripFormatting(value)
	if len(numbers) > PhoneDigits {
		numbers = numbers[:PhoneDigits]
	}

	if len(numbers) <= 4 {
		return numbers
	}
	return numbers[:4] + "-" + numbers[4:]
}
