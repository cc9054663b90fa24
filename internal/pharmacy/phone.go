// ABOUTME: Phone number normalization for catalog comparison
// ABOUTME: Reduces any phone format to a bare digit string

package pharmacy

import "strings"

// NormalizePhone reduces a phone number to its digits for comparison.
// An 11-digit number starting with "1" has the US country code stripped.
// Returns false if the input contains no digits at all.
func NormalizePhone(phone string) (string, bool) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if digits == "" {
		return "", false
	}

	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}

	return digits, true
}
