// ABOUTME: Tests for phone number normalization
// ABOUTME: Covers formatting variants, country code stripping, and garbage input

package pharmacy

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"parenthesized", "(555) 123-4567", "5551234567", true},
		{"dashed with country code", "1-555-123-4567", "5551234567", true},
		{"dotted", "555.123.4567", "5551234567", true},
		{"plus country code", "+1 555 123 4567", "5551234567", true},
		{"bare digits", "5551234567", "5551234567", true},
		{"eleven digits not US", "25551234567", "25551234567", true},
		{"leading one short number", "1234", "1234", true},
		{"empty", "", "", false},
		{"no digits", "no numbers here", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizePhone(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
