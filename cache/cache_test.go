package cache

import (
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"registration id", "https://auth.example.com/realms/demo::gateway-client", nil},
		{"empty", "", ErrInvalidKey},
		{"whitespace", "   ", ErrInvalidKey},
		{"newline", "https://a\n::b", ErrInvalidKey},
		{"carriage return", "https://a\r::b", ErrInvalidKey},
		{"too long", strings.Repeat("a", MaxKeyLength+1), ErrKeyTooLong},
		{"max length", strings.Repeat("a", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key); err != tt.wantErr {
				t.Errorf("ValidateKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
