package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ana@example.com", "a**@*******.com"},
		{"a@loja.com.br", "a@****.***.br"},
		{"no-at-sign", "[invalid-email]"},
		{"a@b@c", "[invalid-email]"},
		{"ana@localhost", "a**@localhost"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizedEmail(tt.in), tt.in)
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("token=abc"))
	assert.True(t, SanitizeQueryString("Email=ana%40example.com"))
	assert.False(t, SanitizeQueryString("category=inverno"))
	assert.False(t, SanitizeQueryString(""))
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/auth/verify/abc123", "/auth/verify/[REDACTED]"},
		{"/auth/reset-password/tok", "/auth/reset-password/[REDACTED]"},
		{"/api/users/by-email/ana@example.com", "/api/users/by-email/[REDACTED]"},
		{"/auth/verify/", "/auth/verify/"},
		{"/api/products/p1", "/api/products/p1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactPath(tt.in), tt.in)
	}
}
