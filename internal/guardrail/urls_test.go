package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLPolicyAllows(t *testing.T) {
	policy := NewURLPolicy(
		"https://billing.example.com/login",
		"https://example.com/account",
		"", // omitted target
	)

	tests := []struct {
		name    string
		url     string
		allowed bool
	}{
		{"exact allowed host", "https://billing.example.com/cancel", true},
		{"second allowed host", "https://example.com/subscription", true},
		{"subdomain of allowed host", "https://www.example.com/account", true},
		{"http scheme of allowed host", "http://example.com/account", true},
		{"unrelated host", "https://attacker.test/account", false},
		{"suffix lookalike host", "https://notexample.com/", false},
		{"javascript scheme", "javascript:alert(1)", false},
		{"file scheme", "file:///etc/passwd", false},
		{"empty", "", false},
		{"relative path", "/account", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, policy.Allows(tt.url))
		})
	}
}

func TestURLPolicySkipsUnparsableTargets(t *testing.T) {
	policy := NewURLPolicy("://bad", "https://ok.example.com/a")
	assert.True(t, policy.Allows("https://ok.example.com/b"))
	assert.False(t, policy.Allows("https://bad/"))
}

func TestURLPolicyEmpty(t *testing.T) {
	policy := NewURLPolicy()
	assert.False(t, policy.Allows("https://anything.example.com/"))
}
