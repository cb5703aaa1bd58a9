package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderTokenIsExpired(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)
	soon := time.Now().Add(30 * time.Second)

	tests := []struct {
		name      string
		expiresAt *time.Time
		margin    time.Duration
		expected  bool
	}{
		{"no expiry never expires", nil, time.Minute, false},
		{"future expiry is live", &future, time.Minute, false},
		{"past expiry is expired", &past, time.Minute, true},
		{"margin eats remaining lifetime", &soon, time.Minute, true},
		{"zero margin keeps short lifetime", &soon, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok := &ProviderToken{ExpiresAt: tc.expiresAt}
			assert.Equal(t, tc.expected, tok.IsExpired(tc.margin))
		})
	}
}
