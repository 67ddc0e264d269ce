package authservice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashIsSaltedPerCall(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	first, err := h.Hash("secret1")
	require.NoError(t, err)
	second, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "secret1")
	assert.True(t, h.Verify("secret1", first))
	assert.True(t, h.Verify("secret1", second))
}

func TestVerifyRejects(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	digest, err := h.Hash("secret1")
	require.NoError(t, err)

	tests := map[string]struct {
		plaintext string
		digest    string
	}{
		"wrong password":   {"secret2", digest},
		"empty password":   {"", digest},
		"empty digest":     {"secret1", ""},
		"malformed digest": {"secret1", "not-a-bcrypt-digest"},
		"truncated digest": {"secret1", digest[:len(digest)-5]},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.False(t, h.Verify(tc.plaintext, tc.digest))
		})
	}
}

func TestHashCostFallsBackToDefault(t *testing.T) {
	h := NewPasswordHasher(0)
	digest, err := h.Hash("secret1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestHashRejectsOverlongPassword(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.Error(t, err)
}
