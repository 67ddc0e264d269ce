package authservice

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ichigozero/taskapi/authsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("test-secret")
	epoch      = time.Unix(1700000000, 0)
)

func TestTokenRoundTrip(t *testing.T) {
	c := NewTokenCodec(testSecret, time.Hour)

	token, err := c.Encode(42, epoch)
	require.NoError(t, err)

	for _, offset := range []time.Duration{0, time.Second, 30 * time.Minute, time.Hour - time.Second, time.Hour - time.Nanosecond} {
		userID, err := c.Decode(token, epoch.Add(offset))
		require.NoError(t, err, "offset %v", offset)
		assert.Equal(t, uint64(42), userID)
	}
}

func TestTokenExpiry(t *testing.T) {
	c := NewTokenCodec(testSecret, time.Hour)

	token, err := c.Encode(42, epoch)
	require.NoError(t, err)

	for _, offset := range []time.Duration{time.Hour, time.Hour + time.Nanosecond, 48 * time.Hour} {
		userID, err := c.Decode(token, epoch.Add(offset))
		assert.ErrorIs(t, err, authsvc.ErrTokenExpired, "offset %v", offset)
		assert.Zero(t, userID)
	}
}

func TestTokenSubSecondIssueTime(t *testing.T) {
	c := NewTokenCodec(testSecret, time.Hour)
	now := epoch.Add(700 * time.Millisecond)

	token, err := c.Encode(7, now)
	require.NoError(t, err)

	_, err = c.Decode(token, now)
	assert.NoError(t, err)
	_, err = c.Decode(token, epoch.Add(time.Hour))
	assert.ErrorIs(t, err, authsvc.ErrTokenExpired)
}

func TestTokenDecodeIsIdempotent(t *testing.T) {
	c := NewTokenCodec(testSecret, time.Hour)
	token, err := c.Encode(9, epoch)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		userID, err := c.Decode(token, epoch)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), userID)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenCodec([]byte("right-secret"), time.Hour).Encode(1, epoch)
	require.NoError(t, err)

	_, err = NewTokenCodec([]byte("wrong-secret"), time.Hour).Decode(token, epoch)
	assert.ErrorIs(t, err, authsvc.ErrTokenBadSignature)
}

func TestTokenSignatureCheckedBeforeExpiry(t *testing.T) {
	token, err := NewTokenCodec([]byte("right-secret"), time.Hour).Encode(1, epoch)
	require.NoError(t, err)

	_, err = NewTokenCodec([]byte("wrong-secret"), time.Hour).Decode(token, epoch.Add(48*time.Hour))
	assert.ErrorIs(t, err, authsvc.ErrTokenBadSignature)
}

func TestTokenBitFlips(t *testing.T) {
	c := NewTokenCodec(testSecret, time.Hour)
	token, err := c.Encode(42, epoch)
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := []byte(token)
			tampered[i] ^= 1 << bit

			userID, err := c.Decode(string(tampered), epoch)
			if !assert.Error(t, err, "byte %d bit %d decoded to user %d", i, bit, userID) {
				continue
			}
			assert.Truef(t,
				err == authsvc.ErrTokenBadSignature || err == authsvc.ErrTokenMalformed,
				"byte %d bit %d: unexpected error %v", i, bit, err,
			)
		}
	}
}

func TestTokenMalformed(t *testing.T) {
	c := NewTokenCodec(testSecret, time.Hour)
	token, err := c.Encode(42, epoch)
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	tests := map[string]string{
		"empty":             "",
		"garbage":           "not-a-token",
		"two segments":      parts[0] + "." + parts[1],
		"four segments":     token + ".x",
		"bad base64 header": "!!!." + parts[1] + "." + parts[2],
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(tc, epoch)
			assert.ErrorIs(t, err, authsvc.ErrTokenMalformed)
		})
	}
}

func TestTokenEmptySignatureRejected(t *testing.T) {
	c := NewTokenCodec(testSecret, time.Hour)
	token, err := c.Encode(42, epoch)
	require.NoError(t, err)

	unsigned := token[:strings.LastIndex(token, ".")+1]
	_, err = c.Decode(unsigned, epoch)
	assert.ErrorIs(t, err, authsvc.ErrTokenBadSignature)
}

func TestTokenNoneAlgorithmRejected(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenCodec(testSecret, time.Hour).Decode(token, epoch)
	assert.ErrorIs(t, err, authsvc.ErrTokenBadSignature)
}

func TestTokenClaimShape(t *testing.T) {
	sign := func(claims jwt.Claims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)
		return token
	}
	exp := jwt.NewNumericDate(epoch.Add(time.Hour))

	tests := map[string]string{
		"missing exp":     sign(jwt.RegisteredClaims{Subject: "42"}),
		"non-numeric sub": sign(jwt.RegisteredClaims{Subject: "ada", ExpiresAt: exp}),
		"zero sub":        sign(jwt.RegisteredClaims{Subject: "0", ExpiresAt: exp}),
		"missing sub":     sign(jwt.RegisteredClaims{ExpiresAt: exp}),
	}
	c := NewTokenCodec(testSecret, time.Hour)
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(tc, epoch)
			assert.ErrorIs(t, err, authsvc.ErrTokenMalformed)
		})
	}
}

func TestTokenEncodeRejectsZeroUser(t *testing.T) {
	_, err := NewTokenCodec(testSecret, time.Hour).Encode(0, epoch)
	assert.ErrorIs(t, err, authsvc.ErrInvalidArgument)
}

func TestTokenSecretCopied(t *testing.T) {
	secret := []byte("mutable-secret")
	c := NewTokenCodec(secret, time.Hour)
	token, err := c.Encode(3, epoch)
	require.NoError(t, err)

	secret[0] = 'X'

	userID, err := c.Decode(token, epoch)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), userID)
}

func TestTokenDefaultTTL(t *testing.T) {
	c := NewTokenCodec(testSecret, 0)
	token, err := c.Encode(5, epoch)
	require.NoError(t, err)

	_, err = c.Decode(token, epoch.Add(DefaultTokenTTL-time.Second))
	assert.NoError(t, err)
	_, err = c.Decode(token, epoch.Add(DefaultTokenTTL))
	assert.ErrorIs(t, err, authsvc.ErrTokenExpired)
}
