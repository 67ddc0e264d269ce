package authservice

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ichigozero/taskapi/authsvc"
	"github.com/twinj/uuid"
)

// DefaultTokenTTL is used when NewTokenCodec is given a non-positive TTL.
const DefaultTokenTTL = 24 * time.Hour

// TokenCodec mints and checks the signed identity tokens handed to clients.
// Claim times have one-second precision: a token encoded at now is valid
// for decode times in [now truncated to the second, that + TTL).
type TokenCodec interface {
	Encode(userID uint64, now time.Time) (string, error)
	Decode(token string, now time.Time) (uint64, error)
}

type tokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret []byte, ttl time.Duration) TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	key := make([]byte, len(secret))
	copy(key, secret)

	return &tokenCodec{secret: key, ttl: ttl}
}

var uuidV4 = uuid.NewV4

func (c *tokenCodec) Encode(userID uint64, now time.Time) (string, error) {
	if userID == 0 {
		return "", authsvc.ErrInvalidArgument
	}

	issuedAt := now.Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		ID:        uuidV4().String(),
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Decode checks the signature before any claim, so a tampered token never
// reports as merely expired.
func (c *tokenCodec) Decode(token string, now time.Time) (uint64, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)

	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return 0, translateTokenError(err)
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, authsvc.ErrTokenMalformed
	}

	return userID, nil
}

func translateTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return authsvc.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return authsvc.ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return authsvc.ErrTokenExpired
	}
	return authsvc.ErrTokenMalformed
}
