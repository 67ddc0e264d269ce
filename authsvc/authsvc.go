package authsvc

import (
	"context"
	"errors"
)

type contextKey string

// UserIDContextKey holds the user id resolved by the request authorizer. It is
// the only identity resource handlers may trust.
const UserIDContextKey contextKey = "UserID"

// WithUserID attaches an authorized user id to ctx.
func WithUserID(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext returns the authorized user id, or
// ErrUserIDContextMissing when the request never went through the authorizer.
func UserIDFromContext(ctx context.Context) (uint64, error) {
	userID, ok := ctx.Value(UserIDContextKey).(uint64)
	if !ok || userID == 0 {
		return 0, ErrUserIDContextMissing
	}
	return userID, nil
}

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUserIDContextMissing = errors.New("user ID was not passed through the context")

	// Login failures share one error whatever the cause.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenMissing      = errors.New("missing token")
	ErrTokenMalformed    = errors.New("malformed token")
	ErrTokenBadSignature = errors.New("invalid token signature")
	ErrTokenExpired      = errors.New("token has expired")
	ErrUserNotFound      = errors.New("token subject not found")
)
