package usersvc

import (
	"context"
	"errors"
	"strings"
	"time"
)

type User struct {
	ID           uint64    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRepository is the credential store. Emails passed in and returned are
// already normalized with NormalizeEmail.
type UserRepository interface {
	Create(ctx context.Context, user User) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
	ByID(ctx context.Context, id uint64) (User, error)
}

// NormalizeEmail gives emails their stored, case-insensitive form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email has already been taken")
	ErrStoreUnavailable = errors.New("user store unavailable")
)
