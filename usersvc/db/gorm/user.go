package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ichigozero/taskapi/usersvc"
	libgorm "gorm.io/gorm"
)

type userRepository struct {
	db *libgorm.DB
}

// NewUserRepository expects db to be opened with TranslateError enabled so
// that unique index violations surface as gorm.ErrDuplicatedKey.
func NewUserRepository(db *libgorm.DB) usersvc.UserRepository {
	return &userRepository{db}
}

func (u *userRepository) Create(ctx context.Context, user usersvc.User) (usersvc.User, error) {
	if user.ID != 0 || user.Email == "" {
		return usersvc.User{}, usersvc.ErrInvalidArgument
	}

	result := u.db.WithContext(ctx).Create(&user)
	if result.Error != nil {
		return usersvc.User{}, translate(result.Error)
	}

	return user, nil
}

func (u *userRepository) ByEmail(ctx context.Context, email string) (usersvc.User, error) {
	var user usersvc.User
	result := u.db.WithContext(ctx).Where("email = ?", email).First(&user)

	return user, translate(result.Error)
}

func (u *userRepository) ByID(ctx context.Context, id uint64) (usersvc.User, error) {
	if id == 0 {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}

	var user usersvc.User
	result := u.db.WithContext(ctx).First(&user, id)

	return user, translate(result.Error)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, libgorm.ErrRecordNotFound):
		return usersvc.ErrUserNotFound
	case errors.Is(err, libgorm.ErrDuplicatedKey):
		return usersvc.ErrEmailTaken
	}
	return fmt.Errorf("%w: %v", usersvc.ErrStoreUnavailable, err)
}
