package userservice

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/taskapi/usersvc"
)

// Service exposes the profile of an authorized user.
type Service interface {
	User(ctx context.Context, userID uint64) (usersvc.User, error)
}

func New(users usersvc.UserRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(users)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

func NewBasicService(users usersvc.UserRepository) Service {
	return basicService{users}
}

type basicService struct {
	users usersvc.UserRepository
}

func (s basicService) User(ctx context.Context, userID uint64) (usersvc.User, error) {
	if userID == 0 {
		return usersvc.User{}, usersvc.ErrInvalidArgument
	}
	return s.users.ByID(ctx, userID)
}
