package userendpoint

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/taskapi/authsvc"
	"github.com/ichigozero/taskapi/usersvc"
	"github.com/ichigozero/taskapi/usersvc/pkg/userservice"
)

type Set struct {
	UserEndpoint endpoint.Endpoint
}

func New(svc userservice.Service, logger log.Logger) Set {
	var userEndpoint endpoint.Endpoint
	{
		userEndpoint = MakeUserEndpoint(svc)
		userEndpoint = LoggingMiddleware(log.With(logger, "method", "User"))(userEndpoint)
	}
	return Set{
		UserEndpoint: userEndpoint,
	}
}

// User returns the profile of the user id carried by ctx.
func (s Set) User(ctx context.Context, userID uint64) (usersvc.User, error) {
	resp, err := s.UserEndpoint(authsvc.WithUserID(ctx, userID), UserRequest{})
	if err != nil {
		return usersvc.User{}, err
	}
	response := resp.(UserResponse)
	return response.User, response.Err
}

// MakeUserEndpoint serves the authorized user only; the id comes from the
// context, never from the request.
func MakeUserEndpoint(s userservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		userID, err := authsvc.UserIDFromContext(ctx)
		if err != nil {
			return UserResponse{Err: err}, nil
		}

		_ = request.(UserRequest)
		user, err := s.User(ctx, userID)
		return UserResponse{User: user, Err: err}, nil
	}
}

// LoggingMiddleware returns an endpoint middleware that logs the
// duration of each invocation, and the resulting error, if any.
func LoggingMiddleware(logger log.Logger) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			defer func(begin time.Time) {
				logger.Log("transport_error", err, "took", time.Since(begin))
			}(time.Now())
			return next(ctx, request)
		}
	}
}

var _ endpoint.Failer = UserResponse{}

type UserRequest struct{}

type UserResponse struct {
	User usersvc.User `json:"user"`
	Err  error        `json:"-"`
}

func (r UserResponse) Failed() error { return r.Err }
