package authendpoint

import (
	"context"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/taskapi/authsvc"
)

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

// DecodeFailure stands in for a request that could not be decoded. Transports
// of guarded endpoints return it instead of failing the decode, so a caller
// without a valid token is rejected as unauthorized whatever it sent.
type DecodeFailure struct {
	Err error
}

// NewAuthorizer guards an endpoint with a bearer token check. The token must
// have been put into the context by kitjwt.HTTPToContext. On success the
// resolved user id is attached with authsvc.WithUserID; any failure ends the
// request before next runs. A DecodeFailure request fails with its Err once
// the caller is admitted.
func NewAuthorizer(authorize endpoint.Endpoint) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			token, _ := ctx.Value(kitjwt.JWTTokenContextKey).(string)
			if token == "" {
				return nil, authsvc.ErrTokenMissing
			}

			resp, err := authorize(ctx, AuthorizeRequest{Token: token})
			if err != nil {
				return nil, err
			}

			r := resp.(AuthorizeResponse)
			if r.Err != nil {
				return nil, r.Err
			}

			if f, ok := request.(DecodeFailure); ok {
				return nil, f.Err
			}

			return next(authsvc.WithUserID(ctx, r.UserID), request)
		}
	}
}
