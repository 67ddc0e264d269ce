package usertransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/taskapi/authsvc/pkg/authendpoint"
	"github.com/ichigozero/taskapi/authsvc/pkg/authtransport"
	"github.com/ichigozero/taskapi/usersvc"
	"github.com/ichigozero/taskapi/usersvc/pkg/userendpoint"
	"github.com/ichigozero/taskapi/usersvc/pkg/userservice"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// NewHTTPHandler mounts the user endpoints behind the request authorizer.
// authorize is the auth service's Authorize endpoint, local or remote.
func NewHTTPHandler(endpoints userendpoint.Set, authorize endpoint.Endpoint, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(kitjwt.HTTPToContext()),
	}

	var userEndpoint endpoint.Endpoint
	{
		userEndpoint = endpoints.UserEndpoint
		userEndpoint = authendpoint.NewAuthorizer(authorize)(userEndpoint)
	}

	userHandler := httptransport.NewServer(
		userEndpoint,
		authtransport.DecodeAfterAuthorization(decodeHTTPUserRequest),
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("GET").Path("/users/me").Handler(userHandler)

	return r
}

// NewHTTPClient returns a user service backed by a remote instance. Calls
// authenticate with the bearer token found in their context under
// kitjwt.JWTTokenContextKey.
func NewHTTPClient(instance string, logger log.Logger) (userservice.Service, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	var userEndpoint endpoint.Endpoint
	{
		u.Path = "/users/me"
		userEndpoint = httptransport.NewClient(
			"GET",
			u,
			encodeHTTPUserRequest,
			decodeHTTPUserResponse,
			httptransport.ClientBefore(kitjwt.ContextToHTTP()),
		).Endpoint()
		userEndpoint = limiter(userEndpoint)
		userEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "User",
			Timeout: 30 * time.Second,
		}))(userEndpoint)
	}

	return userendpoint.Set{
		UserEndpoint: userEndpoint,
	}, nil
}

func errorEncoder(ctx context.Context, err error, w http.ResponseWriter) {
	if errors.Is(err, usersvc.ErrUserNotFound) {
		authtransport.WriteError(w, http.StatusNotFound, authtransport.ErrorResponse{
			Message: "Couldn't find User",
			Code:    authtransport.CodeNotFound,
		})
		return
	}
	authtransport.ErrorEncoder(ctx, err, w)
}

func decodeHTTPUserRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return userendpoint.UserRequest{}, nil
}

func encodeHTTPUserRequest(_ context.Context, _ *http.Request, _ interface{}) error {
	return nil
}

func decodeHTTPUserResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := authtransport.DecodeError(r)
		var remote *authtransport.RemoteError
		if errors.As(failed, &remote) && remote.Code == authtransport.CodeNotFound {
			failed = usersvc.ErrUserNotFound
		}
		return userendpoint.UserResponse{Err: failed}, err
	}
	var resp userendpoint.UserResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	return httptransport.EncodeJSONResponse(ctx, w, response)
}
