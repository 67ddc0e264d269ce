package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
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
	"github.com/ichigozero/taskapi/authsvc/pkg/authservice"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// NewHTTPHandler returns an HTTP handler that makes a set of endpoints
// available on predefined paths.
func NewHTTPHandler(endpoints authendpoint.Set, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(ErrorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	loginHandler := httptransport.NewServer(
		endpoints.LoginEndpoint,
		decodeHTTPLoginRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	signupHandler := httptransport.NewServer(
		endpoints.SignupEndpoint,
		decodeHTTPSignupRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	authorizeHandler := httptransport.NewServer(
		endpoints.AuthorizeEndpoint,
		decodeHTTPAuthorizeRequest,
		encodeHTTPGenericResponse,
		append(options, httptransport.ServerBefore(kitjwt.HTTPToContext()))...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/auth/login").Handler(loginHandler)
	r.Methods("POST").Path("/signup").Handler(signupHandler)
	r.Methods("GET").Path("/auth/me").Handler(authorizeHandler)

	return r
}

// NewHTTPClient returns an auth service backed by an HTTP server living at
// the remote instance. Failures reported by the server are decoded back into
// the errors the service itself returns.
func NewHTTPClient(instance string, logger log.Logger) (authservice.Service, error) {
	// Quickly sanitize the instance string.
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	var options []httptransport.ClientOption

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/auth/login"),
			encodeHTTPGenericRequest,
			decodeHTTPLoginResponse,
			options...,
		).Endpoint()
		loginEndpoint = limiter(loginEndpoint)
		loginEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Login",
			Timeout: 30 * time.Second,
		}))(loginEndpoint)
	}

	var signupEndpoint endpoint.Endpoint
	{
		signupEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/signup"),
			encodeHTTPGenericRequest,
			decodeHTTPSignupResponse,
			options...,
		).Endpoint()
		signupEndpoint = limiter(signupEndpoint)
		signupEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Signup",
			Timeout: 30 * time.Second,
		}))(signupEndpoint)
	}

	var authorizeEndpoint endpoint.Endpoint
	{
		authorizeEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/auth/me"),
			encodeHTTPAuthorizeRequest,
			decodeHTTPAuthorizeResponse,
			options...,
		).Endpoint()
		authorizeEndpoint = limiter(authorizeEndpoint)
		authorizeEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Authorize",
			Timeout: 30 * time.Second,
		}))(authorizeEndpoint)
	}

	return authendpoint.Set{
		LoginEndpoint:     loginEndpoint,
		SignupEndpoint:    signupEndpoint,
		AuthorizeEndpoint: authorizeEndpoint,
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = path
	return &next
}

func decodeHTTPLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, ErrBadRequest
	}
	return req, nil
}

func decodeHTTPSignupRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, ErrBadRequest
	}
	return req, nil
}

// decodeHTTPAuthorizeRequest reads the bearer token kitjwt.HTTPToContext
// extracted. A missing token is left for the service to reject.
func decodeHTTPAuthorizeRequest(ctx context.Context, _ *http.Request) (interface{}, error) {
	token, _ := ctx.Value(kitjwt.JWTTokenContextKey).(string)
	return authendpoint.AuthorizeRequest{Token: token}, nil
}

func decodeHTTPLoginResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := DecodeError(r)
		return authendpoint.LoginResponse{Err: failed}, err
	}
	var resp authendpoint.LoginResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPSignupResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusCreated {
		failed, err := DecodeError(r)
		return authendpoint.SignupResponse{Err: failed}, err
	}
	var resp authendpoint.SignupResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPAuthorizeResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := DecodeError(r)
		return authendpoint.AuthorizeResponse{Err: failed}, err
	}
	var resp authendpoint.AuthorizeResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

func encodeHTTPAuthorizeRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(authendpoint.AuthorizeRequest)
	if req.Token != "" {
		r.Header.Set("Authorization", "Bearer "+req.Token)
	}
	return nil
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		ErrorEncoder(ctx, f.Failed(), w)
		return nil
	}
	return httptransport.EncodeJSONResponse(ctx, w, response)
}

// DecodeAfterAuthorization adapts the request decoder of an endpoint guarded
// by authendpoint.NewAuthorizer: decode errors travel in an
// authendpoint.DecodeFailure and surface only after the token is accepted.
func DecodeAfterAuthorization(dec httptransport.DecodeRequestFunc) httptransport.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		request, err := dec(ctx, r)
		if err != nil {
			return authendpoint.DecodeFailure{Err: err}, nil
		}
		return request, nil
	}
}

// ErrBadRequest is returned when a request body is not valid JSON.
var ErrBadRequest = errors.New("malformed request body")
