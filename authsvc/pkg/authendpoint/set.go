package authendpoint

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/taskapi/authsvc/pkg/authservice"
)

// Set collects all of the endpoints that compose the auth service. It's meant
// to be used as a helper struct, to collect all of the endpoints into a single
// parameter.
type Set struct {
	LoginEndpoint     endpoint.Endpoint
	SignupEndpoint    endpoint.Endpoint
	AuthorizeEndpoint endpoint.Endpoint
}

func New(svc authservice.Service, logger log.Logger) Set {
	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = MakeLoginEndpoint(svc)
		loginEndpoint = LoggingMiddleware(log.With(logger, "method", "Login"))(loginEndpoint)
	}

	var signupEndpoint endpoint.Endpoint
	{
		signupEndpoint = MakeSignupEndpoint(svc)
		signupEndpoint = LoggingMiddleware(log.With(logger, "method", "Signup"))(signupEndpoint)
	}

	var authorizeEndpoint endpoint.Endpoint
	{
		authorizeEndpoint = MakeAuthorizeEndpoint(svc)
		authorizeEndpoint = LoggingMiddleware(log.With(logger, "method", "Authorize"))(authorizeEndpoint)
	}

	return Set{
		LoginEndpoint:     loginEndpoint,
		SignupEndpoint:    signupEndpoint,
		AuthorizeEndpoint: authorizeEndpoint,
	}
}

// Login implements the service interface, so Set may be used as a service.
// This is primarily useful in the context of a client library.
func (s Set) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := s.LoginEndpoint(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	response := resp.(LoginResponse)
	return response.Token, response.Err
}

func (s Set) Signup(ctx context.Context, name, email, password string, passwordConfirmation *string) (string, error) {
	resp, err := s.SignupEndpoint(ctx, SignupRequest{
		Name:                 name,
		Email:                email,
		Password:             password,
		PasswordConfirmation: passwordConfirmation,
	})
	if err != nil {
		return "", err
	}
	response := resp.(SignupResponse)
	return response.Token, response.Err
}

func (s Set) Authorize(ctx context.Context, token string) (uint64, error) {
	resp, err := s.AuthorizeEndpoint(ctx, AuthorizeRequest{Token: token})
	if err != nil {
		return 0, err
	}
	response := resp.(AuthorizeResponse)
	return response.UserID, response.Err
}

func MakeLoginEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(LoginRequest)
		token, err := s.Login(ctx, req.Email, req.Password)
		return LoginResponse{Token: token, Err: err}, nil
	}
}

func MakeSignupEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(SignupRequest)
		token, err := s.Signup(ctx, req.Name, req.Email, req.Password, req.PasswordConfirmation)
		if err != nil {
			return SignupResponse{Err: err}, nil
		}
		return SignupResponse{Message: AccountCreated, Token: token}, nil
	}
}

func MakeAuthorizeEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(AuthorizeRequest)
		userID, err := s.Authorize(ctx, req.Token)
		return AuthorizeResponse{UserID: userID, Err: err}, nil
	}
}

// AccountCreated is the message of a successful signup.
const AccountCreated = "Account created successfully"

var (
	_ endpoint.Failer = LoginResponse{}
	_ endpoint.Failer = SignupResponse{}
	_ endpoint.Failer = AuthorizeResponse{}
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"auth_token"`
	Err   error  `json:"-"`
}

func (r LoginResponse) Failed() error { return r.Err }

type SignupRequest struct {
	Name                 string  `json:"name"`
	Email                string  `json:"email"`
	Password             string  `json:"password"`
	PasswordConfirmation *string `json:"password_confirmation,omitempty"`
}

type SignupResponse struct {
	Message string `json:"message"`
	Token   string `json:"auth_token"`
	Err     error  `json:"-"`
}

func (r SignupResponse) Failed() error { return r.Err }

func (r SignupResponse) StatusCode() int { return http.StatusCreated }

// AuthorizeRequest carries the raw bearer token. It never travels in a body.
type AuthorizeRequest struct {
	Token string `json:"-"`
}

type AuthorizeResponse struct {
	UserID uint64 `json:"user_id"`
	Err    error  `json:"-"`
}

func (r AuthorizeResponse) Failed() error { return r.Err }
