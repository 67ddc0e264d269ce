package authendpoint

import (
	"context"
	"errors"
	"testing"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/taskapi/authsvc"
	"github.com/ichigozero/taskapi/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	tokens map[string]uint64
}

func (s stubService) Login(_ context.Context, email, password string) (string, error) {
	if email == "ada@example.com" && password == "secret1" {
		return "token-1", nil
	}
	return "", authsvc.ErrInvalidCredentials
}

func (s stubService) Signup(_ context.Context, name, email, password string, passwordConfirmation *string) (string, error) {
	if name == "" {
		var errs validation.Errors
		errs.Add("name", "can't be blank")
		return "", errs
	}
	return "token-2", nil
}

func (s stubService) Authorize(_ context.Context, token string) (uint64, error) {
	if token == "" {
		return 0, authsvc.ErrTokenMissing
	}
	userID, ok := s.tokens[token]
	if !ok {
		return 0, authsvc.ErrTokenBadSignature
	}
	return userID, nil
}

func newStubSet() Set {
	return New(stubService{tokens: map[string]uint64{"token-1": 1}}, log.NewNopLogger())
}

func TestSetImplementsService(t *testing.T) {
	s := newStubSet()

	token, err := s.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	_, err = s.Login(context.Background(), "ada@example.com", "wrong")
	assert.Equal(t, authsvc.ErrInvalidCredentials, err)

	userID, err := s.Authorize(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), userID)
}

func TestSignupEndpoint(t *testing.T) {
	s := newStubSet()

	resp, err := s.SignupEndpoint(context.Background(), SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	r := resp.(SignupResponse)
	assert.NoError(t, r.Failed())
	assert.Equal(t, AccountCreated, r.Message)
	assert.Equal(t, "token-2", r.Token)
	assert.Equal(t, 201, r.StatusCode())

	resp, err = s.SignupEndpoint(context.Background(), SignupRequest{})
	require.NoError(t, err)
	r = resp.(SignupResponse)
	var errs validation.Errors
	assert.True(t, errors.As(r.Failed(), &errs))
	assert.Empty(t, r.Message)
}

func TestAuthorizer(t *testing.T) {
	s := newStubSet()

	var seen uint64
	calls := 0
	next := func(ctx context.Context, request interface{}) (interface{}, error) {
		calls++
		userID, err := authsvc.UserIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		seen = userID
		return request, nil
	}
	guarded := NewAuthorizer(s.AuthorizeEndpoint)(next)

	tests := map[string]struct {
		ctx  context.Context
		want error
	}{
		"no token":    {context.Background(), authsvc.ErrTokenMissing},
		"empty token": {context.WithValue(context.Background(), kitjwt.JWTTokenContextKey, ""), authsvc.ErrTokenMissing},
		"rejected":    {context.WithValue(context.Background(), kitjwt.JWTTokenContextKey, "forged"), authsvc.ErrTokenBadSignature},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := guarded(tc.ctx, "req")
			assert.Equal(t, tc.want, err)
			assert.Nil(t, resp)
		})
	}
	assert.Zero(t, calls)

	ctx := context.WithValue(context.Background(), kitjwt.JWTTokenContextKey, "token-1")
	resp, err := guarded(ctx, "req")
	require.NoError(t, err)
	assert.Equal(t, "req", resp)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), seen)
}

func TestAuthorizerTransportError(t *testing.T) {
	unavailable := errors.New("connection refused")
	authorize := func(context.Context, interface{}) (interface{}, error) {
		return nil, unavailable
	}
	next := func(context.Context, interface{}) (interface{}, error) {
		t.Fatal("next must not run")
		return nil, nil
	}

	ctx := context.WithValue(context.Background(), kitjwt.JWTTokenContextKey, "token-1")
	_, err := NewAuthorizer(authorize)(next)(ctx, nil)
	assert.Equal(t, unavailable, err)
}

func TestAuthorizerDecodeFailure(t *testing.T) {
	s := newStubSet()
	malformed := errors.New("malformed body")
	next := func(context.Context, interface{}) (interface{}, error) {
		t.Fatal("next must not run")
		return nil, nil
	}
	guarded := NewAuthorizer(s.AuthorizeEndpoint)(next)
	request := DecodeFailure{Err: malformed}

	_, err := guarded(context.Background(), request)
	assert.Equal(t, authsvc.ErrTokenMissing, err)

	ctx := context.WithValue(context.Background(), kitjwt.JWTTokenContextKey, "forged")
	_, err = guarded(ctx, request)
	assert.Equal(t, authsvc.ErrTokenBadSignature, err)

	ctx = context.WithValue(context.Background(), kitjwt.JWTTokenContextKey, "token-1")
	_, err = guarded(ctx, request)
	assert.Equal(t, malformed, err)
}
