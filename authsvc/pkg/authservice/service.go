package authservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/taskapi/authsvc"
	"github.com/ichigozero/taskapi/usersvc"
	"github.com/ichigozero/taskapi/validation"
)

type Service interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, name, email, password string, passwordConfirmation *string) (string, error)
	Authorize(ctx context.Context, token string) (uint64, error)
}

func New(users usersvc.UserRepository, h PasswordHasher, c TokenCodec, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(users, h, c, time.Now)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users  usersvc.UserRepository
	hasher PasswordHasher
	codec  TokenCodec
	now    func() time.Time

	// verified against when the email is unknown so both login failures
	// cost one bcrypt comparison
	dummyDigest string
}

func NewBasicService(users usersvc.UserRepository, h PasswordHasher, c TokenCodec, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}

	// an empty digest still never verifies
	dummy, _ := h.Hash("dummy-password-for-unknown-users")

	return &basicService{
		users:       users,
		hasher:      h,
		codec:       c,
		now:         now,
		dummyDigest: dummy,
	}
}

func (s *basicService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.ByEmail(ctx, usersvc.NormalizeEmail(email))
	switch {
	case errors.Is(err, usersvc.ErrUserNotFound):
		s.hasher.Verify(password, s.dummyDigest)
		return "", authsvc.ErrInvalidCredentials
	case err != nil:
		return "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", authsvc.ErrInvalidCredentials
	}

	return s.codec.Encode(user.ID, s.now())
}

func (s *basicService) Signup(ctx context.Context, name, email, password string, passwordConfirmation *string) (string, error) {
	email = usersvc.NormalizeEmail(email)

	var errs validation.Errors
	if validation.Blank(name) {
		errs.Add("name", "can't be blank")
	}
	switch {
	case email == "":
		errs.Add("email", "can't be blank")
	case !strings.Contains(email, "@"):
		errs.Add("email", "is invalid")
	default:
		_, err := s.users.ByEmail(ctx, email)
		switch {
		case err == nil:
			errs.Add("email", "has already been taken")
		case !errors.Is(err, usersvc.ErrUserNotFound):
			return "", err
		}
	}
	switch {
	case password == "":
		errs.Add("password", "can't be blank")
	case len(password) > MaxPasswordBytes:
		errs.Add("password", "is too long (maximum is 72 bytes)")
	}
	if passwordConfirmation != nil && *passwordConfirmation != password {
		errs.Add("password_confirmation", "doesn't match Password")
	}
	if err := errs.Err(); err != nil {
		return "", err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	user, err := s.users.Create(ctx, usersvc.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: digest,
	})
	if errors.Is(err, usersvc.ErrEmailTaken) {
		// lost a race with a concurrent signup for the same email
		errs.Add("email", "has already been taken")
		return "", errs
	}
	if err != nil {
		return "", err
	}

	return s.codec.Encode(user.ID, s.now())
}

func (s *basicService) Authorize(ctx context.Context, token string) (uint64, error) {
	if token == "" {
		return 0, authsvc.ErrTokenMissing
	}

	userID, err := s.codec.Decode(token, s.now())
	if err != nil {
		return 0, err
	}

	user, err := s.users.ByID(ctx, userID)
	switch {
	case errors.Is(err, usersvc.ErrUserNotFound):
		return 0, authsvc.ErrUserNotFound
	case err != nil:
		return 0, err
	}

	return user.ID, nil
}
