package apigateway

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/taskapi/authsvc/pkg/authendpoint"
	"github.com/ichigozero/taskapi/authsvc/pkg/authservice"
	"github.com/ichigozero/taskapi/tasksvc"
	taskgorm "github.com/ichigozero/taskapi/tasksvc/db/gorm"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskservice"
	"github.com/ichigozero/taskapi/usersvc"
	usergorm "github.com/ichigozero/taskapi/usersvc/db/gorm"
	"github.com/ichigozero/taskapi/usersvc/pkg/userendpoint"
	"github.com/ichigozero/taskapi/usersvc/pkg/userservice"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
)

var testSecret = []byte("test-secret")

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	db, err := libgorm.Open(sqlite.Open(":memory:"), &libgorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&usersvc.User{}, &tasksvc.Task{}))

	logger := log.NewNopLogger()
	users := usergorm.NewUserRepository(db)

	auth := authservice.New(
		users,
		authservice.NewPasswordHasher(bcrypt.MinCost),
		authservice.NewTokenCodec(testSecret, time.Hour),
		logger,
	)

	return NewHTTPHandler(
		authendpoint.New(auth, logger),
		userendpoint.New(userservice.New(users, logger), logger),
		taskendpoint.New(taskservice.New(taskgorm.NewTaskRepository(db), logger), logger),
		logger,
	)
}

func signupAda(t *testing.T, handler http.Handler) string {
	t.Helper()

	var resp authendpoint.SignupResponse
	apitest.Handler(handler).
		Post("/signup").
		JSON(`{"name":"Ada","email":"ada@example.com","password":"secret1","password_confirmation":"secret1"}`).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.message", "Account created successfully")).
		Assert(jsonpath.Present("$.auth_token")).
		End().
		JSON(&resp)

	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestSignupThenUseToken(t *testing.T) {
	handler := newTestHandler(t)
	token := signupAda(t, handler)

	apitest.Handler(handler).
		Get("/auth/me").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.user_id", float64(1))).
		End()

	apitest.Handler(handler).
		Get("/users/me").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.user.email", "ada@example.com")).
		End()

	apitest.Handler(handler).
		Post("/tasks").
		Header("Authorization", "Bearer "+token).
		JSON(`{"title":"Wash the car"}`).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.owner_id", float64(1))).
		End()

	apitest.Handler(handler).
		Get("/tasks").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$", 1)).
		End()
}

func TestLogin(t *testing.T) {
	handler := newTestHandler(t)
	signupAda(t, handler)

	apitest.Handler(handler).
		Post("/auth/login").
		JSON(`{"email":"ADA@example.com ","password":"secret1"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Present("$.auth_token")).
		End()

	invalid := `{"message":"Invalid credentials","code":"invalid_credentials"}`

	apitest.Handler(handler).
		Post("/auth/login").
		JSON(`{"email":"ada@example.com","password":"wrong"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(invalid).
		End()

	apitest.Handler(handler).
		Post("/auth/login").
		JSON(`{"email":"nobody@example.com","password":"secret1"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(invalid).
		End()
}

func TestRejectedTokens(t *testing.T) {
	handler := newTestHandler(t)
	token := signupAda(t, handler)

	expired, err := authservice.NewTokenCodec(testSecret, time.Hour).Encode(1, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	forged, err := authservice.NewTokenCodec([]byte("other-secret"), time.Hour).Encode(1, time.Now())
	require.NoError(t, err)

	ghost, err := authservice.NewTokenCodec(testSecret, time.Hour).Encode(42, time.Now())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	truncated := parts[0] + "." + parts[1]

	for _, tc := range []struct {
		name, header, code, message string
	}{
		{"no header", "", "missing_token", "Missing token"},
		{"wrong scheme", "Basic " + token, "missing_token", "Missing token"},
		{"expired", "Bearer " + expired, "expired_token", "Signature has expired"},
		{"other secret", "Bearer " + forged, "invalid_token", "Invalid token"},
		{"truncated", "Bearer " + truncated, "malformed_token", "Malformed token"},
		{"unknown user", "Bearer " + ghost, "user_not_found", "Invalid token"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test := apitest.Handler(handler).Get("/tasks")
			if tc.header != "" {
				test = test.Header("Authorization", tc.header)
			}
			test.Expect(t).
				Status(http.StatusUnauthorized).
				Assert(jsonpath.Equal("$.code", tc.code)).
				Assert(jsonpath.Equal("$.message", tc.message)).
				End()
		})
	}
}

func TestTasksOfOtherUsersAreHidden(t *testing.T) {
	handler := newTestHandler(t)
	ada := signupAda(t, handler)

	var grace authendpoint.SignupResponse
	apitest.Handler(handler).
		Post("/signup").
		JSON(`{"name":"Grace","email":"grace@example.com","password":"secret2"}`).
		Expect(t).
		Status(http.StatusCreated).
		End().
		JSON(&grace)

	apitest.Handler(handler).
		Post("/tasks").
		Header("Authorization", "Bearer "+ada).
		JSON(`{"title":"Ada's task"}`).
		Expect(t).
		Status(http.StatusCreated).
		End()

	apitest.Handler(handler).
		Get("/tasks/1").
		Header("Authorization", "Bearer "+grace.Token).
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"message":"Couldn't find Task","code":"not_found"}`).
		End()

	apitest.Handler(handler).
		Get("/tasks").
		Header("Authorization", "Bearer "+grace.Token).
		Expect(t).
		Status(http.StatusOK).
		Body(`[]`).
		End()
}

func TestUnknownRoute(t *testing.T) {
	handler := newTestHandler(t)

	apitest.Handler(handler).
		Get("/nope").
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"message":"Not found","code":"not_found"}`).
		End()
}

func TestMetrics(t *testing.T) {
	handler := newTestHandler(t)

	apitest.Handler(handler).
		Get("/metrics").
		Expect(t).
		Status(http.StatusOK).
		End()
}
