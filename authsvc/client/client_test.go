package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	"github.com/ichigozero/taskapi/authsvc"
	"github.com/ichigozero/taskapi/authsvc/pkg/authendpoint"
	"github.com/ichigozero/taskapi/authsvc/pkg/authservice"
	"github.com/ichigozero/taskapi/authsvc/pkg/authtransport"
	"github.com/ichigozero/taskapi/usersvc"
	usergorm "github.com/ichigozero/taskapi/usersvc/db/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := libgorm.Open(sqlite.Open(":memory:"), &libgorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&usersvc.User{}))

	svc := authservice.New(
		usergorm.NewUserRepository(db),
		authservice.NewPasswordHasher(bcrypt.MinCost),
		authservice.NewTokenCodec([]byte("test-secret"), time.Hour),
		log.NewNopLogger(),
	)
	handler := authtransport.NewHTTPHandler(authendpoint.New(svc, log.NewNopLogger()), log.NewNopLogger())

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestClientBalancesOverInstances(t *testing.T) {
	server := newAuthServer(t)
	instancer := sd.FixedInstancer{server.Listener.Addr().String()}

	endpoints := NewWithInstancer(instancer, log.NewNopLogger(), 3, time.Second)
	ctx := context.Background()

	token, err := endpoints.Signup(ctx, "Ada", "ada@example.com", "secret1", nil)
	require.NoError(t, err)

	userID, err := endpoints.Authorize(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), userID)

	_, err = endpoints.Login(ctx, "ada@example.com", "nope")
	assert.Equal(t, authsvc.ErrInvalidCredentials, err)
}

func TestClientWithoutInstances(t *testing.T) {
	endpoints := NewWithInstancer(sd.FixedInstancer{}, log.NewNopLogger(), 1, 100*time.Millisecond)

	_, err := endpoints.Authorize(context.Background(), "token")
	assert.Error(t, err)
}
