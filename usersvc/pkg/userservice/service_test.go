package userservice

import (
	"context"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/generic"
	"github.com/ichigozero/taskapi/usersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepository map[uint64]usersvc.User

func (r userRepository) Create(context.Context, usersvc.User) (usersvc.User, error) {
	return usersvc.User{}, usersvc.ErrInvalidArgument
}

func (r userRepository) ByEmail(context.Context, string) (usersvc.User, error) {
	return usersvc.User{}, usersvc.ErrUserNotFound
}

func (r userRepository) ByID(_ context.Context, id uint64) (usersvc.User, error) {
	u, ok := r[id]
	if !ok {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return u, nil
}

func TestUser(t *testing.T) {
	svc := New(userRepository{1: {ID: 1, Name: "Ada", Email: "ada@example.com"}}, log.NewNopLogger())

	user, err := svc.User(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	_, err = svc.User(context.Background(), 2)
	assert.ErrorIs(t, err, usersvc.ErrUserNotFound)

	_, err = svc.User(context.Background(), 0)
	assert.ErrorIs(t, err, usersvc.ErrInvalidArgument)
}

type labelledCounter struct {
	*generic.Counter
	labels [][]string
}

func (c *labelledCounter) With(labelValues ...string) metrics.Counter {
	c.labels = append(c.labels, labelValues)
	return c
}

func TestInstrumentingMiddleware(t *testing.T) {
	counter := &labelledCounter{Counter: generic.NewCounter("request_count")}
	latency := generic.NewHistogram("request_latency_seconds", 10)
	svc := InstrumentingMiddleware(counter, latency)(NewBasicService(userRepository{1: {ID: 1, Name: "Ada"}}))

	svc.User(context.Background(), 1)
	svc.User(context.Background(), 2)

	assert.Equal(t, float64(2), counter.Value())
	assert.Equal(t, [][]string{
		{"method", "user", "success", "true"},
		{"method", "user", "success", "false"},
	}, counter.labels)
}
