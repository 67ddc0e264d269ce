package authservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Login(ctx context.Context, email, password string) (token string, err error) {
	defer func() {
		mw.logger.Log("method", "Login", "email", email, "err", err)
	}()
	return mw.next.Login(ctx, email, password)
}

func (mw loggingMiddleware) Signup(ctx context.Context, name, email, password string, passwordConfirmation *string) (token string, err error) {
	defer func() {
		mw.logger.Log("method", "Signup", "name", name, "email", email, "err", err)
	}()
	return mw.next.Signup(ctx, name, email, password, passwordConfirmation)
}

func (mw loggingMiddleware) Authorize(ctx context.Context, token string) (userID uint64, err error) {
	defer func() {
		mw.logger.Log("method", "Authorize", "user_id", userID, "err", err)
	}()
	return mw.next.Authorize(ctx, token)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) Login(ctx context.Context, email, password string) (token string, err error) {
	defer func(begin time.Time) {
		mw.observe("login", err, begin)
	}(time.Now())

	return mw.next.Login(ctx, email, password)
}

func (mw instrumentingMiddleware) Signup(ctx context.Context, name, email, password string, passwordConfirmation *string) (token string, err error) {
	defer func(begin time.Time) {
		mw.observe("signup", err, begin)
	}(time.Now())

	return mw.next.Signup(ctx, name, email, password, passwordConfirmation)
}

func (mw instrumentingMiddleware) Authorize(ctx context.Context, token string) (userID uint64, err error) {
	defer func(begin time.Time) {
		mw.observe("authorize", err, begin)
	}(time.Now())

	return mw.next.Authorize(ctx, token)
}

func (mw instrumentingMiddleware) observe(method string, err error, begin time.Time) {
	mw.requestCount.With("method", method, "success", boolLabel(err == nil)).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
