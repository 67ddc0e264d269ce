package userservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/taskapi/usersvc"
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

func (mw loggingMiddleware) User(ctx context.Context, userID uint64) (user usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "User", "user_id", userID, "err", err)
	}()
	return mw.next.User(ctx, userID)
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

func (mw instrumentingMiddleware) User(ctx context.Context, userID uint64) (user usersvc.User, err error) {
	defer func(begin time.Time) {
		success := "false"
		if err == nil {
			success = "true"
		}
		mw.requestCount.With("method", "user", "success", success).Add(1)
		mw.requestLatency.With("method", "user").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.User(ctx, userID)
}
