package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/taskapi/tasksvc"
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

func (mw loggingMiddleware) CreateTask(ctx context.Context, userID uint64, title, description string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log("method", "CreateTask", "user_id", userID, "task_id", t.ID, "err", err)
	}()
	return mw.next.CreateTask(ctx, userID, title, description)
}

func (mw loggingMiddleware) Tasks(ctx context.Context, userID uint64, page, perPage int) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log("method", "Tasks", "user_id", userID, "page", page, "per_page", perPage, "count", len(t), "err", err)
	}()
	return mw.next.Tasks(ctx, userID, page, perPage)
}

func (mw loggingMiddleware) Task(ctx context.Context, userID, taskID uint64) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log("method", "Task", "user_id", userID, "task_id", taskID, "err", err)
	}()
	return mw.next.Task(ctx, userID, taskID)
}

func (mw loggingMiddleware) UpdateTask(ctx context.Context, userID, taskID uint64, patch tasksvc.TaskPatch) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log("method", "UpdateTask", "user_id", userID, "task_id", taskID, "err", err)
	}()
	return mw.next.UpdateTask(ctx, userID, taskID, patch)
}

func (mw loggingMiddleware) DeleteTask(ctx context.Context, userID, taskID uint64) (err error) {
	defer func() {
		mw.logger.Log("method", "DeleteTask", "user_id", userID, "task_id", taskID, "err", err)
	}()
	return mw.next.DeleteTask(ctx, userID, taskID)
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

func (mw instrumentingMiddleware) CreateTask(ctx context.Context, userID uint64, title, description string) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.observe("create_task", err, begin)
	}(time.Now())

	return mw.next.CreateTask(ctx, userID, title, description)
}

func (mw instrumentingMiddleware) Tasks(ctx context.Context, userID uint64, page, perPage int) (t []tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.observe("tasks", err, begin)
	}(time.Now())

	return mw.next.Tasks(ctx, userID, page, perPage)
}

func (mw instrumentingMiddleware) Task(ctx context.Context, userID, taskID uint64) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.observe("task", err, begin)
	}(time.Now())

	return mw.next.Task(ctx, userID, taskID)
}

func (mw instrumentingMiddleware) UpdateTask(ctx context.Context, userID, taskID uint64, patch tasksvc.TaskPatch) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.observe("update_task", err, begin)
	}(time.Now())

	return mw.next.UpdateTask(ctx, userID, taskID, patch)
}

func (mw instrumentingMiddleware) DeleteTask(ctx context.Context, userID, taskID uint64) (err error) {
	defer func(begin time.Time) {
		mw.observe("delete_task", err, begin)
	}(time.Now())

	return mw.next.DeleteTask(ctx, userID, taskID)
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
