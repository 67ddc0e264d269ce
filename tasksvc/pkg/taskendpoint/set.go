package taskendpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/taskapi/authsvc"
	"github.com/ichigozero/taskapi/tasksvc"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskservice"
)

type Set struct {
	CreateTaskEndpoint endpoint.Endpoint
	TasksEndpoint      endpoint.Endpoint
	TaskEndpoint       endpoint.Endpoint
	UpdateTaskEndpoint endpoint.Endpoint
	DeleteTaskEndpoint endpoint.Endpoint
}

func New(svc taskservice.Service, logger log.Logger) Set {
	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = MakeCreateTaskEndpoint(svc)
		createTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateTask"))(createTaskEndpoint)
	}

	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = MakeTasksEndpoint(svc)
		tasksEndpoint = LoggingMiddleware(log.With(logger, "method", "Tasks"))(tasksEndpoint)
	}

	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = MakeTaskEndpoint(svc)
		taskEndpoint = LoggingMiddleware(log.With(logger, "method", "Task"))(taskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = MakeUpdateTaskEndpoint(svc)
		updateTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "UpdateTask"))(updateTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = MakeDeleteTaskEndpoint(svc)
		deleteTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "DeleteTask"))(deleteTaskEndpoint)
	}

	return Set{
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
	}
}

// The Set methods put userID into the context the endpoints read it from.
// Remote sets ignore it and authenticate with the bearer token in ctx.

func (s Set) CreateTask(ctx context.Context, userID uint64, title, description string) (tasksvc.Task, error) {
	resp, err := s.CreateTaskEndpoint(authsvc.WithUserID(ctx, userID), CreateTaskRequest{Title: title, Description: description})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(CreateTaskResponse)
	return response.Task, response.Err
}

func (s Set) Tasks(ctx context.Context, userID uint64, page, perPage int) ([]tasksvc.Task, error) {
	resp, err := s.TasksEndpoint(authsvc.WithUserID(ctx, userID), TasksRequest{Page: page, PerPage: perPage})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func (s Set) Task(ctx context.Context, userID, taskID uint64) (tasksvc.Task, error) {
	resp, err := s.TaskEndpoint(authsvc.WithUserID(ctx, userID), TaskRequest{TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) UpdateTask(ctx context.Context, userID, taskID uint64, patch tasksvc.TaskPatch) (tasksvc.Task, error) {
	resp, err := s.UpdateTaskEndpoint(authsvc.WithUserID(ctx, userID), UpdateTaskRequest{TaskID: taskID, TaskPatch: patch})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(UpdateTaskResponse)
	return response.Task, response.Err
}

func (s Set) DeleteTask(ctx context.Context, userID, taskID uint64) error {
	resp, err := s.DeleteTaskEndpoint(authsvc.WithUserID(ctx, userID), DeleteTaskRequest{TaskID: taskID})
	if err != nil {
		return err
	}
	response := resp.(DeleteTaskResponse)
	return response.Err
}

func MakeCreateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		userID, err := authsvc.UserIDFromContext(ctx)
		if err != nil {
			return CreateTaskResponse{Err: err}, nil
		}

		req := request.(CreateTaskRequest)
		t, err := s.CreateTask(ctx, userID, req.Title, req.Description)
		return CreateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		userID, err := authsvc.UserIDFromContext(ctx)
		if err != nil {
			return TasksResponse{Err: err}, nil
		}

		req := request.(TasksRequest)
		t, err := s.Tasks(ctx, userID, req.Page, req.PerPage)
		return TasksResponse{Tasks: t, Err: err}, nil
	}
}

func MakeTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		userID, err := authsvc.UserIDFromContext(ctx)
		if err != nil {
			return TaskResponse{Err: err}, nil
		}

		req := request.(TaskRequest)
		t, err := s.Task(ctx, userID, req.TaskID)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeUpdateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		userID, err := authsvc.UserIDFromContext(ctx)
		if err != nil {
			return UpdateTaskResponse{Err: err}, nil
		}

		req := request.(UpdateTaskRequest)
		t, err := s.UpdateTask(ctx, userID, req.TaskID, req.TaskPatch)
		return UpdateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeDeleteTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		userID, err := authsvc.UserIDFromContext(ctx)
		if err != nil {
			return DeleteTaskResponse{Err: err}, nil
		}

		req := request.(DeleteTaskRequest)
		err = s.DeleteTask(ctx, userID, req.TaskID)
		return DeleteTaskResponse{Err: err}, nil
	}
}

// LoggingMiddleware returns an endpoint middleware that logs the
// duration of each invocation, and the resulting error, if any.
func LoggingMiddleware(logger log.Logger) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			defer func(begin time.Time) {
				logger.Log("transport_error", err, "took", time.Since(begin))
			}(time.Now())
			return next(ctx, request)
		}
	}
}

var (
	_ endpoint.Failer = CreateTaskResponse{}
	_ endpoint.Failer = TasksResponse{}
	_ endpoint.Failer = TaskResponse{}
	_ endpoint.Failer = UpdateTaskResponse{}
	_ endpoint.Failer = DeleteTaskResponse{}
)

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Task responses encode as the bare task (or list of tasks).

type CreateTaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r CreateTaskResponse) Failed() error { return r.Err }

func (r CreateTaskResponse) StatusCode() int { return http.StatusCreated }

func (r CreateTaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

type TasksRequest struct {
	Page    int
	PerPage int
}

type TasksResponse struct {
	Tasks []tasksvc.Task
	Err   error
}

func (r TasksResponse) Failed() error { return r.Err }

func (r TasksResponse) MarshalJSON() ([]byte, error) {
	if r.Tasks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Tasks)
}

type TaskRequest struct {
	TaskID uint64
}

type TaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r TaskResponse) Failed() error { return r.Err }

func (r TaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

type UpdateTaskRequest struct {
	TaskID uint64 `json:"-"`
	tasksvc.TaskPatch
}

type UpdateTaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r UpdateTaskResponse) Failed() error { return r.Err }

func (r UpdateTaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

type DeleteTaskRequest struct {
	TaskID uint64
}

type DeleteTaskResponse struct {
	Err error
}

func (r DeleteTaskResponse) Failed() error { return r.Err }

func (r DeleteTaskResponse) StatusCode() int { return http.StatusNoContent }
