package tasktransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/taskapi/authsvc/pkg/authendpoint"
	"github.com/ichigozero/taskapi/authsvc/pkg/authtransport"
	"github.com/ichigozero/taskapi/tasksvc"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskservice"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// NewHTTPHandler mounts the task endpoints behind the request authorizer.
// authorize is the auth service's Authorize endpoint, local or remote.
func NewHTTPHandler(endpoints taskendpoint.Set, authorize endpoint.Endpoint, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(kitjwt.HTTPToContext()),
	}

	authorizer := authendpoint.NewAuthorizer(authorize)

	createTaskHandler := httptransport.NewServer(
		authorizer(endpoints.CreateTaskEndpoint),
		authtransport.DecodeAfterAuthorization(decodeHTTPCreateTaskRequest),
		encodeHTTPGenericResponse,
		options...,
	)

	tasksHandler := httptransport.NewServer(
		authorizer(endpoints.TasksEndpoint),
		authtransport.DecodeAfterAuthorization(decodeHTTPTasksRequest),
		encodeHTTPGenericResponse,
		options...,
	)

	taskHandler := httptransport.NewServer(
		authorizer(endpoints.TaskEndpoint),
		authtransport.DecodeAfterAuthorization(decodeHTTPTaskRequest),
		encodeHTTPGenericResponse,
		options...,
	)

	updateTaskHandler := httptransport.NewServer(
		authorizer(endpoints.UpdateTaskEndpoint),
		authtransport.DecodeAfterAuthorization(decodeHTTPUpdateTaskRequest),
		encodeHTTPGenericResponse,
		options...,
	)

	deleteTaskHandler := httptransport.NewServer(
		authorizer(endpoints.DeleteTaskEndpoint),
		authtransport.DecodeAfterAuthorization(decodeHTTPDeleteTaskRequest),
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/tasks").Handler(createTaskHandler)
	r.Methods("GET").Path("/tasks").Handler(tasksHandler)
	r.Methods("GET").Path("/tasks/{task_id:[0-9]+}").Handler(taskHandler)
	r.Methods("PUT", "PATCH").Path("/tasks/{task_id:[0-9]+}").Handler(updateTaskHandler)
	r.Methods("DELETE").Path("/tasks/{task_id:[0-9]+}").Handler(deleteTaskHandler)

	return r
}

// NewHTTPClient returns a task service backed by a remote instance. Calls
// authenticate with the bearer token found in their context under
// kitjwt.JWTTokenContextKey.
func NewHTTPClient(instance string, logger log.Logger) (taskservice.Service, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	options := []httptransport.ClientOption{
		httptransport.ClientBefore(kitjwt.ContextToHTTP()),
	}

	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/tasks"),
			encodeHTTPGenericRequest,
			decodeHTTPCreateTaskResponse,
			options...,
		).Endpoint()
		createTaskEndpoint = limiter(createTaskEndpoint)
		createTaskEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "CreateTask",
			Timeout: 30 * time.Second,
		}))(createTaskEndpoint)
	}

	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/tasks"),
			encodeHTTPTasksRequest,
			decodeHTTPTasksResponse,
			options...,
		).Endpoint()
		tasksEndpoint = limiter(tasksEndpoint)
		tasksEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Tasks",
			Timeout: 30 * time.Second,
		}))(tasksEndpoint)
	}

	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/tasks"),
			encodeHTTPTaskRequest,
			decodeHTTPTaskResponse,
			options...,
		).Endpoint()
		taskEndpoint = limiter(taskEndpoint)
		taskEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Task",
			Timeout: 30 * time.Second,
		}))(taskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = httptransport.NewClient(
			"PUT",
			copyURL(u, "/tasks"),
			encodeHTTPUpdateTaskRequest,
			decodeHTTPUpdateTaskResponse,
			options...,
		).Endpoint()
		updateTaskEndpoint = limiter(updateTaskEndpoint)
		updateTaskEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "UpdateTask",
			Timeout: 30 * time.Second,
		}))(updateTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = httptransport.NewClient(
			"DELETE",
			copyURL(u, "/tasks"),
			encodeHTTPDeleteTaskRequest,
			decodeHTTPDeleteTaskResponse,
			options...,
		).Endpoint()
		deleteTaskEndpoint = limiter(deleteTaskEndpoint)
		deleteTaskEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "DeleteTask",
			Timeout: 30 * time.Second,
		}))(deleteTaskEndpoint)
	}

	return taskendpoint.Set{
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = path
	return &next
}

func errorEncoder(ctx context.Context, err error, w http.ResponseWriter) {
	switch {
	case errors.Is(err, tasksvc.ErrTaskNotFound):
		authtransport.WriteError(w, http.StatusNotFound, authtransport.ErrorResponse{
			Message: "Couldn't find Task",
			Code:    authtransport.CodeNotFound,
		})
	case errors.Is(err, tasksvc.ErrInvalidArgument):
		authtransport.WriteError(w, http.StatusBadRequest, authtransport.ErrorResponse{
			Message: "Bad request",
			Code:    authtransport.CodeBadRequest,
		})
	case errors.Is(err, tasksvc.ErrStoreUnavailable):
		authtransport.WriteError(w, http.StatusServiceUnavailable, authtransport.ErrorResponse{
			Message: "Service unavailable",
			Code:    authtransport.CodeStoreUnavailable,
		})
	default:
		authtransport.ErrorEncoder(ctx, err, w)
	}
}

// decodeError is authtransport.DecodeError plus the codes this service owns.
func decodeError(r *http.Response) (failed error, err error) {
	failed, err = authtransport.DecodeError(r)
	var remote *authtransport.RemoteError
	if errors.As(failed, &remote) && remote.Code == authtransport.CodeNotFound {
		failed = tasksvc.ErrTaskNotFound
	}
	if errors.Is(failed, authtransport.ErrBadRequest) {
		failed = tasksvc.ErrInvalidArgument
	}
	return failed, err
}

func decodeHTTPCreateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req taskendpoint.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authtransport.ErrBadRequest
	}
	return req, nil
}

func decodeHTTPTasksRequest(_ context.Context, r *http.Request) (interface{}, error) {
	q := r.URL.Query()

	page, err := queryInt(q, "page", 1)
	if err != nil {
		return nil, err
	}
	perPage, err := queryInt(q, "per_page", tasksvc.DefaultPerPage)
	if err != nil {
		return nil, err
	}

	return taskendpoint.TasksRequest{Page: page, PerPage: perPage}, nil
}

// queryInt reads a positive integer query parameter, or fallback when the
// parameter is absent.
func queryInt(q url.Values, key string, fallback int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, tasksvc.ErrInvalidArgument
	}
	return v, nil
}

func decodeHTTPTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, err := taskIDFromPath(r)
	if err != nil {
		return nil, err
	}

	return taskendpoint.TaskRequest{
		TaskID: taskID,
	}, nil
}

func decodeHTTPUpdateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, err := taskIDFromPath(r)
	if err != nil {
		return nil, err
	}

	var req taskendpoint.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authtransport.ErrBadRequest
	}

	req.TaskID = taskID

	return req, nil
}

func decodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	taskID, err := taskIDFromPath(r)
	if err != nil {
		return nil, err
	}

	return taskendpoint.DeleteTaskRequest{
		TaskID: taskID,
	}, nil
}

func taskIDFromPath(r *http.Request) (uint64, error) {
	vars := mux.Vars(r)
	id, ok := vars["task_id"]
	if !ok {
		return 0, ErrBadRouting
	}
	taskID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		// digits only, so the id overflowed
		return 0, tasksvc.ErrTaskNotFound
	}
	return taskID, nil
}

// ErrBadRouting is returned when an expected path variable is missing.
// It always indicates programmer error.
var ErrBadRouting = errors.New("inconsistent mapping between route and handler (programmer error)")

func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

func encodeHTTPTasksRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.TasksRequest)
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("per_page", strconv.Itoa(req.PerPage))
	r.URL.RawQuery = q.Encode()
	return nil
}

func encodeHTTPTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.TaskRequest)
	r.URL.Path = "/tasks/" + strconv.FormatUint(req.TaskID, 10)
	return nil
}

func encodeHTTPUpdateTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.UpdateTaskRequest)
	r.URL.Path = "/tasks/" + strconv.FormatUint(req.TaskID, 10)
	return encodeHTTPGenericRequest(ctx, r, req.TaskPatch)
}

func encodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.DeleteTaskRequest)
	r.URL.Path = "/tasks/" + strconv.FormatUint(req.TaskID, 10)
	return nil
}

func decodeHTTPCreateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusCreated {
		failed, err := decodeError(r)
		return taskendpoint.CreateTaskResponse{Err: failed}, err
	}
	var resp taskendpoint.CreateTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp.Task)
	return resp, err
}

func decodeHTTPTasksResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeError(r)
		return taskendpoint.TasksResponse{Err: failed}, err
	}
	var resp taskendpoint.TasksResponse
	err := json.NewDecoder(r.Body).Decode(&resp.Tasks)
	return resp, err
}

func decodeHTTPTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeError(r)
		return taskendpoint.TaskResponse{Err: failed}, err
	}
	var resp taskendpoint.TaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp.Task)
	return resp, err
}

func decodeHTTPUpdateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		failed, err := decodeError(r)
		return taskendpoint.UpdateTaskResponse{Err: failed}, err
	}
	var resp taskendpoint.UpdateTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp.Task)
	return resp, err
}

func decodeHTTPDeleteTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusNoContent {
		failed, err := decodeError(r)
		return taskendpoint.DeleteTaskResponse{Err: failed}, err
	}
	return taskendpoint.DeleteTaskResponse{}, nil
}

func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	return httptransport.EncodeJSONResponse(ctx, w, response)
}
