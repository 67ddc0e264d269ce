// Package apigateway serves the public HTTP API. The same routes front
// either in-process endpoints or remote ones discovered through Consul.
package apigateway

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/ichigozero/taskapi/authsvc/pkg/authendpoint"
	"github.com/ichigozero/taskapi/authsvc/pkg/authtransport"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/taskapi/tasksvc/pkg/tasktransport"
	"github.com/ichigozero/taskapi/usersvc/pkg/userendpoint"
	"github.com/ichigozero/taskapi/usersvc/pkg/usertransport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPHandler mounts the auth, user and task routes. Users and tasks sit
// behind the auth set's Authorize endpoint.
func NewHTTPHandler(
	auth authendpoint.Set,
	users userendpoint.Set,
	tasks taskendpoint.Set,
	logger log.Logger,
) http.Handler {
	var (
		authHandler = authtransport.NewHTTPHandler(auth, log.With(logger, "component", "auth"))
		userHandler = usertransport.NewHTTPHandler(users, auth.AuthorizeEndpoint, log.With(logger, "component", "users"))
		taskHandler = tasktransport.NewHTTPHandler(tasks, auth.AuthorizeEndpoint, log.With(logger, "component", "tasks"))
	)

	r := mux.NewRouter()

	r.PathPrefix("/auth/").Handler(authHandler)
	r.Path("/signup").Handler(authHandler)
	r.PathPrefix("/users/").Handler(userHandler)
	r.Path("/tasks").Handler(taskHandler)
	r.PathPrefix("/tasks/").Handler(taskHandler)
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	r.NotFoundHandler = http.HandlerFunc(notFound)

	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	authtransport.WriteError(w, http.StatusNotFound, authtransport.ErrorResponse{
		Message: "Not found",
		Code:    authtransport.CodeNotFound,
	})
}
