package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskservice"
	"github.com/ichigozero/taskapi/tasksvc/pkg/tasktransport"
)

const ServiceName = "tasksvc"

func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (taskendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, ServiceName, tags, passingOnly)
	)
	return NewWithInstancer(instancer, logger, retryMax, retryTimeout), nil
}

// NewWithInstancer balances every task endpoint over the instances
// reported by instancer.
func NewWithInstancer(instancer sd.Instancer, logger log.Logger, retryMax int, retryTimeout time.Duration) taskendpoint.Set {
	balanced := func(makeEndpoint func(taskservice.Service) endpoint.Endpoint) endpoint.Endpoint {
		factory := factoryFor(makeEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		return lb.Retry(retryMax, retryTimeout, balancer)
	}

	return taskendpoint.Set{
		CreateTaskEndpoint: balanced(taskendpoint.MakeCreateTaskEndpoint),
		TasksEndpoint:      balanced(taskendpoint.MakeTasksEndpoint),
		TaskEndpoint:       balanced(taskendpoint.MakeTaskEndpoint),
		UpdateTaskEndpoint: balanced(taskendpoint.MakeUpdateTaskEndpoint),
		DeleteTaskEndpoint: balanced(taskendpoint.MakeDeleteTaskEndpoint),
	}
}

func factoryFor(makeEndpoint func(taskservice.Service) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		service, err := tasktransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return makeEndpoint(service), nil, nil
	}
}
