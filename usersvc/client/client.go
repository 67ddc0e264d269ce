package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/taskapi/usersvc/pkg/userendpoint"
	"github.com/ichigozero/taskapi/usersvc/pkg/userservice"
	"github.com/ichigozero/taskapi/usersvc/pkg/usertransport"
)

const ServiceName = "usersvc"

func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (userendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, ServiceName, tags, passingOnly)
	)
	return NewWithInstancer(instancer, logger, retryMax, retryTimeout), nil
}

func NewWithInstancer(instancer sd.Instancer, logger log.Logger, retryMax int, retryTimeout time.Duration) userendpoint.Set {
	endpoints := userendpoint.Set{}
	{
		factory := factoryFor(userendpoint.MakeUserEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.UserEndpoint = retry
	}
	return endpoints
}

func factoryFor(makeEndpoint func(userservice.Service) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		service, err := usertransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return makeEndpoint(service), nil, nil
	}
}
