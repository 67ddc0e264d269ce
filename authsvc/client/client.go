package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/taskapi/authsvc/pkg/authendpoint"
	"github.com/ichigozero/taskapi/authsvc/pkg/authservice"
	"github.com/ichigozero/taskapi/authsvc/pkg/authtransport"
)

// ServiceName is the name auth instances register under in Consul.
const ServiceName = "authsvc"

// New returns the auth endpoints of every passing instance registered in
// Consul, balanced round robin with retries.
func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (authendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, ServiceName, tags, passingOnly)
	)
	return NewWithInstancer(instancer, logger, retryMax, retryTimeout), nil
}

// NewWithInstancer is New for any service discovery backend.
func NewWithInstancer(instancer sd.Instancer, logger log.Logger, retryMax int, retryTimeout time.Duration) authendpoint.Set {
	endpoints := authendpoint.Set{}
	{
		factory := factoryFor(authendpoint.MakeLoginEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.LoginEndpoint = retry
	}
	{
		factory := factoryFor(authendpoint.MakeSignupEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.SignupEndpoint = retry
	}
	{
		factory := factoryFor(authendpoint.MakeAuthorizeEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.AuthorizeEndpoint = retry
	}
	return endpoints
}

func factoryFor(makeEndpoint func(authservice.Service) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		service, err := authtransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return makeEndpoint(service), nil, nil
	}
}
