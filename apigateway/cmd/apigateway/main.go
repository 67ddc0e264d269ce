package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/kit/log"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/taskapi/apigateway"
	authclient "github.com/ichigozero/taskapi/authsvc/client"
	"github.com/ichigozero/taskapi/config"
	taskclient "github.com/ichigozero/taskapi/tasksvc/client"
	userclient "github.com/ichigozero/taskapi/usersvc/client"
	"github.com/oklog/oklog/pkg/group"
)

func main() {
	cfg, err := config.LoadGateway("apigateway", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var client consulsd.Client
	{
		consulConfig := api.DefaultConfig()
		if len(cfg.ConsulAddr) > 0 {
			consulConfig.Address = cfg.ConsulAddr
		}
		consulClient, err := api.NewClient(consulConfig)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		client = consulsd.NewClient(consulClient)
	}

	authEndpoints, err := authclient.New(client, logger, cfg.RetryMax, cfg.RetryTimeout)
	if err != nil {
		logger.Log("service", authclient.ServiceName, "err", err)
		os.Exit(1)
	}
	userEndpoints, err := userclient.New(client, logger, cfg.RetryMax, cfg.RetryTimeout)
	if err != nil {
		logger.Log("service", userclient.ServiceName, "err", err)
		os.Exit(1)
	}
	taskEndpoints, err := taskclient.New(client, logger, cfg.RetryMax, cfg.RetryTimeout)
	if err != nil {
		logger.Log("service", taskclient.ServiceName, "err", err)
		os.Exit(1)
	}

	httpHandler := apigateway.NewHTTPHandler(authEndpoints, userEndpoints, taskEndpoints, logger)

	var g group.Group
	{
		httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			logger.Log("transport", "HTTP", "during", "Listen", "err", err)
			os.Exit(1)
		}
		g.Add(func() error {
			logger.Log("transport", "HTTP", "addr", cfg.HTTPAddr)
			return http.Serve(httpListener, httpHandler)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	logger.Log("exit", g.Run())
}
