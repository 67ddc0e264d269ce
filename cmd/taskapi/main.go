package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-kit/kit/log"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/taskapi/apigateway"
	authclient "github.com/ichigozero/taskapi/authsvc/client"
	"github.com/ichigozero/taskapi/authsvc/pkg/authendpoint"
	"github.com/ichigozero/taskapi/authsvc/pkg/authservice"
	"github.com/ichigozero/taskapi/config"
	"github.com/ichigozero/taskapi/tasksvc"
	taskclient "github.com/ichigozero/taskapi/tasksvc/client"
	taskgorm "github.com/ichigozero/taskapi/tasksvc/db/gorm"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/taskapi/tasksvc/pkg/taskservice"
	"github.com/ichigozero/taskapi/usersvc"
	userclient "github.com/ichigozero/taskapi/usersvc/client"
	usergorm "github.com/ichigozero/taskapi/usersvc/db/gorm"
	"github.com/ichigozero/taskapi/usersvc/pkg/userendpoint"
	"github.com/ichigozero/taskapi/usersvc/pkg/userservice"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/twinj/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
)

func main() {
	cfg, err := config.Load("taskapi", os.Args[1:])
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

	var db *libgorm.DB
	{
		gormConfig := &libgorm.Config{TranslateError: true}
		if cfg.DatabaseURL != "" {
			db, err = libgorm.Open(postgres.Open(cfg.DatabaseURL), gormConfig)
		} else {
			db, err = libgorm.Open(sqlite.Open(cfg.SQLitePath), gormConfig)
		}
		if err != nil {
			logger.Log("during", "Open", "err", err)
			os.Exit(1)
		}
		if err := db.AutoMigrate(&usersvc.User{}, &tasksvc.Task{}); err != nil {
			logger.Log("during", "AutoMigrate", "err", err)
			os.Exit(1)
		}
	}

	users := usergorm.NewUserRepository(db)

	var authService authservice.Service
	{
		authService = authservice.New(
			users,
			authservice.NewPasswordHasher(cfg.BcryptCost),
			authservice.NewTokenCodec([]byte(cfg.TokenSecret), cfg.TokenTTL),
			logger,
		)
		authService = authservice.InstrumentingMiddleware(
			requestCount("auth_service"),
			requestLatency("auth_service"),
		)(authService)
	}

	var userService userservice.Service
	{
		userService = userservice.New(users, logger)
		userService = userservice.InstrumentingMiddleware(
			requestCount("user_service"),
			requestLatency("user_service"),
		)(userService)
	}

	var taskService taskservice.Service
	{
		taskService = taskservice.New(taskgorm.NewTaskRepository(db), logger)
		taskService = taskservice.InstrumentingMiddleware(
			requestCount("task_service"),
			requestLatency("task_service"),
		)(taskService)
	}

	httpHandler := apigateway.NewHTTPHandler(
		authendpoint.New(authService, logger),
		userendpoint.New(userService, logger),
		taskendpoint.New(taskService, logger),
		logger,
	)

	// Every service is served from this process, so one address is
	// registered under each service name.
	if cfg.ConsulAddr != "" {
		registrars, err := register(cfg, logger)
		if err != nil {
			logger.Log("during", "Register", "err", err)
			os.Exit(1)
		}
		defer func() {
			for _, r := range registrars {
				r.Deregister()
			}
		}()
	}

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

func requestCount(subsystem string) *kitprometheus.Counter {
	return kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "api",
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method", "success"})
}

func requestLatency(subsystem string) *kitprometheus.Summary {
	return kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: "api",
		Subsystem: subsystem,
		Name:      "request_latency_seconds",
		Help:      "Total duration of requests in seconds.",
	}, []string{"method"})
}

func register(cfg config.Config, logger log.Logger) ([]*consulsd.Registrar, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.ConsulAddr
	consulClient, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, err
	}

	host, port, err := net.SplitHostPort(cfg.HTTPAddr)
	if err != nil {
		return nil, err
	}
	if host == "" {
		host = "localhost"
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, err
	}

	client := consulsd.NewClient(consulClient)

	var registrars []*consulsd.Registrar
	for _, name := range []string{authclient.ServiceName, userclient.ServiceName, taskclient.ServiceName} {
		asr := &api.AgentServiceRegistration{
			ID:      uuid.NewV4().String(),
			Name:    name,
			Address: host,
			Port:    p,
		}
		registrar := consulsd.NewRegistrar(client, asr, log.With(logger, "service", name))
		registrar.Register()
		registrars = append(registrars, registrar)
	}
	return registrars, nil
}
