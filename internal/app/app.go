package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"subscriptions-go/internal/handlers"
	"subscriptions-go/internal/logging"
	"subscriptions-go/internal/repository"
	"subscriptions-go/internal/service"
	"subscriptions-go/internal/telemetry"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	// Address is used when Listener is nil.
	Address string
	// Listener lets tests bind 127.0.0.1:0 and read the port back.
	Listener       net.Listener
	Logger         *logging.ContextLogger
	TracerProvider trace.TracerProvider
	GinMode        string
	// DB is the shared pool. It is wrapped in a Postgres repository unless
	// Repository is set.
	DB         *sql.DB
	Repository repository.SubscriberRepository
}

type Application struct {
	server   *http.Server
	listener net.Listener
	config   *Config
	repo     repository.SubscriberRepository
}

// Build binds the listener and wires the routes. The repository, and the pool
// behind it, is handed to the handler here and never replaced.
func Build(config *Config) (*Application, error) {
	if config.Logger == nil {
		return nil, errors.New("app: logger is required")
	}
	if config.TracerProvider == nil {
		return nil, errors.New("app: tracer provider is required")
	}
	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	}

	var repo repository.SubscriberRepository
	switch {
	case config.Repository != nil:
		repo = config.Repository
	case config.DB != nil:
		repo = repository.NewPostgresSubscriberRepository(config.DB, config.TracerProvider)
	default:
		repo = repository.NewInMemorySubscriberRepository(config.TracerProvider)
	}

	subscriberService := service.NewSubscriberService(repo, config.Logger, config.TracerProvider)
	subscriberHandler := handlers.NewSubscriberHandler(subscriberService, config.Logger, config.TracerProvider)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(config.ServiceName,
		otelgin.WithTracerProvider(config.TracerProvider),
		otelgin.WithPropagators(telemetry.Propagator()),
	))
	router.Use(requestID())
	router.Use(accessLog(config.Logger))

	router.GET("/health_check", handlers.HealthCheck)
	router.POST("/subscriptions", subscriberHandler.Subscribe)

	listener := config.Listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", config.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", config.Address, err)
		}
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Application{
		server:   server,
		listener: listener,
		config:   config,
		repo:     repo,
	}, nil
}

// Run serves until Shutdown is called.
func (app *Application) Run() error {
	app.config.Logger.WithField("address", app.Addr()).Info("Starting server")
	if err := app.server.Serve(app.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.config.Logger.Info("Shutting down server...")
	return app.server.Shutdown(ctx)
}

// Addr is the address the listener is bound to.
func (app *Application) Addr() string {
	return app.listener.Addr().String()
}

func (app *Application) Port() int {
	if tcp, ok := app.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

func (app *Application) GetRepo() repository.SubscriberRepository {
	return app.repo
}
