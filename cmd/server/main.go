package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	dapr "github.com/dapr/go-sdk/client"
	"github.com/joho/godotenv"

	"subscriptions-go/internal/app"
	"subscriptions-go/internal/config"
	"subscriptions-go/internal/database"
	"subscriptions-go/internal/logging"
	"subscriptions-go/internal/repository"
	"subscriptions-go/internal/telemetry"
)

const serviceName = "subscriptions-api"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	envErr := godotenv.Load()
	logger := logging.New(serviceName, logging.ParseLevel(os.Getenv("LOG_LEVEL")), os.Stdout)

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.WithError(envErr).Fatal("Failed to read .env file")
	}

	settings, err := config.Load(config.DefaultDirectory)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read configuration")
	}

	tp, err := telemetry.InitTracing(serviceName, version, os.Stderr)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize tracing")
	}
	defer func() {
		if err := telemetry.ShutdownTracing(context.Background(), tp); err != nil {
			logger.WithError(err).Error("Error shutting down tracer provider")
		}
	}()

	appConfig := &app.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Address:        settings.Application.Address(),
		Logger:         logger,
		TracerProvider: tp,
		GinMode:        ginMode(),
	}

	var pool *sql.DB
	switch settings.Store.Backend {
	case config.BackendPostgres:
		pool, err = database.Open(settings.Database)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create database pool")
		}
		defer pool.Close()
		appConfig.DB = pool
	case config.BackendDapr:
		client, err := dapr.NewClient()
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to dapr sidecar")
		}
		defer client.Close()
		appConfig.Repository = repository.NewDaprSubscriberRepository(client, settings.Store.DaprStateStore, tp)
	case config.BackendMemory:
		logger.Warn("Using in-memory store, subscriptions will not survive a restart")
		appConfig.Repository = repository.NewInMemorySubscriberRepository(tp)
	}

	application, err := app.Build(appConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build application")
	}

	errs := make(chan error, 1)
	go func() {
		errs <- application.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errs:
		if err != nil {
			logger.WithError(err).Error("Server stopped unexpectedly")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func ginMode() string {
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		return mode
	}
	return "release"
}
