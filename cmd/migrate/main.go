// Command migrate applies the embedded schema migrations to the configured
// database and exits.
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"subscriptions-go/internal/config"
	"subscriptions-go/internal/database"
	"subscriptions-go/internal/logging"
)

func main() {
	envErr := godotenv.Load()
	logger := logging.New("subscriptions-migrate", logging.ParseLevel(os.Getenv("LOG_LEVEL")), os.Stdout)

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.WithError(envErr).Fatal("Failed to read .env file")
	}

	settings, err := config.Load(config.DefaultDirectory)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read configuration")
	}

	logger.WithFields(map[string]interface{}{
		"host":          settings.Database.Host,
		"port":          settings.Database.Port,
		"database_name": settings.Database.DatabaseName,
	}).Info("Applying migrations")

	if err := database.Migrate(settings.Database.ConnectionString()); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	logger.Info("Database schema is up to date")
}
