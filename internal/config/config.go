// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	// Embedded zone database so TIMEZONE resolves on minimal images.
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Store drivers selectable through STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds all configuration values for the API server and the ingest CLI.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// StoreDriver selects the record store: postgres (default), mongo or memory.
	StoreDriver string

	// DatabaseURL is the Postgres connection string. Required for postgres.
	DatabaseURL string

	// MongoURI and MongoDatabase locate the MongoDB store. Required for mongo.
	MongoURI      string
	MongoDatabase string

	// GoogleServiceAccountJSON is a path to a service account key file.
	// Spreadsheet import is disabled when empty.
	GoogleServiceAccountJSON string

	// MaxUploadBytes bounds upload request bodies. Defaults to 10 MiB.
	MaxUploadBytes int64

	SearchDebounce time.Duration
	ViewTTL        time.Duration

	// Location is used to read survey timestamps that carry no zone.
	// Defaults to Asia/Taipei.
	Location *time.Location

	// MigrateOnStart applies pending Postgres migrations before serving.
	MigrateOnStart bool
}

// Load reads configuration from environment variables and returns a Config.
// Variables may also come from the file named by ENV_FILE (default ".env");
// real environment variables win over the file and a missing file is fine.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	if err := loadEnvFile(getEnv("ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		CORSOrigins:              splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		StoreDriver:              strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		MongoURI:                 os.Getenv("MONGO_URI"),
		MongoDatabase:            os.Getenv("MONGO_DATABASE"),
		GoogleServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
	}

	var missing, invalid []string

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			missing = append(missing, "MONGO_URI")
		}
		if cfg.MongoDatabase == "" {
			missing = append(missing, "MONGO_DATABASE")
		}
	case DriverMemory:
	default:
		invalid = append(invalid, "STORE_DRIVER")
	}

	var err error
	if cfg.MaxUploadBytes, err = strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64); err != nil || cfg.MaxUploadBytes <= 0 {
		invalid = append(invalid, "MAX_UPLOAD_BYTES")
	}
	if cfg.SearchDebounce, err = time.ParseDuration(getEnv("SEARCH_DEBOUNCE", "300ms")); err != nil || cfg.SearchDebounce < 0 {
		invalid = append(invalid, "SEARCH_DEBOUNCE")
	}
	if cfg.ViewTTL, err = time.ParseDuration(getEnv("VIEW_TTL", "30m")); err != nil || cfg.ViewTTL <= 0 {
		invalid = append(invalid, "VIEW_TTL")
	}
	if cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "Asia/Taipei")); err != nil {
		invalid = append(invalid, "TIMEZONE")
	}
	if cfg.MigrateOnStart, err = strconv.ParseBool(getEnv("MIGRATE_ON_START", "true")); err != nil {
		invalid = append(invalid, "MIGRATE_ON_START")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// loadEnvFile seeds unset variables from a dotenv file.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("config.Load: reading %s: %w", path, err)
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
