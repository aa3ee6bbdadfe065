package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultDirectory is where the layered YAML files live, relative to the
	// working directory.
	DefaultDirectory = "configuration"
	// EnvironmentVariable selects the overlay file.
	EnvironmentVariable = "APP_ENVIRONMENT"
)

var ErrInvalidSettings = errors.New("invalid settings")

type Environment string

const (
	Local      Environment = "local"
	Production Environment = "production"
)

// ParseEnvironment accepts "local" or "production"; an empty value means local.
func ParseEnvironment(raw string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(Local):
		return Local, nil
	case string(Production):
		return Production, nil
	default:
		return "", fmt.Errorf("%w: %q is not a supported environment, use either `local` or `production`", ErrInvalidSettings, raw)
	}
}

const (
	BackendPostgres = "postgres"
	BackendDapr     = "dapr"
	BackendMemory   = "memory"
)

type Settings struct {
	Application ApplicationSettings `yaml:"application"`
	Database    DatabaseSettings    `yaml:"database"`
	Store       StoreSettings       `yaml:"store"`
}

type ApplicationSettings struct {
	Host string `yaml:"host" env:"APP_APPLICATION__HOST"`
	Port int    `yaml:"port" env:"APP_APPLICATION__PORT"`
}

// Address is the host:port the server listens on.
func (a ApplicationSettings) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

type DatabaseSettings struct {
	Username              string `yaml:"username" env:"APP_DATABASE__USERNAME"`
	Password              Secret `yaml:"password" env:"APP_DATABASE__PASSWORD"`
	Host                  string `yaml:"host" env:"APP_DATABASE__HOST"`
	Port                  int    `yaml:"port" env:"APP_DATABASE__PORT"`
	DatabaseName          string `yaml:"database_name" env:"APP_DATABASE__DATABASE_NAME"`
	RequireSSL            bool   `yaml:"require_ssl" env:"APP_DATABASE__REQUIRE_SSL"`
	MaxOpenConns          int    `yaml:"max_open_conns" env:"APP_DATABASE__MAX_OPEN_CONNS"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds" env:"APP_DATABASE__CONNECT_TIMEOUT_SECONDS"`
}

// ConnectionString addresses DatabaseName on the configured server.
func (d DatabaseSettings) ConnectionString() Secret {
	u := d.serverURL()
	u.Path = "/" + d.DatabaseName
	return NewSecret(u.String())
}

// ConnectionStringWithoutDB addresses the server only. It is used to create
// and drop databases.
func (d DatabaseSettings) ConnectionStringWithoutDB() Secret {
	return NewSecret(d.serverURL().String())
}

// WithDatabaseName returns a copy of the settings pointing at another database.
func (d DatabaseSettings) WithDatabaseName(name string) DatabaseSettings {
	d.DatabaseName = name
	return d
}

func (d DatabaseSettings) serverURL() *url.URL {
	// lib/pq has no "prefer" mode.
	sslMode := "disable"
	if d.RequireSSL {
		sslMode = "require"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if d.ConnectTimeoutSeconds > 0 {
		q.Set("connect_timeout", strconv.Itoa(d.ConnectTimeoutSeconds))
	}

	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password.Expose()),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		RawQuery: q.Encode(),
	}
}

type StoreSettings struct {
	Backend        string `yaml:"backend" env:"APP_STORE__BACKEND"`
	DaprStateStore string `yaml:"dapr_state_store" env:"APP_STORE__DAPR_STATE_STORE"`
}

// Validate reports every missing or malformed field at once.
func (s *Settings) Validate() error {
	var errs []error
	if s.Application.Port < 0 || s.Application.Port > 65535 {
		errs = append(errs, fmt.Errorf("application.port %d out of range", s.Application.Port))
	}
	if s.Database.Username == "" {
		errs = append(errs, errors.New("database.username is required"))
	}
	if s.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if s.Database.Port <= 0 || s.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("database.port %d out of range", s.Database.Port))
	}
	if s.Database.DatabaseName == "" {
		errs = append(errs, errors.New("database.database_name is required"))
	}
	switch s.Store.Backend {
	case BackendPostgres:
		if s.Database.Password.IsEmpty() {
			errs = append(errs, errors.New("database.password is required for the postgres backend"))
		}
	case BackendMemory:
	case BackendDapr:
		if s.Store.DaprStateStore == "" {
			errs = append(errs, errors.New("store.dapr_state_store is required for the dapr backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not supported", s.Store.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// Load reads the layered configuration for the environment named by
// APP_ENVIRONMENT.
func Load(dir string) (*Settings, error) {
	env, err := ParseEnvironment(os.Getenv(EnvironmentVariable))
	if err != nil {
		return nil, err
	}
	return LoadEnvironment(dir, env)
}

// LoadEnvironment merges base.yaml with <env>.yaml (the overlay wins) and then
// applies APP_* environment variables on top.
func LoadEnvironment(dir string, env Environment) (*Settings, error) {
	base, err := readLayer(filepath.Join(dir, "base.yaml"))
	if err != nil {
		return nil, err
	}
	overlay, err := readLayer(filepath.Join(dir, string(env)+".yaml"))
	if err != nil {
		return nil, err
	}

	merged, err := yaml.Marshal(mergeLayers(base, overlay))
	if err != nil {
		return nil, fmt.Errorf("failed to merge configuration layers: %w", err)
	}

	settings := defaults()
	if err := yaml.Unmarshal(merged, &settings); err != nil {
		return nil, fmt.Errorf("%w: failed to decode configuration: %w", ErrInvalidSettings, err)
	}

	if err := envdecode.Decode(&settings); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("%w: failed to apply environment overrides: %w", ErrInvalidSettings, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func defaults() Settings {
	return Settings{
		Application: ApplicationSettings{Host: "127.0.0.1", Port: 8000},
		Database: DatabaseSettings{
			Port:                  5432,
			MaxOpenConns:          10,
			ConnectTimeoutSeconds: 2,
		},
		Store: StoreSettings{Backend: BackendPostgres},
	}
}

func readLayer(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	layer := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidSettings, filepath.Base(path), err)
	}
	return layer, nil
}

// mergeLayers deep-merges overlay into base. Nested mappings merge key by key;
// any other overlay value replaces the base value.
func mergeLayers(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		baseMap, baseIsMap := out[k].(map[string]interface{})
		overlayMap, overlayIsMap := v.(map[string]interface{})
		if baseIsMap && overlayIsMap {
			out[k] = mergeLayers(baseMap, overlayMap)
			continue
		}
		out[k] = v
	}
	return out
}
