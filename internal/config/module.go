package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Store     StoreConfig     `yaml:"store"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Workflows WorkflowsConfig `yaml:"workflows"`
	Auth      AuthConfig      `yaml:"auth"`
	Events    EventsConfig    `yaml:"events"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type GRPCConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type CatalogConfig struct {
	PerTier int `yaml:"per_tier"`
}

type WorkflowsConfig struct {
	DefaultHealthScore  int  `yaml:"default_health_score"`
	EnforceStepSequence bool `yaml:"enforce_step_sequence"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type EventsConfig struct {
	AuditURL    string `yaml:"audit_url"`
	EventBusURL string `yaml:"event_bus_url"`
	Timeout     string `yaml:"timeout"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	// Interval between metric exports, as a Go duration.
	Interval string `yaml:"interval"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	SinkURL     string `yaml:"sink_url"`
	SinkAPIKey  string `yaml:"sink_api_key"`
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8100,
		},
		GRPC: GRPCConfig{
			Host: "0.0.0.0",
			Port: 9114,
		},
		Store: StoreConfig{
			Driver: StoreMemory,
		},
		Catalog: CatalogConfig{
			PerTier: 120,
		},
		Workflows: WorkflowsConfig{
			DefaultHealthScore:  85,
			EnforceStepSequence: true,
		},
		Auth: AuthConfig{
			Issuer: "flowdesk",
		},
		Events: EventsConfig{
			Timeout: "5s",
		},
		Telemetry: TelemetryConfig{
			Endpoint: "otel-collector:4317",
			Interval: "15s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("APP_HTTP_HOST")); v != "" {
		cfg.Server.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_HTTP_PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("APP_GRPC_HOST")); v != "" {
		cfg.GRPC.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_GRPC_PORT")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.GRPC.Port = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("APP_STORE_DRIVER")); v != "" {
		cfg.Store.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Store.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_CATALOG_PER_TIER")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Catalog.PerTier = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("APP_JWT_SECRET")); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_AUDIT_URL")); v != "" {
		cfg.Events.AuditURL = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_EVENT_BUS_URL")); v != "" {
		cfg.Events.EventBusURL = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		cfg.Telemetry.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_ENV")); v != "" {
		cfg.Telemetry.Environment = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		cfg.Telemetry.Version = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_TELEMETRY_ENABLED")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Enabled = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("APP_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("METRIC_SERVICE_BASE_URL")); v != "" {
		cfg.Logging.SinkURL = v
	}
	if v := strings.TrimSpace(os.Getenv("METRIC_SERVICE_API_KEY")); v != "" {
		cfg.Logging.SinkAPIKey = v
	}

	return cfg, nil
}

func Module(path string) fx.Option {
	return fx.Provide(func() (Config, error) {
		return Load(path)
	})
}
