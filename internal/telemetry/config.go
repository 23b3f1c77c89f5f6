// Package telemetry exports experiment metrics to an OpenTelemetry
// collector.
//
// Metrics are off by default. When COGTASK_OTEL_ENABLED is set and an
// endpoint is configured, Open returns an Exporter; otherwise it returns
// NoOp so callers never branch on configuration.
package telemetry

import "github.com/kelseyhightower/envconfig"

// Config holds OTEL exporter configuration.
type Config struct {
	Enabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint string `envconfig:"OTEL_ENDPOINT"`
	Insecure bool   `envconfig:"OTEL_INSECURE" default:"false"`
}

// EnvPrefix is prepended to every variable name (COGTASK_OTEL_ENABLED, ...).
const EnvPrefix = "COGTASK"

// LoadConfig loads configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
