// Package config loads server configuration from the environment under
// the CALC_ prefix, with defaults embedded in the struct tags.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Transport selects how the server talks to clients.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Config holds everything the embedding process supplies at startup.
type Config struct {
	// Transport is "stdio" (default) or "sse".
	Transport string `default:"stdio"`

	// ListenAddr is the HTTP bind address for the SSE transport.
	ListenAddr string `split_words:"true" default:":8080"`

	// SessionTimeout is how long a session may stay idle before the
	// sweep evicts it.
	SessionTimeout time.Duration `split_words:"true" default:"30m"`

	// SweepInterval is how often the eviction sweep runs.
	SweepInterval time.Duration `split_words:"true" default:"60s"`

	// MetricsAddr is the bind address for the Prometheus endpoint.
	// Empty disables metrics serving.
	MetricsAddr string `split_words:"true"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `split_words:"true" default:"info"`
}

// Load reads configuration from the environment (CALC_TRANSPORT,
// CALC_SESSION_TIMEOUT, ...) and validates it.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("calc", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if c.Transport != TransportStdio && c.Transport != TransportSSE {
		return Config{}, fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	if c.SessionTimeout <= 0 {
		return Config{}, fmt.Errorf("config: session timeout must be positive, got %s", c.SessionTimeout)
	}
	if c.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("config: sweep interval must be positive, got %s", c.SweepInterval)
	}
	return c, nil
}
