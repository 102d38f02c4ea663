// Package config collects the settings shared by the simulator executables.
// Values come from defaults, then DNAREPAIR_* environment variables, then
// command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/signalsfoundry/dna-repair-sim/internal/observability"
	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/model"
)

// Config holds runtime settings for a session and its surfaces.
type Config struct {
	// Reference is the strand the session starts from.
	Reference string
	// ResetDelay is how long a successful repair stays visible.
	ResetDelay time.Duration
	// Tick is the time-controller step that drives deferred resets.
	Tick time.Duration
	// Seed fixes the mutation generator; 0 seeds from the clock.
	Seed int64

	GRPCAddr    string
	MetricsAddr string

	LogLevel  string
	LogFormat string

	Tracing observability.TracingConfig
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Reference:   state.DefaultReference,
		ResetDelay:  state.DefaultResetDelay,
		Tick:        100 * time.Millisecond,
		GRPCAddr:    ":50061",
		MetricsAddr: ":9091",
		LogLevel:    "info",
		LogFormat:   "text",
		Tracing:     observability.DefaultTracingConfig(),
	}
}

// FromEnv overlays DNAREPAIR_* environment variables on Default. Unparseable
// values are reported rather than ignored.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	if v := os.Getenv("DNAREPAIR_REFERENCE"); v != "" {
		cfg.Reference = v
	}
	if v := os.Getenv("DNAREPAIR_RESET_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DNAREPAIR_RESET_DELAY: %w", err))
		} else {
			cfg.ResetDelay = d
		}
	}
	if v := os.Getenv("DNAREPAIR_TICK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DNAREPAIR_TICK: %w", err))
		} else {
			cfg.Tick = d
		}
	}
	if v := os.Getenv("DNAREPAIR_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("DNAREPAIR_SEED: %w", err))
		} else {
			cfg.Seed = n
		}
	}
	if v := os.Getenv("DNAREPAIR_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("DNAREPAIR_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("DNAREPAIR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DNAREPAIR_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	cfg.Tracing = observability.TracingConfigFromEnv()

	return cfg, errors.Join(errs...)
}

// BindFlags registers flags on fs that override the fields of c.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Reference, "reference", c.Reference, "reference strand (A/T/C/G)")
	fs.DurationVar(&c.ResetDelay, "reset-delay", c.ResetDelay, "how long a successful repair stays on display")
	fs.DurationVar(&c.Tick, "tick", c.Tick, "time-controller step that drives deferred resets")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "mutation generator seed (0 = time-based)")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "TCP address the session gRPC server listens on")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "HTTP address for Prometheus /metrics (empty disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
	fs.BoolVar(&c.Tracing.Enabled, "tracing", c.Tracing.Enabled, "enable OpenTelemetry tracing")
	fs.StringVar(&c.Tracing.Exporter, "tracing-exporter", c.Tracing.Exporter, "tracing exporter: stdout or otlp")
}

// ApplyDefaults replaces zero or negative durations with their defaults.
func (c Config) ApplyDefaults() Config {
	def := Default()
	if c.Reference == "" {
		c.Reference = def.Reference
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = def.ResetDelay
	}
	if c.Tick <= 0 {
		c.Tick = def.Tick
	}
	return c
}

// Validate checks the reference strand and timing.
func (c Config) Validate() error {
	ref, err := model.ParseSequence(c.Reference)
	if err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if !ref.Valid() {
		return fmt.Errorf("reference %q: %w", ref.String(), model.ErrInvalidBase)
	}
	if c.ResetDelay <= 0 {
		return fmt.Errorf("reset delay must be positive, got %s", c.ResetDelay)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.Tick > c.ResetDelay {
		return fmt.Errorf("tick %s exceeds reset delay %s", c.Tick, c.ResetDelay)
	}
	return nil
}

// ReferenceSequence parses Reference.
func (c Config) ReferenceSequence() (model.Sequence, error) {
	return model.ParseSequence(c.Reference)
}
