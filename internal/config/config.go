// Package config defines the application configuration and its loader.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, the optional debug HTTP server,
// the mirror pipeline, and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP configures the debug server exposing metrics, pprof and run status
	// while a mirror run is in progress.
	HTTP struct {
		// Addr is the address and port the debug server listens on.
		// An empty address disables the server entirely.
		Addr string `env:"HTTP_ADDR" env-default:"" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body.
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers.
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response.
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header.
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed.
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Mirror contains the pipeline settings.
	Mirror struct {
		// ManifestPath is the artifact manifest read when the run command does
		// not pass an explicit --manifest flag.
		ManifestPath string `env:"MIRROR_MANIFEST" env-default:"manifest.yml" yaml:"manifestPath"`
		// Concurrency limits how many artifacts are processed at once.
		// Zero or negative means all artifacts in parallel.
		Concurrency int `env:"MIRROR_CONCURRENCY" env-default:"0" yaml:"concurrency"`
		// MaxRetries is the number of download retries per artifact after the
		// first attempt, for transient upstream failures.
		MaxRetries uint64 `env:"MIRROR_MAX_RETRIES" env-default:"3" yaml:"maxRetries"`
		// RetryBackoff is the initial delay between download retries.
		RetryBackoff time.Duration `env:"MIRROR_RETRY_BACKOFF" env-default:"2s" yaml:"retryBackoff"`
		// ZstdLevel is the zstd encoder level name: fastest, default, better or best.
		ZstdLevel string `env:"MIRROR_ZSTD_LEVEL" env-default:"best" yaml:"zstdLevel"`
		// ZstdConcurrency is the number of zstd encoder goroutines per
		// artifact. Zero means one per CPU.
		ZstdConcurrency int `env:"MIRROR_ZSTD_CONCURRENCY" env-default:"0" yaml:"zstdConcurrency"`
	} `yaml:"mirror"`

	// GracefulShutdownTimeout is the maximum duration to wait for the debug server
	// to drain when the run finishes or is interrupted.
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config
// struct. A missing config file is not an error: the tool usually runs inside
// a CI container configured purely through the environment.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("could not read config from environment: %w", err)
		}

		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
