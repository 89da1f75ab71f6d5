package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/shyndaliu/saga/pkg/config"
	"github.com/shyndaliu/saga/pkg/tracing"
)

// Config holds all configuration for the checkout saga service.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Saga execution
	UnitPrice          int64         `env:"UNIT_PRICE" envDefault:"10"`
	ShippingTimeout    time.Duration `env:"SHIPPING_TIMEOUT" envDefault:"5s"`
	SagaMaxConcurrent  int64         `env:"SAGA_MAX_CONCURRENT" envDefault:"64"`
	SagaAcquireTimeout time.Duration `env:"SAGA_ACQUIRE_TIMEOUT" envDefault:"2s"`
	SeedDemoData       bool          `env:"SEED_DEMO_DATA" envDefault:"true"`

	// Finished saga records kept for inspection. Running sagas are always kept.
	SagaRunRetention   time.Duration `env:"SAGA_RUN_RETENTION" envDefault:"1h"`
	SagaRunMaxRetained int           `env:"SAGA_RUN_MAX_RETAINED" envDefault:"10000"`

	// Per-client limit on the checkout trigger. A zero rate disables it.
	CheckoutRateLimitRPS   float64 `env:"CHECKOUT_RATE_LIMIT_RPS" envDefault:"0"`
	CheckoutRateLimitBurst int     `env:"CHECKOUT_RATE_LIMIT_BURST" envDefault:"20"`

	// Shipping collaborator. An empty URL selects the in-process simulation.
	ShippingLatency    time.Duration `env:"SHIPPING_LATENCY" envDefault:"1s"`
	ShippingServiceURL string        `env:"SHIPPING_SERVICE_URL"`

	// Circuit breaker settings for the shipping service
	CBMaxRequests  uint32        `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     time.Duration `env:"CB_INTERVAL" envDefault:"60s"`
	CBTimeout      time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	CBFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Kafka. Disabled by default; events are then dropped.
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	Tracing tracing.Config
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load checkout saga config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.UnitPrice < 0 {
		return fmt.Errorf("UNIT_PRICE must not be negative, got %d", c.UnitPrice)
	}
	if c.ShippingTimeout <= 0 {
		return fmt.Errorf("SHIPPING_TIMEOUT must be positive, got %s", c.ShippingTimeout)
	}
	if c.ShippingLatency < 0 {
		return fmt.Errorf("SHIPPING_LATENCY must not be negative, got %s", c.ShippingLatency)
	}
	if c.SagaMaxConcurrent < 1 {
		return fmt.Errorf("SAGA_MAX_CONCURRENT must be at least 1, got %d", c.SagaMaxConcurrent)
	}
	if c.SagaAcquireTimeout < 0 {
		return fmt.Errorf("SAGA_ACQUIRE_TIMEOUT must not be negative, got %s", c.SagaAcquireTimeout)
	}
	if c.SagaRunRetention < 0 {
		return fmt.Errorf("SAGA_RUN_RETENTION must not be negative, got %s", c.SagaRunRetention)
	}
	if c.SagaRunMaxRetained < 1 {
		return fmt.Errorf("SAGA_RUN_MAX_RETAINED must be at least 1, got %d", c.SagaRunMaxRetained)
	}
	if c.CheckoutRateLimitRPS < 0 {
		return fmt.Errorf("CHECKOUT_RATE_LIMIT_RPS must not be negative, got %f", c.CheckoutRateLimitRPS)
	}
	if c.CheckoutRateLimitRPS > 0 && c.CheckoutRateLimitBurst < 1 {
		return fmt.Errorf("CHECKOUT_RATE_LIMIT_BURST must be at least 1, got %d", c.CheckoutRateLimitBurst)
	}
	if c.ShippingServiceURL != "" {
		if _, err := url.ParseRequestURI(c.ShippingServiceURL); err != nil {
			return fmt.Errorf("invalid SHIPPING_SERVICE_URL %q: %w", c.ShippingServiceURL, err)
		}
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0.0, 1.0], got %f", c.CBFailureRatio)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	return nil
}
