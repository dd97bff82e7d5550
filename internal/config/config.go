// Package config loads runtime settings from the Lambda environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Handler kinds selectable through DOMAINCTL_HANDLER or the --handler flag.
const (
	HandlerCertificateValidation = "certificate-validation"
	HandlerCustomDomain          = "custom-domain"
)

// Config holds every tunable of a handler process.
type Config struct {
	Handler   string `env:"DOMAINCTL_HANDLER"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Region    string `env:"AWS_REGION"`

	RetryAttempts      int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	AssociateBaseDelay time.Duration `env:"ASSOCIATE_BASE_DELAY" envDefault:"2s"`
	ChallengeBaseDelay time.Duration `env:"CHALLENGE_BASE_DELAY" envDefault:"1s"`
	CallbackTimeout    time.Duration `env:"CALLBACK_TIMEOUT" envDefault:"30s"`

	// Suppressed cleanup errors are published here when set.
	AuditTopicARN        string `env:"AUDIT_TOPIC_ARN"`
	AuditMetricNamespace string `env:"AUDIT_METRIC_NAMESPACE"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. The handler kind is checked separately
// because the CLI may supply it through a flag.
func (c *Config) Validate() error {
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	}
	if c.AssociateBaseDelay < 0 || c.ChallengeBaseDelay < 0 {
		return fmt.Errorf("retry base delays must not be negative")
	}
	if c.CallbackTimeout <= 0 {
		return fmt.Errorf("CALLBACK_TIMEOUT must be positive, got %s", c.CallbackTimeout)
	}
	return nil
}

// ValidateHandler reports whether kind names a known handler.
func ValidateHandler(kind string) error {
	switch kind {
	case HandlerCertificateValidation, HandlerCustomDomain:
		return nil
	case "":
		return fmt.Errorf("no handler selected: set DOMAINCTL_HANDLER or pass --handler")
	default:
		return fmt.Errorf("unknown handler %q (expected %s or %s)", kind, HandlerCertificateValidation, HandlerCustomDomain)
	}
}
