// Package config loads the routing configuration of the fallback tool from
// a YAML file, resolving credential secrets from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jzx17/gofallback/pkg/retry"
	"github.com/jzx17/gofallback/pkg/types"
)

// Defaults applied when the file leaves a field unset
const (
	DefaultPrimaryBaseURL   = "https://openrouter.ai/api/v1"
	DefaultSecondaryBaseURL = "https://router.huggingface.co/v1"
	DefaultRequestTimeout   = 60 * time.Second
	DefaultBatchWorkers     = 4
)

// Config is the complete configuration of the tool
type Config struct {
	Retry          RetryConfig         `yaml:"retry"`
	RequestTimeout time.Duration       `yaml:"request_timeout" validate:"gte=0"`
	BatchWorkers   int                 `yaml:"batch_workers" validate:"gte=0"`
	RateLimit      RateLimitConfig     `yaml:"rate_limit"`
	Primary        PrimaryConfig       `yaml:"primary"`
	Secondary      SecondaryConfig     `yaml:"secondary"`
	Targets        map[string][]string `yaml:"targets" validate:"required,min=1,dive,keys,required,endkeys,min=1,dive,required"`
}

// RetryConfig selects the per-node wait sequence. Waits wins over Backoff.
type RetryConfig struct {
	Waits         []time.Duration `yaml:"waits" validate:"dive,gte=0"`
	Backoff       *BackoffConfig  `yaml:"backoff"`
	RetryAfterCap time.Duration   `yaml:"retry_after_cap" validate:"gte=0"`
}

// BackoffConfig generates a wait sequence instead of listing it
type BackoffConfig struct {
	Strategy   string        `yaml:"strategy" validate:"omitempty,oneof=fixed exponential linear fibonacci"`
	Retries    int           `yaml:"retries" validate:"gte=0"`
	Initial    time.Duration `yaml:"initial" validate:"gte=0"`
	Increment  time.Duration `yaml:"increment" validate:"gte=0"`
	Multiplier float64       `yaml:"multiplier" validate:"gte=0"`
	MaxDelay   time.Duration `yaml:"max_delay" validate:"gte=0"`
}

// RateLimitConfig is the client-side limit applied per credential
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

// PrimaryConfig is the primary provider and its credentials
type PrimaryConfig struct {
	Provider    string             `yaml:"provider" validate:"required"`
	BaseURL     string             `yaml:"base_url" validate:"omitempty,url"`
	Credentials []CredentialConfig `yaml:"credentials" validate:"dive"`
}

// SecondaryConfig is the secondary provider class
type SecondaryConfig struct {
	BaseURL     string             `yaml:"base_url" validate:"omitempty,url"`
	Credentials []CredentialConfig `yaml:"credentials" validate:"dive"`
}

// CredentialConfig names a credential and the environment variable holding
// its secret. Providers is required for secondary credentials.
type CredentialConfig struct {
	Name      string   `yaml:"name" validate:"required"`
	Env       string   `yaml:"env" validate:"required"`
	Providers []string `yaml:"providers" validate:"dive,required"`

	secret string
}

// Secret returns the resolved secret
func (c CredentialConfig) Secret() string {
	return c.secret
}

// Load reads, resolves and validates the configuration at path. A .env file
// in the working directory is loaded first when present; variables already
// set in the environment take precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, os.LookupEnv)
}

// Parse decodes data, resolves secrets with lookup and validates the result
func Parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.resolveSecrets(lookup); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.BatchWorkers == 0 {
		c.BatchWorkers = DefaultBatchWorkers
	}
	if c.Primary.BaseURL == "" {
		c.Primary.BaseURL = DefaultPrimaryBaseURL
	}
	if c.Secondary.BaseURL == "" {
		c.Secondary.BaseURL = DefaultSecondaryBaseURL
	}
}

// Validate checks struct tags and the cross-field rules tags cannot express
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	var errs []error
	seen := make(map[string]bool)
	for _, cred := range c.Primary.Credentials {
		if seen[cred.Name] {
			errs = append(errs, fmt.Errorf("duplicate credential name %q", cred.Name))
		}
		seen[cred.Name] = true
	}
	for _, cred := range c.Secondary.Credentials {
		if seen[cred.Name] {
			errs = append(errs, fmt.Errorf("duplicate credential name %q", cred.Name))
		}
		seen[cred.Name] = true
		if len(cred.Providers) == 0 {
			errs = append(errs, fmt.Errorf("secondary credential %q lists no providers", cred.Name))
		}
	}

	if c.Retry.Backoff != nil && len(c.Retry.Waits) == 0 {
		if _, err := c.backoff().Waits(); err != nil {
			errs = append(errs, fmt.Errorf("retry backoff: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) resolveSecrets(lookup func(string) (string, bool)) error {
	var missing []string
	resolve := func(creds []CredentialConfig) {
		for i := range creds {
			secret, ok := lookup(creds[i].Env)
			if !ok || strings.TrimSpace(secret) == "" {
				missing = append(missing, fmt.Sprintf("%s (%s)", creds[i].Name, creds[i].Env))
				continue
			}
			creds[i].secret = secret
		}
	}
	resolve(c.Primary.Credentials)
	resolve(c.Secondary.Credentials)

	if len(missing) > 0 {
		return fmt.Errorf("missing secrets for credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) backoff() retry.Backoff {
	b := c.Retry.Backoff
	return retry.Backoff{
		Strategy:   b.Strategy,
		Retries:    b.Retries,
		Initial:    b.Initial,
		Increment:  b.Increment,
		Multiplier: b.Multiplier,
		MaxDelay:   b.MaxDelay,
	}
}

// Waits returns the configured wait sequence, falling back to retry.DefaultWaits
func (c *Config) Waits() []time.Duration {
	if len(c.Retry.Waits) > 0 {
		return append([]time.Duration(nil), c.Retry.Waits...)
	}
	if c.Retry.Backoff != nil {
		// validated at load
		waits, _ := c.backoff().Waits()
		return waits
	}
	return append([]time.Duration(nil), retry.DefaultWaits...)
}

// Routing converts the configuration into the immutable routing model
func (c *Config) Routing() *types.Routing {
	routing := &types.Routing{
		Targets: make(map[string][]string, len(c.Targets)),
		Primary: types.PrimaryClass{Provider: c.Primary.Provider},
		Waits:   c.Waits(),
	}
	for target, providers := range c.Targets {
		routing.Targets[target] = append([]string(nil), providers...)
	}
	for _, cred := range c.Primary.Credentials {
		routing.Primary.Credentials = append(routing.Primary.Credentials, types.Credential{
			Name:      cred.Name,
			Secret:    cred.secret,
			Class:     types.ClassPrimary,
			Providers: []string{c.Primary.Provider},
		})
	}
	for _, cred := range c.Secondary.Credentials {
		routing.Secondary = append(routing.Secondary, types.Credential{
			Name:      cred.Name,
			Secret:    cred.secret,
			Class:     types.ClassSecondary,
			Providers: append([]string(nil), cred.Providers...),
		})
	}
	return routing
}
