package autobind

import (
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/autobind/binder"
	"github.com/dmitrymomot/autobind/pkg/cache"
	"github.com/dmitrymomot/autobind/pkg/config"
	"github.com/dmitrymomot/autobind/pkg/environment"
	"github.com/dmitrymomot/autobind/pkg/logger"
	"github.com/dmitrymomot/autobind/pkg/requestid"
	"github.com/dmitrymomot/autobind/pkg/signature"
)

// EnvPrefix is prepended to every variable read by LoadConfig.
const EnvPrefix = "AUTOBIND_"

// Config is the process-level configuration. Every field maps to an
// AUTOBIND_ variable; see LoadConfig.
type Config struct {
	Env     environment.Environment `env:"ENV" envDefault:"development"`
	Service string                  `env:"SERVICE" envDefault:"autobind"`

	// LogFormat and LogLevel override the environment preset when set.
	LogFormat logger.Format `env:"LOG_FORMAT"`
	LogLevel  string        `env:"LOG_LEVEL"`

	MaxMemory int64 `env:"MAX_MEMORY" envDefault:"10485760"`
	Metrics   bool  `env:"METRICS" envDefault:"true"`

	Prefixes signature.Prefixes
	Caches   CacheConfigs `envPrefix:"CACHE_"`
}

// CacheConfigs holds overrides for the well-known caches, e.g.
// AUTOBIND_CACHE_INSTANCES_TTL=30s. Unset values keep the stock
// configuration from cache.DefaultConfigs; a negative TTL disables expiry.
type CacheConfigs struct {
	Signatures   cache.Config `envPrefix:"SIGNATURES_"`
	Schemas      cache.Config `envPrefix:"SCHEMAS_"`
	Instances    cache.Config `envPrefix:"INSTANCES_"`
	ContentTypes cache.Config `envPrefix:"CONTENT_TYPES_"`
}

// Map merges the overrides onto the stock configuration.
func (c CacheConfigs) Map() map[string]cache.Config {
	out := cache.DefaultConfigs()
	for name, override := range map[string]cache.Config{
		cache.Signatures:   c.Signatures,
		cache.Schemas:      c.Schemas,
		cache.Instances:    c.Instances,
		cache.ContentTypes: c.ContentTypes,
	} {
		cfg := out[name]
		if override.MaxSize != 0 {
			cfg.MaxSize = override.MaxSize
		}
		if override.Policy != "" {
			cfg.Policy = override.Policy
		}
		switch {
		case override.TTL < 0:
			cfg.TTL = 0
		case override.TTL > 0:
			cfg.TTL = override.TTL
		}
		out[name] = cfg
	}
	return out
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.MaxMemory <= 0 {
		return fmt.Errorf("%w: max memory must be positive, got %d", ErrInvalidConfig, c.MaxMemory)
	}
	if _, err := c.level(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for name, cfg := range c.Caches.Map() {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: cache %q: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return l, nil
	}
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// DefaultConfig returns the configuration used when no variables are set.
func DefaultConfig() Config {
	return Config{
		Env:       environment.Development,
		Service:   "autobind",
		MaxMemory: binder.DefaultMaxMemory,
		Metrics:   true,
		Prefixes:  signature.DefaultPrefixes(),
	}
}

// LoadConfig reads AUTOBIND_ variables (and a .env file) into a Config and
// validates it.
//
//	AUTOBIND_ENV=production
//	AUTOBIND_LOG_LEVEL=debug
//	AUTOBIND_PREFIX_BODY=Payload
//	AUTOBIND_CACHE_INSTANCES_MAX_SIZE=4096
//	AUTOBIND_CACHE_INSTANCES_POLICY=lfu
func LoadConfig(opts ...config.Option) (Config, error) {
	var cfg Config
	opts = append([]config.Option{config.WithPrefix(EnvPrefix)}, opts...)
	if err := config.Load(&cfg, opts...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds the logger described by cfg: the environment preset,
// then any explicit format or level. Request IDs are added to records
// logged with a request context.
func NewLogger(cfg Config, opts ...logger.Option) *slog.Logger {
	base := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfg.LogFormat != "" {
		base = append(base, logger.WithFormat(cfg.LogFormat))
	}
	if cfg.LogLevel != "" {
		if l, err := cfg.level(); err == nil {
			base = append(base, logger.WithLevel(l))
		}
	}
	return logger.New(append(base, opts...)...)
}
