package autobind

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/autobind/handler"
	"github.com/dmitrymomot/autobind/pkg/cache"
)

// ErrInvalidConfig is returned for configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid autobind configuration")

// Option configures New.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	tracer     trace.TracerProvider
	binderOpts []handler.BinderOption
}

// WithLogger replaces the logger built from Config.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegisterer sets where cache metrics are registered. Defaults to
// prometheus.DefaultRegisterer. Collectors can be registered only once per
// registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		if reg != nil {
			o.registerer = reg
		}
	}
}

// WithTracerProvider sets the provider for bind spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp
		}
	}
}

// WithBinderOptions passes extra options to handler.NewBinder. They are
// applied after the ones derived from Config.
func WithBinderOptions(opts ...handler.BinderOption) Option {
	return func(o *options) {
		o.binderOpts = append(o.binderOpts, opts...)
	}
}

// New validates cfg and builds a Binder with its own cache registry.
//
//	cfg, err := autobind.LoadConfig()
//	if err != nil {
//		return err
//	}
//	b, err := autobind.New(cfg)
//	if err != nil {
//		return err
//	}
//	r.Post("/users", handler.Wrap(createUser, handler.WithBinder[handler.Context, CreateUser](b)))
func New(cfg Config, opts ...Option) (*handler.Binder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = NewLogger(cfg)
	}

	regOpts := []cache.RegistryOption{cache.WithConfigs(cfg.Caches.Map())}
	if cfg.Metrics {
		m, err := newMetrics(o.registerer)
		if err != nil {
			return nil, err
		}
		regOpts = append(regOpts, cache.WithRegistryMetrics(m))
	}
	reg, err := cache.NewRegistry(regOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	binderOpts := []handler.BinderOption{
		handler.WithRegistry(reg),
		handler.WithPrefixes(cfg.Prefixes),
		handler.WithMaxMemory(cfg.MaxMemory),
		handler.WithLogger(o.logger),
	}
	if o.tracer != nil {
		binderOpts = append(binderOpts, handler.WithTracerProvider(o.tracer))
	}
	return handler.NewBinder(append(binderOpts, o.binderOpts...)...), nil
}

// newMetrics turns promauto's registration panic into an error.
func newMetrics(reg prometheus.Registerer) (m *cache.Metrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("register cache metrics: %v", r)
		}
	}()
	return cache.NewMetricsWithRegistry(reg), nil
}
