package cache

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// Well-known cache names used by the binding pipeline.
const (
	Signatures   = "signatures"    // (reflect.Type, prefixes) -> parameter map
	Schemas      = "schemas"       // reflect.Type -> model schema
	Instances    = "instances"     // fingerprint -> materialized instance
	ContentTypes = "content_types" // raw header -> parsed media type
)

// DefaultConfig applies to names with no explicit configuration.
var DefaultConfig = Config{MaxSize: 256, Policy: PolicyLRU}

// DefaultConfigs returns the stock configuration for the well-known caches.
func DefaultConfigs() map[string]Config {
	return map[string]Config{
		Signatures:   {MaxSize: 512, Policy: PolicyLRU},
		Schemas:      {MaxSize: 512, Policy: PolicyLRU},
		Instances:    {MaxSize: 1024, Policy: PolicyLRU, TTL: 5 * time.Minute},
		ContentTypes: {MaxSize: 128, Policy: PolicyLFU},
	}
}

type managed interface {
	Name() string
	Stats() Stats
	Clear()
}

// Registry owns a set of named caches. Caches are created lazily on first
// access and live as long as the registry.
type Registry struct {
	configs map[string]Config
	metrics *Metrics
	clock   func() time.Time
	caches  map[string]managed
	mu      sync.Mutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithConfig sets the configuration for one named cache.
func WithConfig(name string, cfg Config) RegistryOption {
	return func(r *Registry) {
		r.configs[name] = cfg
	}
}

// WithConfigs merges configurations for several named caches.
func WithConfigs(configs map[string]Config) RegistryOption {
	return func(r *Registry) {
		maps.Copy(r.configs, configs)
	}
}

// WithRegistryMetrics attaches a metrics collector to every cache the registry creates.
func WithRegistryMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithRegistryClock sets the clock used by every cache the registry creates.
func WithRegistryClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.clock = clock
	}
}

// NewRegistry creates a registry seeded with DefaultConfigs.
// Invalid configurations are rejected here rather than on first use.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		configs: DefaultConfigs(),
		caches:  make(map[string]managed),
	}
	for _, opt := range opts {
		opt(r)
	}
	for name, cfg := range r.configs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("cache %q: %w", name, err)
		}
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(opts ...RegistryOption) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(err.Error())
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return MustNewRegistry()
})

// Default returns the process-wide registry with stock configuration.
func Default() *Registry {
	return defaultRegistry()
}

// Config returns the configuration used for name.
func (r *Registry) Config(name string) Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config(name)
}

// Must be called with lock held.
func (r *Registry) config(name string) Config {
	if cfg, ok := r.configs[name]; ok {
		return cfg
	}
	return DefaultConfig
}

// Named returns the cache registered under name, creating it on first use.
// Methods cannot carry type parameters, so this is a function. Requesting an
// existing name with different key or value types panics.
func Named[K comparable, V any](r *Registry, name string) *Cache[K, V] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.caches[name]; ok {
		c, ok := existing.(*Cache[K, V])
		if !ok {
			panic(fmt.Sprintf("%v: %q is %T", ErrTypeMismatch, name, existing))
		}
		return c
	}

	opts := []Option{WithName(name), WithMetrics(r.metrics)}
	if r.clock != nil {
		opts = append(opts, WithClock(r.clock))
	}
	c := New[K, V](r.config(name), opts...)
	r.caches[name] = c
	return c
}

// Names lists the caches created so far, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns a snapshot of every created cache.
func (r *Registry) Stats() map[string]Stats {
	r.mu.Lock()
	caches := make([]managed, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.Unlock()

	out := make(map[string]Stats, len(caches))
	for _, c := range caches {
		out[c.Name()] = c.Stats()
	}
	return out
}

// Clear empties the named cache. It reports false if the cache was never created.
func (r *Registry) Clear(name string) bool {
	r.mu.Lock()
	c, ok := r.caches[name]
	r.mu.Unlock()
	if ok {
		c.Clear()
	}
	return ok
}

// ClearAll empties every cache. Caches are cleared one by one, not atomically.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	caches := make([]managed, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.Unlock()

	for _, c := range caches {
		c.Clear()
	}
}
