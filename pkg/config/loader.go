package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option tunes how variables are read.
type Option func(*env.Options)

// WithPrefix prepends prefix to every variable name, e.g. "AUTOBIND_".
func WithPrefix(prefix string) Option {
	return func(o *env.Options) { o.Prefix = prefix }
}

// WithEnvironment reads variables from vars instead of the process environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) { o.Environment = vars }
}

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	cacheMu sync.Mutex
	cache   = make(map[string]*entry)

	dotenvOnce sync.Once
)

// Load parses environment variables into v. The first call for a given type
// and prefix does the work; later calls copy the cached result, including a
// cached failure. A .env file in the working directory is loaded once,
// without overriding variables that are already set.
//
//	type Config struct {
//		MaxMemory int64 `env:"MAX_MEMORY" envDefault:"10485760"`
//	}
//	var cfg Config
//	err := config.Load(&cfg, config.WithPrefix("AUTOBIND_"))
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() { _ = godotenv.Load() })

	o := options(opts)
	key := typeName[T]() + "|" + o.Prefix
	if o.Environment != nil {
		// Explicit environments are never shared.
		return Parse(v, opts...)
	}

	cacheMu.Lock()
	e, ok := cache[key]
	if !ok {
		e = &entry{}
		cache[key] = e
	}
	cacheMu.Unlock()

	e.once.Do(func() {
		var fresh T
		if e.err = Parse(&fresh, opts...); e.err == nil {
			e.value = fresh
		}
	})
	if e.err != nil {
		return e.err
	}
	*v = e.value.(T)
	return nil
}

// MustLoad is Load that panics on failure.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Parse reads variables into v without caching. Values already set on v
// are kept unless a variable or envDefault overrides them.
func Parse[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	if err := env.ParseWithOptions(v, options(opts)); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadFile loads variables from dotenv files without overriding existing ones.
func LoadFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("%w: %v", ErrLoadingFile, err)
	}
	return nil
}

// Reset drops every cached configuration.
func Reset() {
	cacheMu.Lock()
	cache = make(map[string]*entry)
	cacheMu.Unlock()
}

func options(opts []Option) env.Options {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.String()
}
