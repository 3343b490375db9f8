package autobind_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autobind"
	"github.com/dmitrymomot/autobind/handler"
	"github.com/dmitrymomot/autobind/pkg/cache"
	"github.com/dmitrymomot/autobind/pkg/config"
	"github.com/dmitrymomot/autobind/pkg/environment"
	"github.com/dmitrymomot/autobind/pkg/logger"
	"github.com/dmitrymomot/autobind/pkg/requestid"
	"github.com/dmitrymomot/autobind/pkg/signature"
)

func loadWith(t *testing.T, vars map[string]string) (autobind.Config, error) {
	t.Helper()
	return autobind.LoadConfig(config.WithEnvironment(vars))
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := loadWith(t, map[string]string{})
		require.NoError(t, err)

		def := autobind.DefaultConfig()
		assert.Equal(t, def.Env, cfg.Env)
		assert.Equal(t, def.Service, cfg.Service)
		assert.Equal(t, def.MaxMemory, cfg.MaxMemory)
		assert.Equal(t, def.Prefixes, cfg.Prefixes)
		assert.True(t, cfg.Metrics)
		assert.Empty(t, cfg.LogFormat)
		assert.Equal(t, cache.DefaultConfigs(), cfg.Caches.Map())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()
		cfg, err := loadWith(t, map[string]string{
			"AUTOBIND_ENV":                           "prod",
			"AUTOBIND_LOG_FORMAT":                    "text",
			"AUTOBIND_LOG_LEVEL":                     "debug",
			"AUTOBIND_MAX_MEMORY":                    "1024",
			"AUTOBIND_METRICS":                       "false",
			"AUTOBIND_PREFIX_BODY":                   "Payload",
			"AUTOBIND_CACHE_INSTANCES_MAX_SIZE":      "10",
			"AUTOBIND_CACHE_INSTANCES_TTL":           "30s",
			"AUTOBIND_CACHE_CONTENT_TYPES_POLICY":    "FIFO",
			"AUTOBIND_CACHE_SIGNATURES_TTL":          "1m",
			"AUTOBIND_CACHE_SCHEMAS_MAX_SIZE":        "64",
			"AUTOBIND_UNRELATED_VARIABLE_IS_IGNORED": "x",
		})
		require.NoError(t, err)

		assert.Equal(t, environment.Production, cfg.Env)
		assert.Equal(t, logger.FormatText, cfg.LogFormat)
		assert.Equal(t, int64(1024), cfg.MaxMemory)
		assert.False(t, cfg.Metrics)
		assert.Equal(t, signature.Prefixes{Body: "Payload", Query: "Query", Path: "Path", File: "File"}, cfg.Prefixes)

		caches := cfg.Caches.Map()
		assert.Equal(t, cache.Config{MaxSize: 10, Policy: cache.PolicyLRU, TTL: 30 * time.Second}, caches[cache.Instances])
		assert.Equal(t, cache.PolicyFIFO, caches[cache.ContentTypes].Policy)
		assert.Equal(t, time.Minute, caches[cache.Signatures].TTL)
		assert.Equal(t, 64, caches[cache.Schemas].MaxSize)
	})

	t.Run("negative ttl disables expiry", func(t *testing.T) {
		t.Parallel()
		cfg, err := loadWith(t, map[string]string{"AUTOBIND_CACHE_INSTANCES_TTL": "-1s"})
		require.NoError(t, err)
		assert.Zero(t, cfg.Caches.Map()[cache.Instances].TTL)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name string
			vars map[string]string
			err  error
		}{
			{"log level", map[string]string{"AUTOBIND_LOG_LEVEL": "loud"}, autobind.ErrInvalidConfig},
			{"max memory", map[string]string{"AUTOBIND_MAX_MEMORY": "0"}, autobind.ErrInvalidConfig},
			{"cache size", map[string]string{"AUTOBIND_CACHE_SCHEMAS_MAX_SIZE": "-5"}, autobind.ErrInvalidConfig},
			{"policy", map[string]string{"AUTOBIND_CACHE_INSTANCES_POLICY": "random"}, config.ErrParsingConfig},
			{"environment", map[string]string{"AUTOBIND_ENV": "qa"}, config.ErrParsingConfig},
			{"log format", map[string]string{"AUTOBIND_LOG_FORMAT": "xml"}, config.ErrParsingConfig},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				_, err := loadWith(t, tt.vars)
				assert.ErrorIs(t, err, tt.err)
			})
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("preset with overrides", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		cfg := autobind.DefaultConfig()
		cfg.Env = environment.Production
		cfg.Service = "billing"
		cfg.LogLevel = "warn"
		l := autobind.NewLogger(cfg, logger.WithOutput(buf))

		l.Info("hidden")
		l.Warn("shown")
		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, `"msg":"shown"`)
		assert.Contains(t, out, `"service":"billing"`)
		assert.Contains(t, out, `"env":"production"`)
	})

	t.Run("text format and request id", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		cfg := autobind.DefaultConfig()
		cfg.Env = environment.Production
		cfg.LogFormat = logger.FormatText
		l := autobind.NewLogger(cfg, logger.WithOutput(buf))

		l.InfoContext(requestid.WithContext(t.Context(), "abc-1"), "hello")
		assert.Contains(t, buf.String(), "msg=hello")
		assert.Contains(t, buf.String(), "request_id=abc-1")
	})
}

type signup struct {
	PathPlan string
	Payload  struct {
		Email string `json:"email"`
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("binder follows config", func(t *testing.T) {
		t.Parallel()
		cfg := autobind.DefaultConfig()
		cfg.Prefixes.Body = "Payload"
		cfg.Caches.Instances = cache.Config{MaxSize: 2}

		reg := prometheus.NewRegistry()
		b, err := autobind.New(cfg,
			autobind.WithRegisterer(reg),
			autobind.WithLogger(logger.New(logger.WithOutput(&bytes.Buffer{}))),
		)
		require.NoError(t, err)
		assert.Equal(t, 2, b.Registry().Config(cache.Instances).MaxSize)

		var got signup
		router := chi.NewRouter()
		router.Post("/plans/{plan}", handler.Wrap(func(_ handler.Context, p signup) handler.Response {
			got = p
			return handler.Empty()
		}, handler.WithBinder[handler.Context, signup](b)))

		r := httptest.NewRequest(http.MethodPost, "/plans/pro", strings.NewReader(`{"email":"a@b.c"}`))
		r.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)

		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "pro", got.PathPlan)
		assert.Equal(t, "a@b.c", got.Payload.Email)

		count, err := testutil.GatherAndCount(reg, "autobind_cache_misses_total")
		require.NoError(t, err)
		assert.Positive(t, count)
	})

	t.Run("metrics disabled", func(t *testing.T) {
		t.Parallel()
		cfg := autobind.DefaultConfig()
		cfg.Metrics = false
		reg := prometheus.NewRegistry()
		_, err := autobind.New(cfg, autobind.WithRegisterer(reg))
		require.NoError(t, err)

		families, err := reg.Gather()
		require.NoError(t, err)
		assert.Empty(t, families)
	})

	t.Run("duplicate metrics registration", func(t *testing.T) {
		t.Parallel()
		reg := prometheus.NewRegistry()
		_, err := autobind.New(autobind.DefaultConfig(), autobind.WithRegisterer(reg))
		require.NoError(t, err)
		_, err = autobind.New(autobind.DefaultConfig(), autobind.WithRegisterer(reg))
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()
		cfg := autobind.DefaultConfig()
		cfg.MaxMemory = -1
		_, err := autobind.New(cfg)
		assert.ErrorIs(t, err, autobind.ErrInvalidConfig)
	})
}
