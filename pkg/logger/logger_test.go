package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autobind/pkg/environment"
	"github.com/dmitrymomot/autobind/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Run("json by default", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("hello", logger.ContentType("application/json"), logger.Strategy("json"))

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "application/json", entry["content_type"])
		assert.Equal(t, "json", entry["strategy"])
	})

	t.Run("level filters debug", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelWarn))
		log.Info("dropped")
		assert.Empty(t, buf.String())
	})

	t.Run("text format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithFormat(logger.FormatText))
		log.Info("hello", logger.Model("main.User"))
		assert.Contains(t, buf.String(), "model=main.User")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		assert.Panics(t, func() { logger.New(logger.WithFormat("xml")) })
	})

	t.Run("static attrs", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithAttr(logger.Component("binder")))
		log.Info("x")
		assert.Equal(t, "binder", decode(t, buf)["component"])
	})
}

func TestEnvironmentPresets(t *testing.T) {
	t.Run("development is text at debug", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment(environment.Development, "svc"), logger.WithOutput(buf))
		log.Debug("msg")
		out := buf.String()
		assert.Contains(t, out, "DEBUG")
		assert.Contains(t, out, "service=svc")
		assert.Contains(t, out, "env=development")
	})

	t.Run("production is json at info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment(environment.Production, "svc"), logger.WithOutput(buf))
		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("msg")
		entry := decode(t, buf)
		assert.Equal(t, "svc", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("staging", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithStaging(""), logger.WithOutput(buf))
		log.Info("msg")
		entry := decode(t, buf)
		assert.Equal(t, "staging", entry["env"])
		assert.NotContains(t, entry, "service")
	})
}

func TestContextExtractors(t *testing.T) {
	type key struct{}
	extractor := func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(key{}).(string); ok {
			return logger.RequestID(v), true
		}
		return slog.Attr{}, false
	}

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(nil, extractor))
	log = log.With(logger.Component("handler")).WithGroup("g")

	log.InfoContext(context.WithValue(context.Background(), key{}, "req-1"), "msg")
	entry := decode(t, buf)
	assert.Equal(t, "handler", entry["component"])
	assert.Equal(t, map[string]any{"request_id": "req-1"}, entry["g"])
}

func TestAttrs(t *testing.T) {
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.True(t, logger.RequestID("").Equal(slog.Attr{}))

	err := errors.New("boom")
	assert.Equal(t, err, logger.Error(err).Value.Any())
	assert.Equal(t, "cache", logger.CacheName("schemas").Key)
	assert.Equal(t, "role", logger.Role("body").Key)
	assert.Equal(t, "param", logger.Param("BodyUser").Key)
	assert.Equal(t, "state", logger.State("failed").Key)
	assert.Equal(t, int64(422), logger.Status(422).Value.Int64())
	assert.Equal(t, time.Second, logger.Duration(time.Second).Value.Duration())

	g := logger.Group("req", slog.String("id", "1"))
	require.Equal(t, slog.KindGroup, g.Value.Kind())
	assert.Len(t, g.Value.Group(), 1)
}

func TestFormat_UnmarshalText(t *testing.T) {
	var f logger.Format
	require.NoError(t, f.UnmarshalText([]byte("TEXT")))
	assert.Equal(t, logger.FormatText, f)
	require.NoError(t, f.UnmarshalText(nil))
	assert.Equal(t, logger.FormatJSON, f)
	assert.Error(t, f.UnmarshalText([]byte("xml")))
}
