package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autobind/core"
	"github.com/dmitrymomot/autobind/handler"
	"github.com/dmitrymomot/autobind/pkg/logger"
	"github.com/dmitrymomot/autobind/pkg/requestid"
)

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		level  string
	}{
		{"client error", core.NewMissingFileError("file"), http.StatusBadRequest, "WARN"},
		{"validation", core.NewValidationError(map[string][]string{"id": {"validation.type"}}), http.StatusUnprocessableEntity, "WARN"},
		{"construction", core.NewModelConstructionError("User", errors.New("no default")), http.StatusInternalServerError, "ERROR"},
		{"unknown", errors.New("kaput"), http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			h := handler.NewErrorHandler[handler.Context](logger.New(logger.WithOutput(buf)))

			r := httptest.NewRequest(http.MethodPost, "/upload", nil)
			r = r.WithContext(requestid.WithContext(r.Context(), "rid-1"))
			rec := httptest.NewRecorder()
			h(handler.NewContext(rec, r), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, "rid-1", env.Meta["request_id"])

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "request failed", entry["msg"])
			assert.Equal(t, "rid-1", entry["request_id"])
			assert.Equal(t, "error_handler", entry["component"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, http.MethodPost, entry["method"])
			assert.Equal(t, "/upload", entry["path"])
			assert.Equal(t, env.Error.Code, entry["code"])
		})
	}

	t.Run("nil logger falls back to default", func(t *testing.T) {
		t.Parallel()
		h := handler.NewErrorHandler[handler.Context](nil)
		rec := httptest.NewRecorder()
		h(handler.NewContext(rec, httptest.NewRequest(http.MethodGet, "/", nil)), core.ErrNotFound)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
