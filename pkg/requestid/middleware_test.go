package requestid_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autobind/pkg/logger"
	"github.com/dmitrymomot/autobind/pkg/requestid"
)

// roundTrip sends a request with the given header through the middleware and
// returns the ID seen by the handler and the one echoed to the client.
func roundTrip(t *testing.T, header string) (seen, echoed string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return seen, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("keeps well-formed ids", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{"abc123", "ABC-123_xyz", uuid.NewString(), strings.Repeat("a", 128)} {
			seen, echoed := roundTrip(t, id)
			assert.Equal(t, id, seen)
			assert.Equal(t, id, echoed)
		}
	})

	t.Run("replaces missing or malformed ids", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{
			"",
			"bad id",
			"a/b",
			"<script>",
			"multipart; boundary=x",
			strings.Repeat("a", 129),
		} {
			seen, echoed := roundTrip(t, id)
			assert.NotEqual(t, id, seen)
			assert.Equal(t, seen, echoed)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err, "generated id %q", seen)
		}
	})
}

func TestFromRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.Header, "from-header")
	assert.Equal(t, "from-header", requestid.FromRequest(req))

	withCtx := req.WithContext(requestid.WithContext(req.Context(), "from-ctx"))
	assert.Equal(t, "from-ctx", requestid.FromRequest(withCtx))

	req.Header.Set(requestid.Header, "bad id!")
	assert.Empty(t, requestid.FromRequest(req))
	assert.Empty(t, requestid.FromRequest(nil))
	assert.Empty(t, requestid.FromContext(context.Background()))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(requestid.LoggerExtractor()))
	log.InfoContext(requestid.WithContext(context.Background(), "abc"), "bound")
	log.InfoContext(context.Background(), "anonymous")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "abc", first["request_id"])
	assert.NotContains(t, second, "request_id")
}
