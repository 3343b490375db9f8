package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	Header      = "X-Request-ID"
	maxIDLength = 128
)

var validIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// New returns a fresh request ID.
func New() string {
	return uuid.NewString()
}

// Middleware reuses a valid incoming X-Request-ID or generates one, stores it
// in the request context and echoes it in the response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if !isValidRequestID(requestID) {
			requestID = New()
		}
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), requestID)))
	})
}

// FromRequest returns the ID stored by Middleware, falling back to a valid
// X-Request-ID header when the middleware is not installed.
func FromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if id := FromContext(r.Context()); id != "" {
		return id
	}
	if id := r.Header.Get(Header); isValidRequestID(id) {
		return id
	}
	return ""
}

func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > maxIDLength {
		return false
	}
	return validIDRegex.MatchString(id)
}
