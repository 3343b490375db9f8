package handler

import (
	"net/http"
)

type emptyResponse struct {
	status int
}

func (e emptyResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(e.status)
	return nil
}

// Empty returns 204 No Content.
func Empty() Response {
	return emptyResponse{status: http.StatusNoContent}
}

// EmptyWithStatus returns a bodyless response with status.
func EmptyWithStatus(status int) Response {
	return emptyResponse{status: status}
}

type rawResponse struct {
	contentType string
	body        []byte
}

func (b rawResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", b.contentType)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(b.body)
	return err
}

// Bytes writes body as application/octet-stream.
func Bytes(body []byte) Response {
	return rawResponse{contentType: "application/octet-stream", body: body}
}

// Text writes s as text/plain.
func Text(s string) Response {
	return rawResponse{contentType: "text/plain; charset=utf-8", body: []byte(s)}
}

type errorResponse struct {
	err error
}

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error {
	return e.err
}

// Convert turns a handler result into a Response:
//
//   - a Response is returned as is
//   - nil becomes Empty()
//   - []byte and string are written raw
//   - an error is handed to the error handler
//   - anything else is JSON-encoded under "data"
func Convert(v any) Response {
	switch x := v.(type) {
	case nil:
		return Empty()
	case Response:
		return x
	case []byte:
		return Bytes(x)
	case string:
		return Text(x)
	case error:
		return errorResponse{err: x}
	}
	return JSON(v)
}

type statusResponse struct {
	inner Response
	code  int
}

func (s statusResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return s.inner.Render(&statusWriter{ResponseWriter: w, code: s.code}, r)
}

// Status converts v like Convert and replaces the status code it would
// have written.
//
//	return handler.Status(user, http.StatusCreated), nil
func Status(v any, code int) Response {
	return statusResponse{inner: Convert(v), code: code}
}

// statusWriter forces code onto the first WriteHeader.
type statusWriter struct {
	http.ResponseWriter
	code  int
	wrote bool
}

func (s *statusWriter) WriteHeader(int) {
	if s.wrote {
		return
	}
	s.wrote = true
	s.ResponseWriter.WriteHeader(s.code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if !s.wrote {
		s.WriteHeader(s.code)
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
