package core

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sort"
	"strings"
)

// Error is a structured binding failure. Code is stable and machine-readable,
// Status is the HTTP status the transport should answer with, and Details maps
// field names to error codes for validation failures.
type Error struct {
	Code    string
	Status  int
	Message string
	Details map[string][]string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Code
	if e.Message != "" {
		msg = e.Code + ": " + e.Message
	}
	if len(e.Details) > 0 {
		fields := make([]string, 0, len(e.Details))
		for field := range e.Details {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		msg += " (" + strings.Join(fields, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
// It lets callers match against the package-level sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// StatusCode returns the HTTP status, falling back to 500.
func (e *Error) StatusCode() int {
	if e == nil || e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// HasField reports whether the error carries details for the given field.
func (e *Error) HasField(field string) bool {
	if e == nil {
		return false
	}
	return len(e.Details[field]) > 0
}

// Error codes.
const (
	CodeValidation        = "validation_error"
	CodeMissingFile       = "missing_file"
	CodeModelConstruction = "model_construction_error"
	CodeContentProcessing = "content_processing_error"
	CodeEmptyPayload      = "empty_payload"
)

// Sentinels for errors.Is matching. Never return these directly; use the
// constructors below so every failure carries its own message and details.
var (
	ErrValidation        = &Error{Code: CodeValidation, Status: http.StatusUnprocessableEntity}
	ErrMissingFile       = &Error{Code: CodeMissingFile, Status: http.StatusBadRequest}
	ErrModelConstruction = &Error{Code: CodeModelConstruction, Status: http.StatusInternalServerError}
	ErrContentProcessing = &Error{Code: CodeContentProcessing, Status: http.StatusBadRequest}
	ErrEmptyPayload      = &Error{Code: CodeEmptyPayload, Status: http.StatusBadRequest}
)

// NewValidationError reports a schema validation failure with per-field codes.
func NewValidationError(details map[string][]string) *Error {
	d := make(map[string][]string, len(details))
	maps.Copy(d, details)
	return &Error{
		Code:    CodeValidation,
		Status:  http.StatusUnprocessableEntity,
		Message: "request data failed validation",
		Details: d,
	}
}

// NewMissingFileError reports that a file-bearing model received no matching upload.
func NewMissingFileError(field string) *Error {
	return &Error{
		Code:    CodeMissingFile,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("no uploaded file matches field %q", field),
		Details: map[string][]string{field: {"validation.file_required"}},
	}
}

// NewModelConstructionError reports that even default construction failed.
func NewModelConstructionError(model string, err error) *Error {
	return &Error{
		Code:    CodeModelConstruction,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("cannot construct %s", model),
		Err:     err,
	}
}

// NewContentProcessingError reports a malformed multipart or binary payload.
func NewContentProcessingError(message string, err error) *Error {
	return &Error{
		Code:    CodeContentProcessing,
		Status:  http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

// NewEmptyPayloadError reports that a required body or form was entirely absent.
func NewEmptyPayloadError(message string) *Error {
	return &Error{
		Code:    CodeEmptyPayload,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// HTTPError is a plain status error with a translation key, used for
// transport-level failures that are not part of the binding taxonomy.
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // Translation key (e.g., "not_found", "unsupported_media_type")
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Key
}

var (
	ErrBadRequest           = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrNotFound             = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrMethodNotAllowed     = HTTPError{Code: http.StatusMethodNotAllowed, Key: "method_not_allowed"}
	ErrUnsupportedMediaType = HTTPError{Code: http.StatusUnsupportedMediaType, Key: "unsupported_media_type"}
	ErrInternalServerError  = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
)

// NewHTTPError creates a custom HTTP error with the given status code and translation key.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}
