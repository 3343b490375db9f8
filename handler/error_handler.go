package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/autobind/core"
	"github.com/dmitrymomot/autobind/pkg/logger"
	"github.com/dmitrymomot/autobind/pkg/requestid"
	"github.com/dmitrymomot/autobind/pkg/validator"
)

// classifyError maps err to a status code and the client-facing detail.
// Unknown errors become a 500 without leaking their text.
func classifyError(err error) (int, *ErrorDetail) {
	if cerr, ok := core.AsError(err); ok {
		return cerr.StatusCode(), &ErrorDetail{
			Code:    cerr.Code,
			Message: cerr.Message,
			Details: cerr.Details,
		}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity, &ErrorDetail{
			Code:    core.CodeValidation,
			Message: "request data failed validation",
			Details: verrs.Codes(),
		}
	}

	var httpErr core.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, &ErrorDetail{
			Code:    httpErr.Key,
			Message: http.StatusText(httpErr.Code),
		}
	}

	if errors.Is(err, ErrInvalidTarget) {
		return http.StatusInternalServerError, &ErrorDetail{
			Code:    core.CodeModelConstruction,
			Message: "handler parameters cannot be bound",
		}
	}

	return http.StatusInternalServerError, &ErrorDetail{
		Code:    "internal_error",
		Message: http.StatusText(http.StatusInternalServerError),
	}
}

func logLevel(status int) slog.Level {
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// NewErrorHandler returns the default error handler. It writes
//
//	{"error":{"code":...,"message":...,"details":{...}},"meta":{"request_id":...}}
//
// with the status of the error's classification, and logs at warn for
// client errors and error for everything else.
func NewErrorHandler[C Context](log *slog.Logger) ErrorHandler[C] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx C, err error) {
		r := ctx.Request()
		requestID := requestid.FromRequest(r)
		status, detail := classifyError(err)

		attrs := []slog.Attr{
			logger.Component("error_handler"),
			logger.RequestID(requestID),
			logger.Status(status),
			slog.String("code", detail.Code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		}
		if lc := LifecycleFromContext(r.Context()); lc != nil {
			attrs = append(attrs, logger.State(lc.State()))
		}
		log.LogAttrs(r.Context(), logLevel(status), "request failed", attrs...)

		resp := JSONError(err, WithJSONMeta(map[string]any{"request_id": requestID}))
		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.LogAttrs(r.Context(), slog.LevelError, "failed to write error response",
				logger.Component("error_handler"),
				logger.RequestID(requestID),
				logger.Error(renderErr),
			)
		}
	}
}
