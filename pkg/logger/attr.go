package logger

import (
	"log/slog"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under "error". A nil error yields an empty Attr, so the
// helper can be passed unconditionally.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration records a duration under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// ContentType records a media type under "content_type".
func ContentType(mediaType string) slog.Attr {
	return slog.String("content_type", mediaType)
}

// Strategy records the extraction strategy under "strategy".
func Strategy(kind any) slog.Attr {
	return slog.Any("strategy", kind)
}

// Role records a parameter role under "role".
func Role(role any) slog.Attr {
	return slog.Any("role", role)
}

// Model records the model type name under "model".
func Model(name string) slog.Attr {
	return slog.String("model", name)
}

// Param records the parameter field name under "param".
func Param(name string) slog.Attr {
	return slog.String("param", name)
}

// State records a binding state under "state".
func State(state any) slog.Attr {
	return slog.Any("state", state)
}

// CacheName records the cache name under "cache".
func CacheName(name string) slog.Attr {
	return slog.String("cache", name)
}

// Status records an HTTP status code under "status".
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}
