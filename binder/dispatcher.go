package binder

import (
	"context"
	"log/slog"
	"mime"
	"reflect"
	"strings"

	"github.com/dmitrymomot/autobind/core"
	"github.com/dmitrymomot/autobind/pkg/cache"
	"github.com/dmitrymomot/autobind/pkg/logger"
	"github.com/dmitrymomot/autobind/pkg/materializer"
)

// Resolver picks the content type for a request, overriding the declared
// one. An empty result keeps the declared type.
type Resolver func(req Request, target reflect.Type) string

// Dispatcher routes a request to the first strategy that handles its
// content type.
type Dispatcher struct {
	strategies []Strategy
	resolver   Resolver
	overrides  map[string]reflect.Type
	media      *cache.Cache[string, MediaType]
	models     *materializer.Materializer
	logger     *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithResolver installs a content type resolver.
func WithResolver(fn Resolver) DispatcherOption {
	return func(d *Dispatcher) { d.resolver = fn }
}

// WithOverride binds requests of mediaType to model instead of the
// parameter's declared type.
func WithOverride(mediaType string, model reflect.Type) DispatcherOption {
	return func(d *Dispatcher) {
		d.overrides[normalizeMediaType(mediaType)] = model
	}
}

// WithStrategies replaces the built-in strategy list. The default strategy
// is always appended.
func WithStrategies(strategies ...Strategy) DispatcherOption {
	return func(d *Dispatcher) { d.strategies = strategies }
}

// WithDispatcherLogger sets the logger used for strategy selection.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher. Parsed media types are cached in the
// registry's content_types cache; a nil registry uses cache.Default().
func NewDispatcher(models *materializer.Materializer, reg *cache.Registry, opts ...DispatcherOption) *Dispatcher {
	if reg == nil {
		reg = cache.Default()
	}
	if models == nil {
		models = materializer.New(reg)
	}
	d := &Dispatcher{
		strategies: DefaultStrategies(),
		overrides:  map[string]reflect.Type{},
		media:      cache.Named[string, MediaType](reg, cache.ContentTypes),
		models:     models,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.strategies = append(d.strategies, DefaultStrategy{})
	return d
}

// Resolve returns the effective media type and target for req: the resolver
// result, else the declared Content-Type. An override registered for that
// media type replaces the target.
func (d *Dispatcher) Resolve(req Request, target reflect.Type) (MediaType, reflect.Type) {
	raw := req.ContentType()
	if d.resolver != nil {
		if ct := d.resolver(req, target); ct != "" {
			raw = ct
		}
	}
	media := d.ParseMediaType(raw)
	if model, ok := d.overrides[media.Type]; ok {
		target = model
	}
	return media, target
}

// ParseMediaType parses a Content-Type value through the cache. Unparseable
// values keep their lowercased type and lose their parameters. Values with a
// multipart boundary are unique per request and bypass the cache.
func (d *Dispatcher) ParseMediaType(raw string) MediaType {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MediaType{}
	}
	if strings.Contains(strings.ToLower(raw), "boundary=") {
		return parseMediaType(raw)
	}
	m, _ := d.media.GetOrLoad(raw, func() (MediaType, error) {
		return parseMediaType(raw), nil
	})
	return m
}

func parseMediaType(raw string) MediaType {
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return MediaType{Type: normalizeMediaType(raw)}
	}
	return MediaType{Type: mediaType, Params: params}
}

// Strategy returns the first strategy that handles mediaType.
func (d *Dispatcher) Strategy(mediaType string) Strategy {
	for _, s := range d.strategies {
		if s.CanHandle(mediaType) {
			return s
		}
	}
	return DefaultStrategy{}
}

// Dispatch extracts raw fields for target from req.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, target reflect.Type) (Extraction, *core.Error) {
	media, target := d.Resolve(req, target)
	strategy := d.Strategy(media.Type)

	t := Target{Type: target}
	if schema, err := d.models.Schema(target); err == nil {
		t.Schema = schema
	}

	d.logger.DebugContext(ctx, "strategy selected",
		logger.Component("binder"),
		logger.ContentType(media.Type),
		logger.Strategy(strategy.Kind()),
		logger.Model(typeName(target)),
	)

	ext, err := extract(strategy, req, media, t)
	if err != nil {
		d.logger.DebugContext(ctx, "extraction failed",
			logger.Component("binder"),
			logger.Strategy(strategy.Kind()),
			logger.Error(err),
		)
		return Extraction{}, err
	}
	ext.Strategy = strategy.Kind()
	ext.Target = target
	return ext, nil
}

// Materialize dispatches and constructs the target in one step.
func (d *Dispatcher) Materialize(ctx context.Context, req Request, target reflect.Type) (reflect.Value, *core.Error) {
	ext, err := d.Dispatch(ctx, req, target)
	if err != nil {
		return reflect.Value{}, err
	}
	if ext.UseDefault {
		return d.Default(ext)
	}
	return d.models.Create(ext.Target, ext.Fields)
}

// Default builds the default instance an extraction asked for. A missing
// body that cannot satisfy the target's required fields is the client's
// fault and reported as an empty payload.
func (d *Dispatcher) Default(ext Extraction) (reflect.Value, *core.Error) {
	v, cerr := d.models.Default(ext.Target)
	if cerr != nil && ext.EmptyBody && cerr.Code == core.CodeModelConstruction && len(cerr.Details) > 0 {
		empty := core.NewEmptyPayloadError("request body is empty")
		empty.Details = cerr.Details
		return reflect.Value{}, empty
	}
	return v, cerr
}

// extract shields callers from a panicking custom strategy.
func extract(s Strategy, req Request, media MediaType, t Target) (ext Extraction, cerr *core.Error) {
	defer func() {
		if r := recover(); r != nil {
			cerr = core.NewContentProcessingError("content extraction failed", panicError{r})
		}
	}()
	return s.Extract(req, media, t)
}

func normalizeMediaType(s string) string {
	s, _, _ = strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(s))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
