package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/autobind/binder"
	"github.com/dmitrymomot/autobind/core"
	"github.com/dmitrymomot/autobind/pkg/cache"
	"github.com/dmitrymomot/autobind/pkg/logger"
	"github.com/dmitrymomot/autobind/pkg/materializer"
	"github.com/dmitrymomot/autobind/pkg/signature"
	"github.com/dmitrymomot/autobind/pkg/validator"
)

const tracerName = "github.com/dmitrymomot/autobind/handler"

// PathExtractor returns the raw value of a named path parameter, or "" when
// the route has none.
type PathExtractor func(r *http.Request, name string) string

// DefaultPathExtractor reads chi route parameters and falls back to the
// standard library's http.Request.PathValue.
func DefaultPathExtractor(r *http.Request, name string) string {
	if v := chi.URLParam(r, name); v != "" {
		return v
	}
	return r.PathValue(name)
}

// Binder fills parameter structs from requests. Fields are classified by
// name prefix (see package signature) and bound in declaration order:
// Body fields through the content type dispatcher, Query fields from the
// query string, Path fields from route parameters and File fields from
// uploads. A Binder is safe for concurrent use.
type Binder struct {
	registry     *cache.Registry
	prefixes     signature.Prefixes
	scanner      *signature.Scanner
	models       *materializer.Materializer
	dispatcher   *binder.Dispatcher
	dispatchOpts []binder.DispatcherOption
	instances    *cache.Cache[string, reflect.Value]
	paths        PathExtractor
	maxMemory    int64
	logger       *slog.Logger
	tracer       trace.Tracer
}

// BinderOption configures a Binder.
type BinderOption func(*Binder)

// WithRegistry sets the cache registry. Defaults to cache.Default().
func WithRegistry(reg *cache.Registry) BinderOption {
	return func(b *Binder) { b.registry = reg }
}

// WithPrefixes sets the role prefix table. Empty entries keep their defaults.
func WithPrefixes(p signature.Prefixes) BinderOption {
	return func(b *Binder) { b.prefixes = p }
}

// WithPathExtractor replaces DefaultPathExtractor.
func WithPathExtractor(fn PathExtractor) BinderOption {
	return func(b *Binder) {
		if fn != nil {
			b.paths = fn
		}
	}
}

// WithMaxMemory caps the buffered request body.
func WithMaxMemory(n int64) BinderOption {
	return func(b *Binder) { b.maxMemory = n }
}

// WithLogger sets the logger for the binder and its dispatcher.
func WithLogger(l *slog.Logger) BinderOption {
	return func(b *Binder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithTracerProvider sets the provider for bind spans. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) BinderOption {
	return func(b *Binder) {
		if tp != nil {
			b.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithDispatcherOptions passes options such as binder.WithResolver or
// binder.WithOverride to the content type dispatcher.
func WithDispatcherOptions(opts ...binder.DispatcherOption) BinderOption {
	return func(b *Binder) { b.dispatchOpts = append(b.dispatchOpts, opts...) }
}

// NewBinder creates a Binder.
func NewBinder(opts ...BinderOption) *Binder {
	b := &Binder{
		paths:     DefaultPathExtractor,
		maxMemory: binder.DefaultMaxMemory,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = cache.Default()
	}

	b.scanner = signature.NewScanner(b.registry, b.prefixes)
	b.models = materializer.New(b.registry)
	dispatchOpts := append([]binder.DispatcherOption{binder.WithDispatcherLogger(b.logger)}, b.dispatchOpts...)
	b.dispatcher = binder.NewDispatcher(b.models, b.registry, dispatchOpts...)
	b.instances = cache.Named[string, reflect.Value](b.registry, cache.Instances)
	return b
}

var defaultBinder = sync.OnceValue(func() *Binder { return NewBinder() })

// DefaultBinder returns the process-wide Binder backed by cache.Default().
func DefaultBinder() *Binder {
	return defaultBinder()
}

// Registry returns the cache registry the binder uses.
func (b *Binder) Registry() *cache.Registry {
	return b.registry
}

// Register scans t once so later requests find its parameter map cached.
// t must be a struct or a pointer to one.
func (b *Binder) Register(t reflect.Type) (signature.ParameterMap, error) {
	if t == nil {
		return signature.ParameterMap{}, ErrInvalidTarget
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return signature.ParameterMap{}, fmt.Errorf("%w: %s", ErrInvalidTarget, t)
	}
	return b.scanner.Scan(t), nil
}

// Bind fills dst, a pointer to a parameter struct, from r. dst is only
// modified when every parameter binds; the first failure is returned as a
// *core.Error.
func (b *Binder) Bind(r *http.Request, dst any) error {
	ctx := r.Context()
	lc := LifecycleFromContext(ctx)
	if lc == nil {
		lc = newLifecycle()
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		lc.advance(ctx, fail)
		return fmt.Errorf("%w: got %T", ErrInvalidTarget, dst)
	}
	params := b.scanner.Scan(rv.Elem().Type())

	ctx, span := b.tracer.Start(ctx, "autobind.bind", trace.WithAttributes(
		attribute.String("autobind.params", params.Type().String()),
		attribute.Int("autobind.param_count", params.Len()),
	))
	defer span.End()

	req := binder.NewRequest(r, b.maxMemory)
	media := b.dispatcher.ParseMediaType(req.ContentType())
	span.SetAttributes(attribute.String("autobind.content_type", media.Type))
	lc.advance(ctx, resolve)

	staged := reflect.New(rv.Elem().Type()).Elem()
	staged.Set(rv.Elem())
	for _, d := range params.Descriptors() {
		v, cerr := b.bindParam(ctx, r, req, d)
		if cerr != nil {
			lc.advance(ctx, fail)
			span.RecordError(cerr)
			span.SetStatus(codes.Error, cerr.Message)
			span.SetAttributes(
				attribute.String("autobind.error_code", cerr.Code),
				attribute.String("autobind.failed_param", d.Name),
			)
			b.logger.DebugContext(ctx, "parameter binding failed",
				logger.Component("binder"),
				logger.Param(d.Name),
				logger.Role(d.Role),
				logger.State(lc.State()),
				logger.Error(cerr),
			)
			return cerr
		}
		if v.IsValid() {
			staged.FieldByIndex(d.Index).Set(v)
		}
		lc.advance(ctx, bind)
		span.AddEvent("autobind.param", trace.WithAttributes(
			attribute.String("autobind.param", d.Name),
			attribute.String("autobind.role", d.Role.String()),
		))
	}

	rv.Elem().Set(staged)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (b *Binder) bindParam(ctx context.Context, r *http.Request, req binder.Request, d signature.Descriptor) (reflect.Value, *core.Error) {
	switch d.Role {
	case signature.RoleBody:
		return b.bindBody(ctx, req, d)
	case signature.RoleQuery:
		return b.bindQuery(req, d)
	case signature.RolePath:
		return b.bindPath(r, d)
	case signature.RoleFile:
		return b.bindFile(ctx, req, d)
	}
	return reflect.Value{}, nil
}

func (b *Binder) bindBody(ctx context.Context, req binder.Request, d signature.Descriptor) (reflect.Value, *core.Error) {
	ext, cerr := b.dispatcher.Dispatch(ctx, req, d.Type)
	if cerr != nil {
		return reflect.Value{}, cerr
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("autobind.strategy", string(ext.Strategy)))

	var v reflect.Value
	if ext.UseDefault {
		v, cerr = b.dispatcher.Default(ext)
	} else {
		v, cerr = b.materialize(ext.Target, ext.Fields, ext.Payload == nil)
	}
	if cerr != nil {
		return reflect.Value{}, cerr
	}
	return assignTo(d, v)
}

func (b *Binder) bindQuery(req binder.Request, d signature.Descriptor) (reflect.Value, *core.Error) {
	v, cerr := b.materialize(d.Type, queryFields(req.Query()), true)
	if cerr != nil {
		return reflect.Value{}, cerr
	}
	return assignTo(d, v)
}

func (b *Binder) bindPath(r *http.Request, d signature.Descriptor) (reflect.Value, *core.Error) {
	raw := b.paths(r, d.Field)
	if raw == "" {
		if d.Type.Kind() == reflect.Pointer {
			return reflect.Value{}, nil
		}
		return reflect.Value{}, core.NewValidationError(
			validator.ValidationErrors{validator.Present(d.Field, false).Error}.Codes(),
		)
	}
	v, err := materializer.Coerce(d.Type, raw)
	if err != nil {
		return reflect.Value{}, core.NewValidationError(
			validator.ValidationErrors{validator.Coerced(d.Field, d.Type.String(), err).Error}.Codes(),
		)
	}
	return v, nil
}

// bindFile binds an upload field directly, or builds a file-bearing model
// from a multipart or binary body.
func (b *Binder) bindFile(ctx context.Context, req binder.Request, d signature.Descriptor) (reflect.Value, *core.Error) {
	media, _ := b.dispatcher.Resolve(req, d.Type)

	if binder.IsFileType(d.Type) {
		uploads, cerr := b.uploads(req, media)
		if cerr != nil {
			return reflect.Value{}, cerr
		}
		v, ok := uploads.For(d.Field, d.Type)
		if !ok {
			return reflect.Value{}, core.NewMissingFileError(d.Field)
		}
		return reflect.ValueOf(v), nil
	}

	schema, err := b.models.Schema(d.Type)
	if err != nil {
		return reflect.Value{}, core.NewModelConstructionError(d.Type.String(), err)
	}
	var strategy binder.Strategy
	switch {
	case binder.MultipartFormStrategy{}.CanHandle(media.Type):
		strategy = binder.MultipartFormStrategy{}
	case binder.BinaryStrategy{}.CanHandle(media.Type):
		strategy = binder.BinaryStrategy{}
	default:
		return reflect.Value{}, core.NewMissingFileError(d.Field)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("autobind.strategy", string(strategy.Kind())))

	ext, cerr := strategy.Extract(req, media, binder.Target{Type: d.Type, Schema: schema})
	if cerr != nil {
		return reflect.Value{}, cerr
	}
	v, cerr := b.models.Create(d.Type, ext.Fields)
	if cerr != nil {
		return reflect.Value{}, cerr
	}
	return assignTo(d, v)
}

func (b *Binder) uploads(req binder.Request, media binder.MediaType) (binder.Uploads, *core.Error) {
	if (binder.BinaryStrategy{}).CanHandle(media.Type) {
		ext, cerr := binder.BinaryStrategy{}.Extract(req, media, binder.Target{})
		if cerr != nil {
			return nil, cerr
		}
		return binder.Uploads{binder.DefaultFileField: {ext.Payload}}, nil
	}
	files, err := req.Files(media)
	if err != nil {
		return nil, core.NewContentProcessingError("failed to read uploads", err)
	}
	return files, nil
}

// materialize builds t from fields. Results are shared through the
// instances cache when the payload has a canonical fingerprint.
func (b *Binder) materialize(t reflect.Type, fields map[string]any, cacheable bool) (reflect.Value, *core.Error) {
	if !cacheable {
		return b.models.Create(t, fields)
	}
	key, shareable := cache.Fingerprint(modelID(t), fields)
	if !shareable {
		return b.models.Create(t, fields)
	}

	v, err := b.instances.GetOrLoad(key, func() (reflect.Value, error) {
		v, cerr := b.models.Create(t, fields)
		if cerr != nil {
			return reflect.Value{}, cerr
		}
		return v, nil
	})
	if err != nil {
		if cerr, ok := core.AsError(err); ok {
			return reflect.Value{}, cerr
		}
		return reflect.Value{}, core.NewModelConstructionError(t.String(), err)
	}
	return detach(v), nil
}

// detach copies the top-level value of a cached pointer so requests never
// share the struct itself. Nested slices, maps and pointers stay shared.
func detach(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return v
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(detach(v.Elem()))
	return cp
}

// assignTo adapts v to the declared field type, adding or removing one
// level of pointer. An override model that does not fit the field is a
// construction error.
func assignTo(d signature.Descriptor, v reflect.Value) (reflect.Value, *core.Error) {
	switch {
	case v.Type().AssignableTo(d.Type):
		return v, nil
	case d.Type.Kind() == reflect.Pointer && v.Type().AssignableTo(d.Type.Elem()):
		p := reflect.New(d.Type.Elem())
		p.Elem().Set(v)
		return p, nil
	case v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Type().AssignableTo(d.Type):
		return v.Elem(), nil
	}
	return reflect.Value{}, core.NewModelConstructionError(d.Type.String(),
		fmt.Errorf("%s is not assignable to parameter %s", v.Type(), d.Name))
}

func queryFields(q url.Values) map[string]any {
	out := make(map[string]any, len(q))
	for k, vs := range q {
		switch len(vs) {
		case 0:
		case 1:
			out[k] = vs[0]
		default:
			out[k] = append([]string(nil), vs...)
		}
	}
	return out
}

// modelID names t by identity. Distinct types may share a name, e.g. two
// function-local declarations in one package.
func modelID(t reflect.Type) string {
	return fmt.Sprintf("%s@%p", t, t)
}
