package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// HandlerFunc handles a request whose parameters were bound into P.
//
//	type GetUser struct {
//		PathID    int
//		QueryOpts struct {
//			Expand bool `json:"expand"`
//		}
//	}
//
//	h := handler.HandlerFunc[handler.Context, GetUser](
//		func(ctx handler.Context, p GetUser) handler.Response {
//			return handler.JSON(load(p.PathID, p.QueryOpts.Expand))
//		},
//	)
type HandlerFunc[C Context, P any] func(ctx C, params P) Response

// TypedHandlerFunc returns a plain result that is converted to a Response
// (see Convert). A non-nil error goes to the error handler.
type TypedHandlerFunc[C Context, P, R any] func(ctx C, params P) (R, error)

// Response renders itself to an http.ResponseWriter.
// Render errors are passed to the error handler.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind fills v from r. Additional binders run after the Binder and may
// return ErrNotApplicable to skip a request.
type Bind func(r *http.Request, v any) error

// ErrorHandler handles errors from binding, handlers or rendering.
type ErrorHandler[C Context] func(ctx C, err error)

// Decorator wraps a HandlerFunc. The first decorator in a list is the
// outermost wrapper.
type Decorator[C Context, P any] func(HandlerFunc[C, P]) HandlerFunc[C, P]

// WrapOption configures Wrap.
type WrapOption[C Context, P any] func(*wrapConfig[C, P])

type wrapConfig[C Context, P any] struct {
	binder         *Binder
	binders        []Bind
	errorHandler   ErrorHandler[C]
	contextFactory func(http.ResponseWriter, *http.Request) C
	decorators     []Decorator[C, P]
}

// WithBinder sets the Binder. Defaults to DefaultBinder().
func WithBinder[C Context, P any](b *Binder) WrapOption[C, P] {
	return func(c *wrapConfig[C, P]) {
		if b != nil {
			c.binder = b
		}
	}
}

// WithBinders appends binders that run, in order, after the Binder.
func WithBinders[C Context, P any](binders ...Bind) WrapOption[C, P] {
	return func(c *wrapConfig[C, P]) {
		for _, b := range binders {
			if b != nil {
				c.binders = append(c.binders, b)
			}
		}
	}
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler[C Context, P any](h ErrorHandler[C]) WrapOption[C, P] {
	return func(c *wrapConfig[C, P]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithContextFactory sets the context factory. It is required when C is not
// the default Context.
func WithContextFactory[C Context, P any](f func(http.ResponseWriter, *http.Request) C) WrapOption[C, P] {
	return func(c *wrapConfig[C, P]) {
		if f != nil {
			c.contextFactory = f
		}
	}
}

// WithDecorators adds decorators around the handler.
func WithDecorators[C Context, P any](decorators ...Decorator[C, P]) WrapOption[C, P] {
	return func(c *wrapConfig[C, P]) {
		c.decorators = append(c.decorators, decorators...)
	}
}

// Wrap converts h to an http.HandlerFunc. The parameter struct P is scanned
// here, so a P that is not a struct (a pointer to one included) panics at
// startup rather than per request.
//
//	r.Get("/users/{id}", handler.Wrap(getUser))
//
//	r.Post("/users", handler.Wrap(createUser,
//		handler.WithBinder[AppContext, CreateUser](b),
//		handler.WithContextFactory[AppContext, CreateUser](NewAppContext),
//	))
func Wrap[C Context, P any](h HandlerFunc[C, P], opts ...WrapOption[C, P]) http.HandlerFunc {
	cfg := &wrapConfig[C, P]{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.binder == nil {
		cfg.binder = DefaultBinder()
	}
	if cfg.errorHandler == nil {
		cfg.errorHandler = NewErrorHandler[C](cfg.binder.logger)
	}
	if cfg.contextFactory == nil {
		cfg.contextFactory = func(w http.ResponseWriter, r *http.Request) C {
			if c, ok := NewContext(w, r).(C); ok {
				return c
			}
			panic("cannot use default context factory with custom context type - provide WithContextFactory")
		}
	}

	pt := reflect.TypeFor[P]()
	if pt.Kind() != reflect.Struct {
		panic(fmt.Sprintf("handler.Wrap: %v: parameters must be a struct, got %s", ErrInvalidTarget, pt))
	}
	if _, err := cfg.binder.Register(pt); err != nil {
		panic(fmt.Sprintf("handler.Wrap: %v", err))
	}

	final := h
	for i := len(cfg.decorators) - 1; i >= 0; i-- {
		final = cfg.decorators[i](final)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		r, lc := withLifecycle(r)
		ctx := cfg.contextFactory(w, r)

		failed := func(err error) {
			lc.advance(r.Context(), fail)
			cfg.errorHandler(ctx, err)
			lc.advance(r.Context(), report)
		}

		var params P
		if err := cfg.binder.Bind(r, &params); err != nil {
			failed(err)
			return
		}
		for _, bind := range cfg.binders {
			if err := bind(r, &params); err != nil {
				if errors.Is(err, ErrNotApplicable) {
					continue
				}
				failed(err)
				return
			}
		}

		lc.advance(r.Context(), invoke)
		resp := final(ctx, params)
		if resp == nil {
			failed(ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			failed(err)
			return
		}
		lc.advance(r.Context(), convert)
	}
}

// WrapTyped is Wrap for handlers that return a value and an error. The value
// goes through Convert.
//
//	func createUser(ctx handler.Context, p CreateUser) (handler.Response, error) {
//		u, err := users.Create(ctx, p.Body)
//		if err != nil {
//			return nil, err
//		}
//		return handler.Status(u, http.StatusCreated), nil
//	}
func WrapTyped[C Context, P, R any](h TypedHandlerFunc[C, P, R], opts ...WrapOption[C, P]) http.HandlerFunc {
	return Wrap(func(ctx C, params P) Response {
		res, err := h(ctx, params)
		if err != nil {
			return errorResponse{err: err}
		}
		return Convert(res)
	}, opts...)
}
