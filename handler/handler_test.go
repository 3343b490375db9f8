package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autobind/core"
	"github.com/dmitrymomot/autobind/handler"
	"github.com/dmitrymomot/autobind/pkg/logger"
	"github.com/dmitrymomot/autobind/pkg/requestid"
)

type envelope struct {
	Data  json.RawMessage      `json:"data"`
	Meta  map[string]any       `json:"meta"`
	Error *handler.ErrorDetail `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func serve(h http.HandlerFunc, pattern string, r *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("binds and renders", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		h := handler.Wrap(func(_ handler.Context, p updatePerson) handler.Response {
			return handler.JSON(map[string]any{
				"id":   p.PathID,
				"name": p.Body.Name,
				"page": p.QueryOpts.Page,
			})
		}, handler.WithBinder[handler.Context, updatePerson](b))

		rec := serve(h, "/people/{id}", jsonRequest(http.MethodPut, "/people/9?page=2", `{"name":"Ivy","age":22}`))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"id":9,"name":"Ivy","page":2}`, string(decodeEnvelope(t, rec).Data))
	})

	t.Run("lifecycle on success", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		var lc *handler.Lifecycle
		var during handler.State
		h := handler.Wrap(func(ctx handler.Context, _ updatePerson) handler.Response {
			lc = handler.LifecycleFromContext(ctx)
			during = lc.State()
			return handler.Empty()
		}, handler.WithBinder[handler.Context, updatePerson](b))

		rec := serve(h, "/people/{id}", jsonRequest(http.MethodPut, "/people/1", `{"name":"Jo","age":1}`))
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, lc)
		assert.Equal(t, handler.StateHandlerInvoked, during)
		assert.Equal(t, []handler.State{
			handler.StateUnbound,
			handler.StateContentTypeResolved,
			handler.StateParameterBound,
			handler.StateParameterBound,
			handler.StateParameterBound,
			handler.StateHandlerInvoked,
			handler.StateResponseConverted,
		}, lc.History())
	})

	t.Run("binding failure", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		b, _ := newBinder(t, handler.WithLogger(logger.New(logger.WithOutput(buf))))
		called := false
		h := handler.Wrap(func(handler.Context, updatePerson) handler.Response {
			called = true
			return handler.Empty()
		}, handler.WithBinder[handler.Context, updatePerson](b))

		r := jsonRequest(http.MethodPut, "/people/1", `{"name":"Kim"}`)
		r.Header.Set(requestid.Header, "req-123")
		rec := serve(h, "/people/{id}", r)

		assert.False(t, called)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		env := decodeEnvelope(t, rec)
		require.NotNil(t, env.Error)
		assert.Equal(t, core.CodeValidation, env.Error.Code)
		assert.Equal(t, []string{"validation.required"}, env.Error.Details["age"])
		assert.Equal(t, "req-123", env.Meta["request_id"])
		assert.Equal(t, "req-123", rec.Header().Get(requestid.Header))

		assert.Contains(t, buf.String(), `"level":"WARN"`)
		assert.Contains(t, buf.String(), `"request_id":"req-123"`)
		assert.Contains(t, buf.String(), `"state":"failed"`)
	})

	t.Run("lifecycle on failure", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		var lc *handler.Lifecycle
		var during handler.State
		h := handler.Wrap(func(handler.Context, updatePerson) handler.Response {
			return handler.Empty()
		},
			handler.WithBinder[handler.Context, updatePerson](b),
			handler.WithErrorHandler[handler.Context, updatePerson](func(ctx handler.Context, err error) {
				lc = handler.LifecycleFromContext(ctx)
				during = lc.State()
				ctx.ResponseWriter().WriteHeader(http.StatusTeapot)
			}),
		)

		rec := serve(h, "/people/{id}", jsonRequest(http.MethodPut, "/people/abc", `{}`))
		assert.Equal(t, http.StatusTeapot, rec.Code)
		require.NotNil(t, lc)
		assert.Equal(t, handler.StateFailed, during)
		assert.Equal(t, handler.StateErrorReturned, lc.State())
		assert.Equal(t, []handler.State{
			handler.StateUnbound,
			handler.StateContentTypeResolved,
			handler.StateFailed,
			handler.StateErrorReturned,
		}, lc.History())
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		var got error
		h := handler.Wrap(func(handler.Context, struct{}) handler.Response { return nil },
			handler.WithBinder[handler.Context, struct{}](b),
			handler.WithErrorHandler[handler.Context, struct{}](func(ctx handler.Context, err error) {
				got = err
			}),
		)
		serve(h, "/", httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, got, handler.ErrNilResponse)
	})

	t.Run("render error", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		boom := errors.New("boom")
		h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
			return handler.Convert(boom)
		}, handler.WithBinder[handler.Context, struct{}](b))

		rec := serve(h, "/", httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "internal_error", env.Error.Code)
		assert.NotContains(t, rec.Body.String(), "boom")
	})

	t.Run("decorators run outermost first", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		var order []string
		trace := func(name string) handler.Decorator[handler.Context, struct{}] {
			return func(next handler.HandlerFunc[handler.Context, struct{}]) handler.HandlerFunc[handler.Context, struct{}] {
				return func(ctx handler.Context, p struct{}) handler.Response {
					order = append(order, name+":before")
					resp := next(ctx, p)
					order = append(order, name+":after")
					return resp
				}
			}
		}
		h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
			order = append(order, "handler")
			return handler.Empty()
		},
			handler.WithBinder[handler.Context, struct{}](b),
			handler.WithDecorators(trace("outer"), trace("inner")),
		)

		serve(h, "/", httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"outer:before", "inner:before", "handler", "inner:after", "outer:after"}, order)
	})

	t.Run("extra binders", func(t *testing.T) {
		t.Parallel()
		type params struct {
			QueryOpts listOptions
			Tenant    string `param:"-"`
		}
		b, _ := newBinder(t)
		skip := func(*http.Request, any) error { return handler.ErrNotApplicable }
		tenant := func(r *http.Request, v any) error {
			v.(*params).Tenant = r.Header.Get("X-Tenant")
			return nil
		}

		var got params
		h := handler.Wrap(func(_ handler.Context, p params) handler.Response {
			got = p
			return handler.Empty()
		},
			handler.WithBinder[handler.Context, params](b),
			handler.WithBinders[handler.Context, params](skip, tenant),
		)

		r := httptest.NewRequest(http.MethodGet, "/?page=4", nil)
		r.Header.Set("X-Tenant", "acme")
		rec := serve(h, "/", r)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "acme", got.Tenant)
		assert.Equal(t, 4, got.QueryOpts.Page)
	})

	t.Run("extra binder failure", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		deny := func(*http.Request, any) error { return core.ErrNotFound }
		h := handler.Wrap(func(handler.Context, struct{}) handler.Response { return handler.Empty() },
			handler.WithBinder[handler.Context, struct{}](b),
			handler.WithBinders[handler.Context, struct{}](deny),
		)

		rec := serve(h, "/", httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("custom context", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		h := handler.Wrap(func(ctx *appContext, _ struct{}) handler.Response {
			return handler.Text(ctx.user)
		},
			handler.WithBinder[*appContext, struct{}](b),
			handler.WithContextFactory[*appContext, struct{}](func(w http.ResponseWriter, r *http.Request) *appContext {
				return &appContext{Context: handler.NewContext(w, r), user: r.Header.Get("X-User")}
			}),
		)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-User", "lee")
		rec := serve(h, "/", r)
		assert.Equal(t, "lee", rec.Body.String())
	})

	t.Run("non-struct parameters panic", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		assert.Panics(t, func() {
			handler.Wrap(func(handler.Context, string) handler.Response { return nil },
				handler.WithBinder[handler.Context, string](b))
		})
	})

	t.Run("pointer parameters panic", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		var msg any
		func() {
			defer func() { msg = recover() }()
			handler.Wrap(func(handler.Context, *person) handler.Response { return nil },
				handler.WithBinder[handler.Context, *person](b))
		}()
		require.NotNil(t, msg)
		assert.Contains(t, msg, "*handler_test.person")
	})
}

type appContext struct {
	handler.Context
	user string
}

func TestWrapTyped(t *testing.T) {
	t.Parallel()

	type createPerson struct {
		Body person
	}

	t.Run("value with status", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		h := handler.WrapTyped(func(_ handler.Context, p createPerson) (handler.Response, error) {
			return handler.Status(p.Body, http.StatusCreated), nil
		}, handler.WithBinder[handler.Context, createPerson](b))

		rec := serve(h, "/", jsonRequest(http.MethodPost, "/", `{"name":"Max","age":7}`))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"name":"Max","age":7}`, string(decodeEnvelope(t, rec).Data))
	})

	t.Run("plain values", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		h := handler.WrapTyped(func(handler.Context, struct{}) (string, error) {
			return "pong", nil
		}, handler.WithBinder[handler.Context, struct{}](b))

		rec := serve(h, "/", httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pong", rec.Body.String())
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		b, _ := newBinder(t)
		h := handler.WrapTyped(func(handler.Context, struct{}) (*person, error) {
			return nil, core.NewEmptyPayloadError("nothing to do")
		}, handler.WithBinder[handler.Context, struct{}](b))

		rec := serve(h, "/", httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, core.CodeEmptyPayload, env.Error.Code)
		assert.Equal(t, "nothing to do", env.Error.Message)
		assert.NotEmpty(t, env.Meta["request_id"])
	})
}
