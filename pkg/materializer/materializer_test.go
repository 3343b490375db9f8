package materializer_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autobind/core"
	"github.com/dmitrymomot/autobind/pkg/cache"
	"github.com/dmitrymomot/autobind/pkg/materializer"
	"github.com/dmitrymomot/autobind/pkg/validator"
)

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type address struct {
	Street string `json:"street"`
	City   string `json:"city" default:"Berlin"`
}

type profile struct {
	ID       uuid.UUID         `json:"id"`
	Name     string            `json:"name"`
	Nickname *string           `json:"nickname"`
	Tags     []string          `json:"tags"`
	Scores   []int             `json:"scores"`
	Active   bool              `json:"active" default:"true"`
	Ratio    float64           `json:"ratio,omitempty"`
	Address  address           `json:"address,omitempty"`
	Meta     map[string]string `json:"meta"`
	Joined   time.Time         `json:"joined,omitempty"`
}

type optionalBody struct {
	Page  int    `json:"page" default:"1"`
	Sort  string `json:"sort" default:"created_at"`
	Query *string
}

type signup struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s signup) Validate() error {
	return validator.Apply(
		validator.RequiredString("email", s.Email),
		validator.MinLenString("password", s.Password, 8),
	)
}

type plainHook struct {
	Value int `json:"value"`
}

func (p *plainHook) Validate() error {
	if p.Value < 0 {
		return errors.New("value must not be negative")
	}
	return nil
}

func newMaterializer() *materializer.Materializer {
	return materializer.New(cache.MustNewRegistry())
}

func TestCreate_JSONRoundTrip(t *testing.T) {
	t.Parallel()
	m := newMaterializer()

	t.Run("valid payload", func(t *testing.T) {
		t.Parallel()
		var raw map[string]any
		require.NoError(t, json.Unmarshal([]byte(`{"name":"Ann","age":3}`), &raw))

		p, err := materializer.Materialize[person](m, raw)
		require.Nil(t, err)
		assert.Equal(t, "Ann", p.Name)
		assert.Equal(t, 3, p.Age)
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()
		_, err := materializer.Materialize[person](m, map[string]any{"name": "Ann"})
		require.NotNil(t, err)
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.True(t, err.HasField("age"))
		assert.Equal(t, []string{validator.KeyRequired}, err.Details["age"])
	})

	t.Run("pointer target", func(t *testing.T) {
		t.Parallel()
		p, err := materializer.Materialize[*person](m, map[string]any{"name": "Bob", "age": json.Number("41")})
		require.Nil(t, err)
		require.NotNil(t, p)
		assert.Equal(t, 41, p.Age)
	})
}

func TestCreate_Stages(t *testing.T) {
	t.Parallel()
	m := newMaterializer()

	t.Run("unknown keys are filtered", func(t *testing.T) {
		t.Parallel()
		p, err := materializer.Materialize[person](m, map[string]any{"name": "Ann", "age": 3, "extra": true})
		require.Nil(t, err)
		assert.Equal(t, "Ann", p.Name)
	})

	t.Run("case-insensitive keys", func(t *testing.T) {
		t.Parallel()
		p, err := materializer.Materialize[person](m, map[string]any{"NAME": "Ann", "Age": "7"})
		require.Nil(t, err)
		assert.Equal(t, "Ann", p.Name)
		assert.Equal(t, 7, p.Age)
	})

	t.Run("default construction rescues optional body", func(t *testing.T) {
		t.Parallel()
		v, err := materializer.Materialize[optionalBody](m, map[string]any{"page": "not-a-number"})
		require.Nil(t, err)
		assert.Equal(t, 1, v.Page)
		assert.Equal(t, "created_at", v.Sort)
	})

	t.Run("type error reported when nothing succeeds", func(t *testing.T) {
		t.Parallel()
		_, err := materializer.Materialize[person](m, map[string]any{"name": "Ann", "age": "three"})
		require.NotNil(t, err)
		assert.Equal(t, []string{validator.KeyInvalidType}, err.Details["age"])
	})

	t.Run("validate hook with field errors", func(t *testing.T) {
		t.Parallel()
		_, err := materializer.Materialize[signup](m, map[string]any{"email": "a@b.c", "password": "short"})
		require.NotNil(t, err)
		assert.Equal(t, []string{validator.KeyMinLength}, err.Details["password"])

		s, err := materializer.Materialize[signup](m, map[string]any{"email": "a@b.c", "password": "long-enough"})
		require.Nil(t, err)
		assert.Equal(t, "a@b.c", s.Email)
	})

	t.Run("validate hook with plain error", func(t *testing.T) {
		t.Parallel()
		_, err := materializer.Materialize[plainHook](m, map[string]any{"value": -1})
		require.NotNil(t, err)
		assert.Equal(t, []string{validator.KeyInvalid}, err.Details["model"])
	})
}

func TestCreate_Coercion(t *testing.T) {
	t.Parallel()
	m := newMaterializer()
	id := uuid.New()

	raw := map[string]any{
		"id":       id.String(),
		"name":     []string{"Ann", "ignored"},
		"nickname": "annie",
		"tags":     "solo",
		"scores":   `[1, 2, 3]`,
		"active":   "off",
		"ratio":    json.Number("0.5"),
		"address":  `{"street":"Main 1"}`,
		"meta":     map[string]any{"k": "v"},
		"joined":   "2024-05-01T10:00:00Z",
	}

	p, err := materializer.Materialize[profile](m, raw)
	require.Nil(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "Ann", p.Name)
	require.NotNil(t, p.Nickname)
	assert.Equal(t, "annie", *p.Nickname)
	assert.Equal(t, []string{"solo"}, p.Tags)
	assert.Equal(t, []int{1, 2, 3}, p.Scores)
	assert.False(t, p.Active)
	assert.InDelta(t, 0.5, p.Ratio, 0.0001)
	assert.Equal(t, "Main 1", p.Address.Street)
	assert.Equal(t, "Berlin", p.Address.City)
	assert.Equal(t, map[string]string{"k": "v"}, p.Meta)
	assert.Equal(t, 2024, p.Joined.Year())
}

func TestCreate_Defaults(t *testing.T) {
	t.Parallel()
	m := newMaterializer()

	p, err := materializer.Materialize[profile](m, map[string]any{"id": uuid.NewString(), "name": "x"})
	require.Nil(t, err)
	assert.True(t, p.Active)
	assert.Nil(t, p.Nickname)
	assert.Nil(t, p.Tags)
}

func TestCreate_NestedErrors(t *testing.T) {
	t.Parallel()
	m := newMaterializer()

	type order struct {
		Shipping address `json:"shipping"`
	}

	_, err := materializer.Materialize[order](m, map[string]any{"shipping": map[string]any{"city": "Rome"}})
	require.NotNil(t, err)
	assert.True(t, err.HasField("shipping.street"))
}

func TestCreate_NotConstructible(t *testing.T) {
	t.Parallel()
	m := newMaterializer()

	_, err := m.Create(reflect.TypeFor[int](), map[string]any{})
	require.NotNil(t, err)
	assert.ErrorIs(t, err, core.ErrModelConstruction)
	assert.ErrorIs(t, err, materializer.ErrNotStruct)
}

func TestDefault(t *testing.T) {
	t.Parallel()
	m := newMaterializer()

	v, err := m.Default(reflect.TypeFor[*optionalBody]())
	require.Nil(t, err)
	body := v.Interface().(*optionalBody)
	assert.Equal(t, 1, body.Page)

	_, err = m.Default(reflect.TypeFor[person]())
	require.NotNil(t, err)
	assert.ErrorIs(t, err, core.ErrModelConstruction)
	assert.True(t, err.HasField("name"))
}

func TestSchema(t *testing.T) {
	t.Parallel()

	reg := cache.MustNewRegistry()
	m := materializer.New(reg)

	type base struct {
		CreatedBy string `json:"created_by,omitempty"`
	}
	type doc struct {
		base
		Title   string `form:"title"`
		Skip    string `json:"-"`
		Body    string
		private string //nolint:unused
	}

	s, err := m.Schema(reflect.TypeFor[*doc]())
	require.NoError(t, err)
	require.Len(t, s.Fields, 3)

	f, ok := s.Lookup("created_by")
	require.True(t, ok)
	assert.False(t, f.Required)

	f, ok = s.Lookup("TITLE")
	require.True(t, ok)
	assert.Equal(t, "Title", f.Name)
	assert.True(t, f.Required)

	_, ok = s.Lookup("Skip")
	assert.False(t, ok)

	_, err = m.Schema(reflect.TypeFor[doc]())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), reg.Stats()[cache.Schemas].Hits)

	assert.Len(t, s.FieldsOf(reflect.TypeFor[string]()), 3)
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	v, err := materializer.Coerce(reflect.TypeFor[int64](), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Interface())

	v, err = materializer.Coerce(reflect.TypeFor[*uint8](), "7")
	require.NoError(t, err)
	assert.Equal(t, uint8(7), *v.Interface().(*uint8))

	v, err = materializer.Coerce(reflect.TypeFor[bool](), "yes")
	require.NoError(t, err)
	assert.Equal(t, true, v.Interface())

	_, err = materializer.Coerce(reflect.TypeFor[int8](), "300")
	assert.Error(t, err)

	_, err = materializer.Coerce(reflect.TypeFor[uint](), "-1")
	assert.Error(t, err)

	_, err = materializer.Coerce(reflect.TypeFor[uuid.UUID](), "not-a-uuid")
	assert.Error(t, err)
}

func TestNormalizeList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
		want []any
	}{
		{"scalar string", "x", []any{"x"}},
		{"json array string", `["a","b"]`, []any{"a", "b"}},
		{"list passes through", []any{"a", "b"}, []any{"a", "b"}},
		{"typed slice", []string{"a", "b"}, []any{"a", "b"}},
		{"broken json stays scalar", `[oops`, []any{"[oops"}},
		{"number", 5, []any{5}},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, materializer.NormalizeList(tt.raw))
		})
	}
}

func TestStage_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "validate", materializer.StageValidate.String())
	assert.Equal(t, "default", materializer.StageDefault.String())
	assert.Equal(t, "none", materializer.Stage(0).String())
}
