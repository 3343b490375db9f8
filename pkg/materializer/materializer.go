package materializer

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/dmitrymomot/autobind/core"
	"github.com/dmitrymomot/autobind/pkg/cache"
	"github.com/dmitrymomot/autobind/pkg/validator"
)

// Validatable is implemented by models with cross-field rules. Validate runs
// after construction in the validating and filtering stages.
type Validatable interface {
	Validate() error
}

// Stage names one step of the construction pipeline.
type Stage uint8

const (
	StageValidate Stage = iota + 1
	StageFiltered
	StageDefault
)

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate"
	case StageFiltered:
		return "filtered"
	case StageDefault:
		return "default"
	}
	return "none"
}

// outcome is the tagged result of one stage.
type outcome struct {
	stage Stage
	value reflect.Value
	errs  validator.ValidationErrors
}

func (o outcome) ok() bool {
	return o.value.IsValid() && len(o.errs) == 0
}

// Materializer turns raw field data into typed model instances.
// Schemas are computed once per type and kept in the registry's Schemas cache.
type Materializer struct {
	schemas *cache.Cache[reflect.Type, *Schema]
}

// New creates a materializer. A nil registry uses cache.Default().
func New(reg *cache.Registry) *Materializer {
	if reg == nil {
		reg = cache.Default()
	}
	return &Materializer{
		schemas: cache.Named[reflect.Type, *Schema](reg, cache.Schemas),
	}
}

// Schema returns the cached schema for t.
func (m *Materializer) Schema(t reflect.Type) (*Schema, error) {
	st := indirect(t)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %v", ErrNotStruct, t)
	}
	return m.schemas.GetOrLoad(st, func() (*Schema, error) {
		return buildSchema(st)
	})
}

// Create builds an instance of t from raw. Stages run in order and the first
// success wins:
//
//  1. validate: unknown keys are rejected; values are coerced, defaults
//     applied, required fields checked and the Validate hook run.
//  2. filtered: unknown keys are dropped, otherwise as above.
//  3. default: zero value plus defaults; required fields must have one.
//
// When every stage fails the error is a validation error carrying the field
// codes from the filtered stage. A type that cannot be constructed at all
// yields a model construction error.
func (m *Materializer) Create(t reflect.Type, raw map[string]any) (v reflect.Value, cerr *core.Error) {
	schema, err := m.Schema(t)
	if err != nil {
		return reflect.Value{}, core.NewModelConstructionError(typeLabel(t), err)
	}
	defer recoverConstruction(t, &v, &cerr)

	first := m.tryValidate(schema, raw)
	if first.ok() {
		return wrap(t, first.value), nil
	}
	second := m.tryFilteredConstruct(schema, raw)
	if second.ok() {
		return wrap(t, second.value), nil
	}
	if third := m.tryDefaultConstruct(schema); third.ok() {
		return wrap(t, third.value), nil
	}

	errs := second.errs
	if len(errs) == 0 {
		errs = first.errs
	}
	return reflect.Value{}, core.NewValidationError(errs.Codes())
}

// Default builds an instance of t from defaults alone. It backs requests whose
// payload is absent or unparseable.
func (m *Materializer) Default(t reflect.Type) (v reflect.Value, cerr *core.Error) {
	schema, err := m.Schema(t)
	if err != nil {
		return reflect.Value{}, core.NewModelConstructionError(typeLabel(t), err)
	}
	defer recoverConstruction(t, &v, &cerr)

	out := m.tryDefaultConstruct(schema)
	if !out.ok() {
		e := core.NewModelConstructionError(typeLabel(t), out.errs)
		e.Details = out.errs.Codes()
		return reflect.Value{}, e
	}
	return wrap(t, out.value), nil
}

// Materialize is the typed form of Create.
func Materialize[T any](m *Materializer, raw map[string]any) (T, *core.Error) {
	var zero T
	v, err := m.Create(reflect.TypeFor[T](), raw)
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

func (m *Materializer) tryValidate(s *Schema, raw map[string]any) outcome {
	v, errs := m.build(s, raw, true)
	return outcome{stage: StageValidate, value: v, errs: errs}
}

func (m *Materializer) tryFilteredConstruct(s *Schema, raw map[string]any) outcome {
	v, errs := m.build(s, raw, false)
	return outcome{stage: StageFiltered, value: v, errs: errs}
}

func (m *Materializer) tryDefaultConstruct(s *Schema) outcome {
	v := reflect.New(s.Type).Elem()
	var errs validator.ValidationErrors
	for _, f := range s.Fields {
		if f.HasDefault {
			errs = append(errs, m.assign(v.FieldByIndex(f.Index), f.Default, false, f.Key)...)
			continue
		}
		if f.Required {
			errs = append(errs, validator.Present(f.Key, false).Error)
		}
	}
	return outcome{stage: StageDefault, value: v, errs: errs}
}

// build constructs one struct value. In strict mode nested models also reject
// unknown keys; otherwise they are dropped at every level.
func (m *Materializer) build(s *Schema, raw map[string]any, strict bool) (reflect.Value, validator.ValidationErrors) {
	values, present, unknown := s.match(raw)
	v := reflect.New(s.Type).Elem()

	var errs validator.ValidationErrors
	if strict {
		sort.Strings(unknown)
		for _, key := range unknown {
			errs = append(errs, validator.Known(key, false).Error)
		}
	}

	for i, f := range s.Fields {
		dst := v.FieldByIndex(f.Index)
		switch {
		case present[i] && values[i] != nil:
			errs = append(errs, m.assign(dst, values[i], strict, f.Key)...)
		case f.HasDefault:
			errs = append(errs, m.assign(dst, f.Default, strict, f.Key)...)
		case f.Required:
			errs = append(errs, validator.Present(f.Key, false).Error)
		}
	}
	if len(errs) > 0 {
		return reflect.Value{}, errs
	}

	if hook, ok := v.Addr().Interface().(Validatable); ok {
		if err := hook.Validate(); err != nil {
			if verrs := validator.ExtractValidationErrors(err); verrs != nil {
				return reflect.Value{}, verrs
			}
			return reflect.Value{}, validator.ValidationErrors{{
				Field:          "model",
				Message:        err.Error(),
				TranslationKey: validator.KeyInvalid,
			}}
		}
	}
	return v, nil
}

// wrap returns v as t, taking its address when t is a pointer to the struct.
func wrap(t reflect.Type, v reflect.Value) reflect.Value {
	if t.Kind() != reflect.Pointer {
		return v
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	for ptr.Type() != t {
		outer := reflect.New(ptr.Type())
		outer.Elem().Set(ptr)
		ptr = outer
	}
	return ptr
}

func recoverConstruction(t reflect.Type, v *reflect.Value, cerr **core.Error) {
	if r := recover(); r != nil {
		*v = reflect.Value{}
		*cerr = core.NewModelConstructionError(typeLabel(t), fmt.Errorf("%w: %v", errPanic, r))
	}
}

var errPanic = errors.New("panic during construction")

func typeLabel(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
