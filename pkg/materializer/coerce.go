package materializer

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/dmitrymomot/autobind/pkg/validator"
)

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// Coerce converts a raw scalar (typically a path or header string) to t.
func Coerce(t reflect.Type, raw any) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if err := coerceScalar(v, raw); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

// assign converts raw into dst, recursing into nested models through their
// schemas. Failures are reported against key.
func (m *Materializer) assign(dst reflect.Value, raw any, strict bool, key string) validator.ValidationErrors {
	if raw == nil {
		return nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}

	t := dst.Type()
	if t.Kind() == reflect.Pointer {
		ptr := reflect.New(t.Elem())
		if errs := m.assign(ptr.Elem(), raw, strict, key); len(errs) > 0 {
			return errs
		}
		dst.Set(ptr)
		return nil
	}

	if values, ok := raw.([]string); ok && t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		if len(values) == 0 {
			return nil
		}
		raw = values[0]
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return typeErr(key, t, coerceText(dst, raw))
	}

	switch t.Kind() {
	case reflect.Struct:
		return m.assignStruct(dst, raw, strict, key)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if s, ok := raw.(string); ok {
				dst.SetBytes([]byte(s))
				return nil
			}
			return typeErr(key, t, fmt.Errorf("cannot use %T as bytes", raw))
		}
		return m.assignSlice(dst, raw, strict, key)
	case reflect.Map:
		return m.assignMap(dst, raw, strict, key)
	case reflect.Interface:
		return typeErr(key, t, fmt.Errorf("%T does not implement %s", raw, t))
	}
	return typeErr(key, t, coerceScalar(dst, raw))
}

func (m *Materializer) assignStruct(dst reflect.Value, raw any, strict bool, key string) validator.ValidationErrors {
	obj, err := asObject(raw)
	if err != nil {
		return typeErr(key, dst.Type(), err)
	}
	schema, err := m.Schema(dst.Type())
	if err != nil {
		return typeErr(key, dst.Type(), err)
	}

	v, errs := m.build(schema, obj, strict)
	if len(errs) > 0 {
		var out validator.ValidationErrors
		out.Merge(key, errs)
		return out
	}
	dst.Set(v)
	return nil
}

func (m *Materializer) assignSlice(dst reflect.Value, raw any, strict bool, key string) validator.ValidationErrors {
	items := NormalizeList(raw)
	out := reflect.MakeSlice(dst.Type(), len(items), len(items))
	var errs validator.ValidationErrors
	for i, item := range items {
		errs = append(errs, m.assign(out.Index(i), item, strict, key+"."+strconv.Itoa(i))...)
	}
	if len(errs) > 0 {
		return errs
	}
	dst.Set(out)
	return nil
}

func (m *Materializer) assignMap(dst reflect.Value, raw any, strict bool, key string) validator.ValidationErrors {
	t := dst.Type()
	if t.Key().Kind() != reflect.String {
		return typeErr(key, t, fmt.Errorf("unsupported map key %s", t.Key()))
	}
	obj, err := asObject(raw)
	if err != nil {
		return typeErr(key, t, err)
	}
	out := reflect.MakeMapWithSize(t, len(obj))
	var errs validator.ValidationErrors
	for k, item := range obj {
		elem := reflect.New(t.Elem()).Elem()
		if e := m.assign(elem, item, strict, key+"."+k); len(e) > 0 {
			errs = append(errs, e...)
			continue
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), elem)
	}
	if len(errs) > 0 {
		return errs
	}
	dst.Set(out)
	return nil
}

// asObject accepts a decoded object or a string holding a JSON object.
func asObject(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if !strings.HasPrefix(s, "{") {
			return nil, fmt.Errorf("expected object, got string")
		}
		var obj map[string]any
		if err := decodeJSON([]byte(s), &obj); err != nil {
			return nil, err
		}
		return obj, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		obj := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[iter.Key().String()] = iter.Value().Interface()
		}
		return obj, nil
	}
	return nil, fmt.Errorf("expected object, got %T", raw)
}

func coerceText(dst reflect.Value, raw any) error {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case json.Number:
		text = v.String()
	case []byte:
		text = string(v)
	case bool, int, int64, float64:
		text = fmt.Sprint(v)
	default:
		return fmt.Errorf("cannot use %T as text", raw)
	}
	return dst.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text))
}

// coerceScalar sets string, bool and numeric kinds from raw request values.
func coerceScalar(dst reflect.Value, raw any) error {
	t := dst.Type()
	if t.Kind() == reflect.Pointer {
		ptr := reflect.New(t.Elem())
		if err := coerceScalar(ptr.Elem(), raw); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return coerceText(dst, raw)
	}

	rv := reflect.ValueOf(raw)
	if rv.IsValid() && rv.Type().ConvertibleTo(t) && rv.Kind() == t.Kind() {
		dst.Set(rv.Convert(t))
		return nil
	}

	switch t.Kind() {
	case reflect.String:
		switch v := raw.(type) {
		case string:
			dst.SetString(v)
		case json.Number:
			dst.SetString(v.String())
		default:
			return fmt.Errorf("cannot use %T as string", raw)
		}

	case reflect.Bool:
		b, err := toBool(raw)
		if err != nil {
			return err
		}
		dst.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(raw)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, t)
		}
		dst.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt(raw)
		if err != nil {
			return err
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("value %d out of range for %s", n, t)
		}
		dst.SetUint(uint64(n))

	case reflect.Float32, reflect.Float64:
		f, err := toFloat(raw)
		if err != nil {
			return err
		}
		if dst.OverflowFloat(f) {
			return fmt.Errorf("value %v overflows %s", f, t)
		}
		dst.SetFloat(f)

	default:
		return fmt.Errorf("unsupported type %s", t)
	}
	return nil
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case json.Number:
		return v.String() != "0", nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b, nil
		}
		// Be lenient with boolean values
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "yes", "y":
			return true, nil
		case "off", "no", "n", "":
			return false, nil
		}
		return false, fmt.Errorf("invalid bool value %q", v)
	}
	return false, fmt.Errorf("cannot use %T as bool", raw)
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid int value %q", v.String())
		}
		return integral(f)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid int value %q", v)
		}
		return integral(f)
	case float64:
		return integral(v)
	case float32:
		return integral(float64(v))
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", rv.Uint())
		}
		return int64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("cannot use %T as int", raw)
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("value %v is not an integer", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value %v overflows int64", f)
	}
	return int64(f), nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float value %q", v)
		}
		return f, nil
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("cannot use %T as float", raw)
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func typeErr(key string, t reflect.Type, err error) validator.ValidationErrors {
	if err == nil {
		return nil
	}
	return validator.ValidationErrors{validator.Coerced(key, typeName(t), err).Error}
}

func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map, reflect.Struct:
		if t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(textUnmarshalerType) {
			return t.String()
		}
		return "object"
	}
	return t.String()
}
