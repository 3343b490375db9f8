package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Fingerprint derives a deterministic key from a model identity and raw input.
// Maps are flattened to sorted key/value pairs so equal payloads yield equal keys
// regardless of iteration order. Values with no canonical form (pointers,
// functions, channels, structs) degrade to "type:identity"; in that case
// shareable is false and the key must not be used to share results between
// requests.
func Fingerprint(model string, raw any) (key string, shareable bool) {
	var b strings.Builder
	shareable = canonical(&b, reflect.ValueOf(raw))
	sum := sha256.Sum256([]byte(b.String()))
	return model + ":" + hex.EncodeToString(sum[:16]), shareable
}

func canonical(b *strings.Builder, v reflect.Value) bool {
	if !v.IsValid() {
		b.WriteString("null")
		return true
	}

	if n, ok := v.Interface().(json.Number); ok {
		b.WriteString("n:")
		b.WriteString(n.String())
		return true
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			b.WriteString("null")
			return true
		}
		return canonical(b, v.Elem())
	case reflect.String:
		b.WriteString(strconv.Quote(v.String()))
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString("n:")
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString("n:")
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString("n:")
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case reflect.Slice:
		if v.IsNil() {
			b.WriteString("null")
			return true
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b.WriteString("b:")
			b.WriteString(base64.StdEncoding.EncodeToString(v.Bytes()))
			return true
		}
		return canonicalList(b, v)
	case reflect.Array:
		return canonicalList(b, v)
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("null")
			return true
		}
		return canonicalMap(b, v)
	case reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		fmt.Fprintf(b, "%s:%#x", v.Type(), v.Pointer())
		return false
	default:
		fmt.Fprintf(b, "%s:%v", v.Type(), v.Interface())
		return false
	}
	return true
}

func canonicalList(b *strings.Builder, v reflect.Value) bool {
	shareable := true
	b.WriteByte('[')
	for i := range v.Len() {
		if i > 0 {
			b.WriteByte(',')
		}
		if !canonical(b, v.Index(i)) {
			shareable = false
		}
	}
	b.WriteByte(']')
	return shareable
}

func canonicalMap(b *strings.Builder, v reflect.Value) bool {
	type pair struct {
		key string
		val reflect.Value
	}
	pairs := make([]pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{key: fmt.Sprint(iter.Key().Interface()), val: iter.Value()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	shareable := true
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(p.key))
		b.WriteByte(':')
		if !canonical(b, p.val) {
			shareable = false
		}
	}
	b.WriteByte('}')
	return shareable
}
