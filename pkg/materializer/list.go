package materializer

import (
	"reflect"
	"strings"
)

// NormalizeList turns a raw value into a list before validation: a string that
// looks like a JSON array is parsed, a list passes through, and any other value
// becomes a one-element list. Nil stays nil.
func NormalizeList(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return v
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			var items []any
			if err := decodeJSON([]byte(s), &items); err == nil {
				return items
			}
		}
		return []any{v}
	case []byte:
		return []any{v}
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items
	}
	return []any{raw}
}
