package materializer

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ErrNotStruct is returned when a schema is requested for a non-struct type.
var ErrNotStruct = errors.New("materializer: model must be a struct or pointer to struct")

// Field is the binding metadata of one model field.
type Field struct {
	Name       string       // Go field name
	Key        string       // external key in raw data
	Index      []int        // path for reflect.Value.FieldByIndex
	Type       reflect.Type // declared type
	Required   bool         // must be supplied when there is no default
	Default    string       // raw `default` tag value
	HasDefault bool
}

// Schema describes how raw data maps onto a struct type.
type Schema struct {
	Type   reflect.Type
	Fields []Field
	byKey  map[string]int
	byFold map[string]int
}

// Lookup resolves a raw key to a field: exact key first, then case-insensitive.
func (s *Schema) Lookup(key string) (Field, bool) {
	if i, ok := s.byKey[key]; ok {
		return s.Fields[i], true
	}
	if i, ok := s.byFold[strings.ToLower(key)]; ok {
		return s.Fields[i], true
	}
	return Field{}, false
}

// FieldsOf returns every field whose declared type, after pointers, is t.
func (s *Schema) FieldsOf(t reflect.Type) []Field {
	var out []Field
	for _, f := range s.Fields {
		ft := f.Type
		for ft.Kind() == reflect.Pointer || ft.Kind() == reflect.Slice {
			ft = ft.Elem()
		}
		if ft == t {
			out = append(out, f)
		}
	}
	return out
}

// match splits raw into per-field values and keys the schema does not declare.
// Exact key matches win over case-insensitive ones.
func (s *Schema) match(raw map[string]any) (values []any, present []bool, unknown []string) {
	values = make([]any, len(s.Fields))
	present = make([]bool, len(s.Fields))

	var folded []string
	for key, v := range raw {
		if i, ok := s.byKey[key]; ok {
			values[i], present[i] = v, true
			continue
		}
		folded = append(folded, key)
	}
	sort.Strings(folded)
	for _, key := range folded {
		i, ok := s.byFold[strings.ToLower(key)]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if !present[i] {
			values[i], present[i] = raw[key], true
		}
	}
	return values, present, unknown
}

func buildSchema(t reflect.Type) (*Schema, error) {
	st := indirect(t)
	if st == nil || st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %v", ErrNotStruct, t)
	}

	s := &Schema{
		Type:   st,
		byKey:  make(map[string]int),
		byFold: make(map[string]int),
	}
	collectFields(s, st, nil)
	return s, nil
}

func collectFields(s *Schema, t reflect.Type, parent []int) {
	for i := range t.NumField() {
		sf := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		key, omitempty, skip := parseFieldTag(sf)
		if skip || !sf.IsExported() && !sf.Anonymous {
			continue
		}

		// Untagged embedded structs contribute their fields directly.
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && !hasNameTag(sf) {
			collectFields(s, sf.Type, index)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if _, dup := s.byKey[key]; dup {
			continue
		}

		def, hasDef := sf.Tag.Lookup("default")
		f := Field{
			Name:       sf.Name,
			Key:        key,
			Index:      index,
			Type:       sf.Type,
			Default:    def,
			HasDefault: hasDef,
			Required:   !hasDef && !omitempty && !optionalKind(sf.Type),
		}
		s.byKey[key] = len(s.Fields)
		if _, ok := s.byFold[strings.ToLower(key)]; !ok {
			s.byFold[strings.ToLower(key)] = len(s.Fields)
		}
		s.Fields = append(s.Fields, f)
	}
}

var nameTags = []string{"json", "form", "query"}

// parseFieldTag returns the external key: the first name found in the json,
// form or query tags, else the Go field name. "-" skips the field.
func parseFieldTag(sf reflect.StructField) (key string, omitempty, skip bool) {
	for _, tagName := range nameTags {
		tag, ok := sf.Tag.Lookup(tagName)
		if !ok {
			continue
		}
		if tag == "-" {
			return "", false, true
		}
		name, opts, _ := strings.Cut(tag, ",")
		if strings.Contains(","+opts+",", ",omitempty,") {
			omitempty = true
		}
		if key == "" && name != "" {
			key = name
		}
	}
	if key == "" {
		key = sf.Name
	}
	return key, omitempty, false
}

func hasNameTag(sf reflect.StructField) bool {
	for _, tagName := range nameTags {
		if _, ok := sf.Tag.Lookup(tagName); ok {
			return true
		}
	}
	return false
}

func optionalKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
