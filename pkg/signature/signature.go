package signature

import (
	"encoding"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Role is the part of the request a parameter binds from.
type Role uint8

const (
	RoleBody Role = iota + 1
	RoleQuery
	RolePath
	RoleFile
)

func (r Role) String() string {
	switch r {
	case RoleBody:
		return "body"
	case RoleQuery:
		return "query"
	case RolePath:
		return "path"
	case RoleFile:
		return "file"
	}
	return "unknown"
}

// Prefixes maps roles to the field-name prefix that selects them.
type Prefixes struct {
	Body  string `env:"PREFIX_BODY" envDefault:"Body"`
	Query string `env:"PREFIX_QUERY" envDefault:"Query"`
	Path  string `env:"PREFIX_PATH" envDefault:"Path"`
	File  string `env:"PREFIX_FILE" envDefault:"File"`
}

// DefaultPrefixes returns the stock prefix table.
func DefaultPrefixes() Prefixes {
	return Prefixes{Body: "Body", Query: "Query", Path: "Path", File: "File"}
}

// withDefaults fills empty entries from DefaultPrefixes.
func (p Prefixes) withDefaults() Prefixes {
	d := DefaultPrefixes()
	if p.Body == "" {
		p.Body = d.Body
	}
	if p.Query == "" {
		p.Query = d.Query
	}
	if p.Path == "" {
		p.Path = d.Path
	}
	if p.File == "" {
		p.File = d.File
	}
	return p
}

// Descriptor describes one bound parameter. It is immutable once built.
type Descriptor struct {
	Name  string       // Go field name
	Index []int        // field index for reflect.Value.FieldByIndex
	Role  Role         // binding role
	Type  reflect.Type // declared field type
	Field string       // external name for path and file parameters
}

// ParameterMap is the ordered set of descriptors for one parameter struct.
type ParameterMap struct {
	typ         reflect.Type
	descriptors []Descriptor
}

// Type returns the struct type the map was built for.
func (m ParameterMap) Type() reflect.Type {
	return m.typ
}

// Len returns the number of bound parameters.
func (m ParameterMap) Len() int {
	return len(m.descriptors)
}

// Descriptors returns the descriptors in declaration order.
// The slice is a copy; the map itself cannot be modified.
func (m ParameterMap) Descriptors() []Descriptor {
	out := make([]Descriptor, len(m.descriptors))
	for i, d := range m.descriptors {
		d.Index = append([]int(nil), d.Index...)
		out[i] = d
	}
	return out
}

// ByRole returns the descriptors for one role, in declaration order.
func (m ParameterMap) ByRole(role Role) []Descriptor {
	var out []Descriptor
	for _, d := range m.descriptors {
		if d.Role == role {
			out = append(out, d)
		}
	}
	return out
}

// Lookup finds a descriptor by Go field name.
func (m ParameterMap) Lookup(name string) (Descriptor, bool) {
	for _, d := range m.descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Build classifies the exported fields of t (a struct or pointer to struct).
// Fields that match no prefix, or match one with an unsuitable type, are left
// out. Build never fails; a non-struct type yields an empty map.
func Build(t reflect.Type, p Prefixes) ParameterMap {
	m := ParameterMap{typ: t}
	t = indirect(t)
	if t == nil || t.Kind() != reflect.Struct {
		return m
	}
	p = p.withDefaults()

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("param") == "-" {
			continue
		}
		if d, ok := classify(f, p); ok {
			m.descriptors = append(m.descriptors, d)
		}
	}
	return m
}

// Detect reports the body type, the query type and the path parameter names
// declared by t. When several fields share a role the first one wins for body
// and query.
func Detect(t reflect.Type, p Prefixes) (body, query reflect.Type, paths []string) {
	for _, d := range Build(t, p).descriptors {
		switch d.Role {
		case RoleBody:
			if body == nil {
				body = d.Type
			}
		case RoleQuery:
			if query == nil {
				query = d.Type
			}
		case RolePath:
			paths = append(paths, d.Field)
		}
	}
	return body, query, paths
}

func classify(f reflect.StructField, p Prefixes) (Descriptor, bool) {
	d := Descriptor{Name: f.Name, Index: f.Index, Type: f.Type}

	// Longer prefixes win when one prefix starts with another.
	for _, c := range orderedPrefixes(p) {
		rest, ok := cutPrefix(f.Name, c.prefix)
		if !ok {
			continue
		}
		switch c.role {
		case RoleBody, RoleQuery:
			if !isModel(f.Type) {
				return Descriptor{}, false
			}
		case RolePath:
			if !isScalar(f.Type) {
				return Descriptor{}, false
			}
			d.Field = externalName(f, rest, "")
			if d.Field == "" {
				return Descriptor{}, false
			}
		case RoleFile:
			if isScalar(f.Type) {
				return Descriptor{}, false
			}
			d.Field = externalName(f, rest, "file")
		}
		d.Role = c.role
		return d, true
	}
	return Descriptor{}, false
}

type prefixRole struct {
	prefix string
	role   Role
}

func orderedPrefixes(p Prefixes) []prefixRole {
	list := []prefixRole{
		{p.Body, RoleBody},
		{p.Query, RoleQuery},
		{p.Path, RolePath},
		{p.File, RoleFile},
	}
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && len(list[j].prefix) > len(list[j-1].prefix); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
	return list
}

// cutPrefix matches prefix only on a word boundary: the end of the name, an
// underscore, or an upper-case letter or digit after it.
func cutPrefix(name, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(name, prefix) {
		return "", false
	}
	rest := name[len(prefix):]
	if rest == "" {
		return "", true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	switch {
	case r == '_':
		return strings.TrimLeft(rest, "_"), true
	case unicode.IsUpper(r), unicode.IsDigit(r):
		return rest, true
	}
	return "", false
}

func externalName(f reflect.StructField, rest, fallback string) string {
	if tag, _, _ := strings.Cut(f.Tag.Get("param"), ","); tag != "" {
		return tag
	}
	if rest == "" {
		return fallback
	}
	return SnakeCase(rest)
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isModel reports whether t can be materialized and validated: a struct,
// a pointer to one, or an interface resolved at bind time.
func isModel(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return true
	}
	t = indirect(t)
	if t.Kind() != reflect.Struct {
		return false
	}
	// Scalar-like structs such as time.Time are not models.
	return !reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func isScalar(t reflect.Type) bool {
	if reflect.PointerTo(indirect(t)).Implements(textUnmarshalerType) {
		return true
	}
	switch indirect(t).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// SnakeCase converts a Go identifier to snake_case, keeping acronyms together:
// "UserID" becomes "user_id" and "HTTPStatus" becomes "http_status".
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
