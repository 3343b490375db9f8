package signature

import (
	"reflect"

	"github.com/dmitrymomot/autobind/pkg/cache"
)

// Key identifies a cached parameter map. The same type scanned with two
// prefix tables yields two maps.
type Key struct {
	Type     reflect.Type
	Prefixes Prefixes
}

// Scanner builds parameter maps once per type and prefix table and serves
// repeats from a cache.
type Scanner struct {
	prefixes Prefixes
	cache    *cache.Cache[Key, ParameterMap]
}

// NewScanner creates a scanner backed by the registry's Signatures cache.
// A nil registry uses cache.Default().
func NewScanner(reg *cache.Registry, p Prefixes) *Scanner {
	if reg == nil {
		reg = cache.Default()
	}
	return &Scanner{
		prefixes: p.withDefaults(),
		cache:    cache.Named[Key, ParameterMap](reg, cache.Signatures),
	}
}

// Prefixes returns the prefix table in use.
func (s *Scanner) Prefixes() Prefixes {
	return s.prefixes
}

// Scan returns the parameter map for t, building it on the first call.
func (s *Scanner) Scan(t reflect.Type) ParameterMap {
	m, _ := s.cache.GetOrLoad(Key{Type: t, Prefixes: s.prefixes}, func() (ParameterMap, error) {
		return Build(t, s.prefixes), nil
	})
	return m
}
