package cache

import "errors"

var (
	ErrInvalidPolicy  = errors.New("cache: invalid eviction policy")
	ErrInvalidMaxSize = errors.New("cache: max size must be positive")
	ErrTypeMismatch   = errors.New("cache: named cache exists with different key or value type")
)
