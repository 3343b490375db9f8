package binder

import (
	"errors"
	"fmt"
)

var (
	ErrReadBody         = errors.New("failed to read request body")
	ErrBodyTooLarge     = errors.New("request body too large")
	ErrMissingBoundary  = errors.New("multipart boundary is missing")
	ErrInvalidMultipart = errors.New("malformed multipart body")
	ErrInvalidForm      = errors.New("malformed form body")
	ErrUnknownCharset   = errors.New("unknown charset")
)

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.v) }
