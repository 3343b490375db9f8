package handler

import "errors"

var (
	// ErrNilResponse indicates a handler returned nil instead of a Response.
	ErrNilResponse = errors.New("handler returned nil response")
	// ErrInvalidTarget is returned when Bind receives something other than a
	// non-nil pointer to a struct.
	ErrInvalidTarget = errors.New("bind target must be a non-nil pointer to a struct")
	// ErrNotApplicable lets an additional Bind skip requests it does not handle.
	ErrNotApplicable = errors.New("binder not applicable")
)
