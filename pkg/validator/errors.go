package validator

import "errors"

var (
	// ErrValidationFailed is returned when validation fails but no specific error is provided.
	ErrValidationFailed = errors.New("validation failed")

	// ErrFieldRequired is returned when a required field is missing.
	ErrFieldRequired = errors.New("field is required")

	// ErrUnknownField is returned when strict validation meets an undeclared field.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidType is returned when a raw value cannot be coerced to the field type.
	ErrInvalidType = errors.New("invalid type")
)

// Translation keys produced by the schema rules.
const (
	KeyRequired     = "validation.required"
	KeyUnknownField = "validation.unknown_field"
	KeyInvalidType  = "validation.type"
	KeyInvalid      = "validation.invalid"
	KeyMinLength    = "validation.min_length"
	KeyMaxLength    = "validation.max_length"
	KeyMin          = "validation.min"
	KeyMax          = "validation.max"
)
