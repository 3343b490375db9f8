package validator

import (
	"errors"
	"slices"
	"strings"
)

type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ValidationError is one failed check on one field. TranslationKey doubles as
// the stable code reported to clients.
type ValidationError struct {
	Field             string
	Message           string
	TranslationKey    string
	TranslationValues map[string]any
}

// code returns TranslationKey, or Message for rules built without one.
func (e ValidationError) code() string {
	if e.TranslationKey != "" {
		return e.TranslationKey
	}
	return e.Message
}

// ValidationErrors collects field failures in the order they were found.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, err := range ve {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Field + ": " + err.Message)
	}
	return b.String()
}

func (ve *ValidationErrors) Add(err ValidationError) {
	*ve = append(*ve, err)
}

// Merge appends other, nesting its field names under prefix
// ("address" + "zip" -> "address.zip").
func (ve *ValidationErrors) Merge(prefix string, other ValidationErrors) {
	for _, err := range other {
		if prefix != "" {
			err.Field = prefix + "." + err.Field
		}
		ve.Add(err)
	}
}

func (ve ValidationErrors) Has(field string) bool {
	return slices.ContainsFunc(ve, func(e ValidationError) bool { return e.Field == field })
}

// Messages returns the messages recorded for field.
func (ve ValidationErrors) Messages(field string) []string {
	var out []string
	for _, err := range ve {
		if err.Field == field {
			out = append(out, err.Message)
		}
	}
	return out
}

// Fields returns each failing field once, in first-seen order.
func (ve ValidationErrors) Fields() []string {
	var out []string
	for _, err := range ve {
		if !slices.Contains(out, err.Field) {
			out = append(out, err.Field)
		}
	}
	return out
}

// Codes groups codes by field, the shape used in error payloads.
func (ve ValidationErrors) Codes() map[string][]string {
	if len(ve) == 0 {
		return nil
	}
	out := make(map[string][]string, len(ve))
	for _, err := range ve {
		out[err.Field] = append(out[err.Field], err.code())
	}
	return out
}

// Rule pairs a check with the error reported when it fails.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Apply runs every rule and returns the failures as ValidationErrors, or nil.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if !rule.Check() {
			errs.Add(rule.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ExtractValidationErrors returns the ValidationErrors in err's chain, or nil.
func ExtractValidationErrors(err error) ValidationErrors {
	var ve ValidationErrors
	if err != nil && errors.As(err, &ve) {
		return ve
	}
	return nil
}

func IsValidationError(err error) bool {
	return ExtractValidationErrors(err) != nil
}
