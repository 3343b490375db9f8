package validator

import "fmt"

// Present fails when a required field was not supplied.
func Present(field string, supplied bool) Rule {
	return Rule{
		Check: func() bool {
			return supplied
		},
		Error: ValidationError{
			Field:             field,
			Message:           ErrFieldRequired.Error(),
			TranslationKey:    KeyRequired,
			TranslationValues: map[string]any{"field": field},
		},
	}
}

// Known fails when strict validation meets a field the model does not declare.
func Known(field string, declared bool) Rule {
	return Rule{
		Check: func() bool {
			return declared
		},
		Error: ValidationError{
			Field:             field,
			Message:           ErrUnknownField.Error(),
			TranslationKey:    KeyUnknownField,
			TranslationValues: map[string]any{"field": field},
		},
	}
}

// Coerced fails when a raw value could not be converted to the field type.
func Coerced(field, want string, err error) Rule {
	msg := fmt.Sprintf("expected %s", want)
	if err != nil {
		msg = fmt.Sprintf("expected %s: %v", want, err)
	}
	return Rule{
		Check: func() bool {
			return err == nil
		},
		Error: ValidationError{
			Field:             field,
			Message:           msg,
			TranslationKey:    KeyInvalidType,
			TranslationValues: map[string]any{"field": field, "type": want},
		},
	}
}
