// Package validator provides small composable validation rules and the
// ValidationErrors collection used for field-level failure details.
//
// A Rule pairs a Check function with translation-friendly error metadata.
// Apply evaluates rules and aggregates failures into ValidationErrors, which
// implements error:
//
//	func (u CreateUser) Validate() error {
//		return validator.Apply(
//			validator.RequiredString("name", u.Name),
//			validator.MaxLenString("name", u.Name, 100),
//			validator.MinNum("age", u.Age, 0),
//		)
//	}
//
// The schema rules (Present, Known, Coerced) are what the materializer reports
// when raw request data does not fit a model. Codes groups translation keys by
// field, which is the shape of the details map in error responses.
package validator
