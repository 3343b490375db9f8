// Package materializer converts raw request data (decoded JSON objects, form
// dictionaries, multipart fields) into typed, validated model instances.
//
// A model is a struct. Each exported field is looked up by the name in its
// json, form or query tag (in that order), falling back to the Go field name,
// first exactly and then case-insensitively. A `default:"..."` tag supplies a
// value when the key is absent. Pointer, slice, map and interface fields, and
// fields tagged omitempty, are optional; every other field is required.
//
// Create runs a fallback pipeline and returns the first success:
//
//	validate -> filtered -> default
//
// The validate stage is strict and rejects unknown keys. The filtered stage
// drops them, so extra client fields are tolerated. The default stage builds
// the model from defaults alone, which keeps endpoints with optional bodies
// working. If all three fail, Create returns a 422 validation error with
// per-field codes.
//
// Slice fields are normalized before validation: a JSON-array string is parsed,
// a list passes through, and a single scalar becomes a one-element list.
//
// Models implementing Validatable get their Validate method called after
// construction; returning validator.ValidationErrors keeps field detail.
package materializer
