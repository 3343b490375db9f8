// Package handler binds HTTP requests to typed parameter structs and turns
// handler results into responses.
//
// A handler receives a Context and a parameter struct. The struct's exported
// fields are classified by name prefix and filled in declaration order:
//
//	type UpdateAvatar struct {
//		PathUserID int                 // route parameter "user_id"
//		QueryOpts  AvatarOptions       // query string, materialized as a model
//		Body       AvatarMeta          // request body, any supported content type
//		File       *binder.FileUpload  // upload from a multipart or binary body
//	}
//
//	func updateAvatar(ctx handler.Context, p UpdateAvatar) handler.Response {
//		stored, err := p.File.Save(ctx, storage, "avatars/")
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(stored)
//	}
//
//	r.Put("/users/{user_id}/avatar", handler.Wrap(updateAvatar))
//
// # Binding
//
// Binder drives the work for each request. Body fields go through the
// content type dispatcher and the materializer; identical payloads reuse a
// cached instance. Query fields are materialized from the query string. Path
// fields are read with a PathExtractor (chi route parameters, then
// http.Request.PathValue) and coerced to the field type. File fields receive
// uploads chosen by field name with fallbacks, or a file-bearing model built
// from a multipart or binary body.
//
// Binding stops at the first failure and the handler is not invoked. The
// error is a *core.Error carrying a stable code and HTTP status.
//
// # Lifecycle
//
// Each wrapped request walks a small state machine, exposed through
// LifecycleFromContext:
//
//	unbound -> content_type_resolved -> parameter_bound* -> handler_invoked -> response_converted
//	        \-> failed -> error_returned
//
// Transitions are recorded as events on the "autobind.bind" OpenTelemetry
// span, which is a no-op unless a tracer provider is installed.
//
// # Responses
//
// HandlerFunc returns a Response (JSON, JSONError, Empty, Text, Bytes).
// TypedHandlerFunc returns a value and an error; the value goes through
// Convert, and Status(v, code) overrides the status it would use.
//
// # Errors
//
// The default error handler writes
//
//	{"error":{"code":"validation_error","message":"...","details":{"age":["validation.required"]}},"meta":{"request_id":"..."}}
//
// and logs through slog at warn for 4xx and error for 5xx.
package handler
