// Package requestid attaches a correlation ID to every HTTP request.
//
// Middleware reuses a well-formed X-Request-ID header or generates a UUID,
// stores the value in the request context and echoes it back. FromRequest and
// FromContext read it; LoggerExtractor adds it to slog records, and the binding
// error payload carries it under meta.request_id.
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	http.ListenAndServe(":8080", requestid.Middleware(mux))
package requestid
