// Package logger builds *slog.Logger values with functional options and
// shared attribute helpers.
//
// New picks a JSON or text handler and wraps it in LogHandlerDecorator, which
// appends attributes pulled from the record's context (request IDs, for
// instance) every time a record is handled.
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Production, "api"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.DebugContext(ctx, "strategy selected",
//	    logger.ContentType("application/json"),
//	    logger.Strategy("json"),
//	)
//
// Attribute helpers (Error, RequestID, ContentType, Strategy, Role, Model,
// CacheName and friends) keep key names consistent across packages. Error and
// RequestID return an empty Attr for empty input, which slog drops.
package logger
