// Package autobind binds HTTP requests into typed handler parameters.
//
// A handler declares what it needs as a struct. Field-name prefixes pick the
// part of the request each field comes from:
//
//	type UpdateUser struct {
//		PathID    int                // route parameter "id"
//		QueryOpts struct {           // query string
//			Notify bool `json:"notify"`
//		}
//		Body   UserInput             // request body, any supported content type
//		FileAvatar *binder.FileUpload // uploaded file
//	}
//
//	func updateUser(ctx handler.Context, p UpdateUser) handler.Response {
//		...
//	}
//
// The body is decoded by content type (JSON, YAML, urlencoded and multipart
// forms, multipart/mixed, raw binary) and built through a fallback pipeline:
// strict validation, then construction from known fields, then the model's
// defaults. Failures become a JSON error envelope with a stable code.
//
// This package wires the pieces from configuration:
//
//	cfg, err := autobind.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	b, err := autobind.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//	r.Put("/users/{id}", handler.Wrap(updateUser,
//		handler.WithBinder[handler.Context, UpdateUser](b),
//	))
//
// Configuration is read from AUTOBIND_ variables:
//
//	AUTOBIND_ENV                      development, staging or production
//	AUTOBIND_SERVICE                  service name in log records
//	AUTOBIND_LOG_FORMAT               json or text
//	AUTOBIND_LOG_LEVEL                debug, info, warn or error
//	AUTOBIND_MAX_MEMORY               bytes of multipart data held in memory
//	AUTOBIND_METRICS                  export cache metrics to Prometheus
//	AUTOBIND_PREFIX_{BODY,QUERY,PATH,FILE}
//	AUTOBIND_CACHE_<NAME>_{MAX_SIZE,POLICY,TTL}
//
// where <NAME> is SIGNATURES, SCHEMAS, INSTANCES or CONTENT_TYPES.
//
// Subpackages:
//
//   - handler: Wrap, the Binder, responses and the error handler
//   - binder: request abstraction, uploads and content-type strategies
//   - core: the binding error taxonomy
//   - pkg/signature: parameter struct scanning
//   - pkg/materializer: model construction and coercion
//   - pkg/cache: bounded caches with LRU, LFU and FIFO eviction
package autobind
