// Package signature classifies the fields of a handler's parameter struct into
// binding roles by naming convention.
//
// A field binds from the request body, the query string, a path parameter or
// an uploaded file when its name starts with the configured prefix for that
// role ("Body", "Query", "Path" and "File" by default) on a word boundary:
//
//	type params struct {
//		BodyUser    CreateUser          // request body
//		QueryFilter Filter              // query string
//		PathUserID  string              // path parameter "user_id"
//		FileAvatar  *binder.FileUpload  // upload "avatar"
//		Logger      *slog.Logger        // ignored
//	}
//
// Body and query fields must be structs (or pointers to structs); a prefixed
// scalar is silently skipped. Path fields must be scalars. The external name of
// path and file parameters is the snake_cased remainder after the prefix, or
// the value of a `param:"..."` tag. A bare "File" field binds the upload named
// "file".
//
// Build is a pure function of the type and the prefix table; Scanner caches its
// result per type so reflection happens once per parameter struct.
package signature
