// Package binder extracts raw field data from HTTP requests.
//
// A Request wraps *http.Request, buffers its body once and parses forms and
// uploads lazily. A Dispatcher picks a Strategy by content type and returns
// an Extraction: flat fields keyed by external name plus, for some
// strategies, an opaque payload or a request for a default instance.
//
// Content type resolution, first match wins:
//
//  1. a Resolver callback (WithResolver) may replace the declared type;
//  2. an override (WithOverride) for that media type replaces the target model;
//  3. the declared Content-Type is used as is.
//
// Built-in strategies, in order: JSON (application/json, *+json), multipart
// form, binary (image/*, audio/*, video/*, application/octet-stream),
// multipart/mixed, urlencoded form, YAML. Anything else goes to the default
// strategy, which asks for a default-constructed model.
//
//	d := binder.NewDispatcher(materializer.New(reg), reg)
//	v, err := d.Materialize(ctx, binder.NewRequest(r, 0), reflect.TypeFor[CreateUser]())
//
// Uploads are held in memory as *FileUpload values and can be persisted with
// FileUpload.Save through a pkg/file Storage.
package binder
