package binder

import (
	"bytes"
	"errors"

	"github.com/dmitrymomot/autobind/core"
)

// MultipartFormStrategy handles multipart/form-data.
type MultipartFormStrategy struct{}

func (MultipartFormStrategy) Kind() Kind { return KindMultipartForm }

func (MultipartFormStrategy) CanHandle(mediaType string) bool {
	return mediaType == "multipart/form-data"
}

// Extract returns the flat form fields. When the target declares upload
// fields, each is filled through Uploads.Pick and a missing upload is an
// error.
func (MultipartFormStrategy) Extract(req Request, media MediaType, target Target) (Extraction, *core.Error) {
	if media.Param("boundary") == "" {
		return Extraction{}, core.NewContentProcessingError("multipart boundary is missing", ErrMissingBoundary)
	}
	body, err := req.Body()
	if err != nil {
		return Extraction{}, bodyError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Extraction{}, core.NewEmptyPayloadError("multipart body is empty")
	}

	form, err := req.Form(media)
	if err != nil {
		return Extraction{}, formError(err)
	}
	files, err := req.Files(media)
	if err != nil {
		return Extraction{}, formError(err)
	}

	fields := flatten(form)
	for _, f := range target.FileFields() {
		v, ok := files.For(f.Key, f.Type)
		if !ok {
			return Extraction{}, core.NewMissingFileError(f.Key)
		}
		fields[f.Key] = v
	}
	return Extraction{Strategy: KindMultipartForm, Fields: fields}, nil
}

// FormURLEncodedStrategy handles application/x-www-form-urlencoded.
type FormURLEncodedStrategy struct{}

func (FormURLEncodedStrategy) Kind() Kind { return KindFormURLEncoded }

func (FormURLEncodedStrategy) CanHandle(mediaType string) bool {
	return mediaType == "application/x-www-form-urlencoded"
}

// Extract returns the flat form fields decoded from the declared charset.
// An empty body falls back to a default instance.
func (FormURLEncodedStrategy) Extract(req Request, media MediaType, _ Target) (Extraction, *core.Error) {
	body, err := req.Body()
	if err != nil {
		return Extraction{}, bodyError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Extraction{Strategy: KindFormURLEncoded, UseDefault: true, EmptyBody: true}, nil
	}

	form, err := req.Form(media)
	if err != nil {
		return Extraction{}, formError(err)
	}
	return Extraction{Strategy: KindFormURLEncoded, Fields: flatten(form)}, nil
}

func formError(err error) *core.Error {
	switch {
	case errors.Is(err, ErrBodyTooLarge), errors.Is(err, ErrReadBody):
		return bodyError(err)
	case errors.Is(err, ErrMissingBoundary):
		return core.NewContentProcessingError("multipart boundary is missing", err)
	case errors.Is(err, ErrUnknownCharset):
		return core.NewContentProcessingError("unsupported charset", err)
	}
	return core.NewContentProcessingError("failed to parse form", err)
}
