package binder

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/dmitrymomot/autobind/core"
)

// Bucket names used by MultipartMixedStrategy.
const (
	BucketJSON   = "json"
	BucketBinary = "binary"
	BucketText   = "text"
)

// MultipartMixedStrategy handles multipart/mixed bodies.
type MultipartMixedStrategy struct{}

func (MultipartMixedStrategy) Kind() Kind { return KindMultipartMixed }

func (MultipartMixedStrategy) CanHandle(mediaType string) bool {
	return mediaType == "multipart/mixed"
}

// Extract sorts parts into the json, binary and text buckets by their own
// Content-Type. A bucket with one part holds the value itself; several parts
// make a list. JSON parts that do not decode are skipped, and a body with no
// usable part is an error.
func (MultipartMixedStrategy) Extract(req Request, media MediaType, _ Target) (Extraction, *core.Error) {
	boundary := media.Param("boundary")
	if boundary == "" {
		return Extraction{}, core.NewContentProcessingError("multipart boundary is missing", ErrMissingBoundary)
	}
	body, err := req.Body()
	if err != nil {
		return Extraction{}, bodyError(err)
	}

	buckets := map[string][]any{}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(buckets) > 0 {
				break
			}
			return Extraction{}, core.NewContentProcessingError("malformed multipart/mixed body", err)
		}

		bucket, value, ok := decodePart(part)
		_ = part.Close()
		if ok {
			buckets[bucket] = append(buckets[bucket], value)
		}
	}
	if len(buckets) == 0 {
		return Extraction{}, core.NewContentProcessingError("multipart/mixed body has no decodable parts", nil)
	}

	fields := make(map[string]any, len(buckets))
	for name, values := range buckets {
		if len(values) == 1 {
			fields[name] = values[0]
			continue
		}
		fields[name] = values
	}
	return Extraction{Strategy: KindMultipartMixed, Fields: fields}, nil
}

func decodePart(part *multipart.Part) (bucket string, value any, ok bool) {
	data, err := io.ReadAll(part)
	if err != nil {
		return "", nil, false
	}

	mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
	if err != nil {
		// RFC 2046 default for parts without a type.
		mediaType, params = "text/plain", nil
	}

	switch {
	case isJSONMediaType(mediaType):
		var v any
		if err := decodeJSON(data, &v); err != nil {
			return "", nil, false
		}
		return BucketJSON, v, true
	case strings.HasPrefix(mediaType, "text/"):
		text, err := decodeCharset(params["charset"], data)
		if err != nil {
			return "", nil, false
		}
		return BucketText, text, true
	}

	name := part.FileName()
	if name == "" {
		name = DefaultFileField
	}
	return BucketBinary, NewFileUpload(part.FormName(), name, part.Header, data), true
}
