package binder

import (
	"bytes"

	"github.com/dmitrymomot/autobind/core"
)

// JSONStrategy handles application/json and any +json suffix.
type JSONStrategy struct{}

func (JSONStrategy) Kind() Kind { return KindJSON }

func (JSONStrategy) CanHandle(mediaType string) bool { return isJSONMediaType(mediaType) }

// Extract decodes the body as an object. Anything else, including an empty or
// malformed body, falls back to a default instance.
func (JSONStrategy) Extract(req Request, _ MediaType, _ Target) (Extraction, *core.Error) {
	body, err := req.Body()
	if err != nil {
		return Extraction{}, bodyError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Extraction{Strategy: KindJSON, UseDefault: true, EmptyBody: true}, nil
	}
	obj := req.JSON()
	if obj == nil {
		return Extraction{Strategy: KindJSON, UseDefault: true}, nil
	}
	return Extraction{Strategy: KindJSON, Fields: obj}, nil
}
