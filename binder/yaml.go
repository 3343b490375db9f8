package binder

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/autobind/core"
)

// YAMLStrategy handles YAML documents.
type YAMLStrategy struct{}

func (YAMLStrategy) Kind() Kind { return KindYAML }

func (YAMLStrategy) CanHandle(mediaType string) bool {
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}

// Extract decodes the first document into a mapping. Like JSON, empty or
// malformed input falls back to a default instance.
func (YAMLStrategy) Extract(req Request, _ MediaType, _ Target) (Extraction, *core.Error) {
	body, err := req.Body()
	if err != nil {
		return Extraction{}, bodyError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Extraction{Strategy: KindYAML, UseDefault: true, EmptyBody: true}, nil
	}

	var obj map[string]any
	if err := yaml.Unmarshal(body, &obj); err != nil || obj == nil {
		return Extraction{Strategy: KindYAML, UseDefault: true}, nil
	}
	return Extraction{Strategy: KindYAML, Fields: obj}, nil
}
