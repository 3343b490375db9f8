package binder

import (
	"reflect"
	"strings"

	"github.com/dmitrymomot/autobind/core"
	"github.com/dmitrymomot/autobind/pkg/materializer"
)

// Kind identifies an extraction strategy.
type Kind string

const (
	KindJSON           Kind = "json"
	KindMultipartForm  Kind = "multipart_form"
	KindBinary         Kind = "binary"
	KindMultipartMixed Kind = "multipart_mixed"
	KindFormURLEncoded Kind = "form_urlencoded"
	KindYAML           Kind = "yaml"
	KindDefault        Kind = "default"
)

// MediaType is a parsed Content-Type.
type MediaType struct {
	Type   string
	Params map[string]string
}

// Param returns a media type parameter such as "charset" or "boundary".
func (m MediaType) Param(name string) string {
	return m.Params[name]
}

// Target describes the model a strategy extracts for.
type Target struct {
	Type reflect.Type
	// Schema is nil when Type is not a struct.
	Schema *materializer.Schema
}

// FileFields returns the fields that can hold uploads.
func (t Target) FileFields() []materializer.Field {
	if t.Schema == nil {
		return nil
	}
	var out []materializer.Field
	for _, f := range t.Schema.Fields {
		if IsFileType(f.Type) {
			out = append(out, f)
		}
	}
	return out
}

// BytesFields returns the []byte fields.
func (t Target) BytesFields() []materializer.Field {
	if t.Schema == nil {
		return nil
	}
	var out []materializer.Field
	for _, f := range t.Schema.Fields {
		if f.Type == bytesType {
			out = append(out, f)
		}
	}
	return out
}

// Extraction is the raw data a strategy pulled out of a request.
type Extraction struct {
	// Fields holds scalars, lists, nested maps, uploads and blobs keyed by
	// external field name.
	Fields   map[string]any
	Strategy Kind
	// Target is the model to construct; an override may differ from the
	// requested one.
	Target reflect.Type
	// Payload is the raw body of a binary request.
	Payload *FileUpload
	// UseDefault asks for a default-constructed Target instead of Fields.
	UseDefault bool
	// EmptyBody reports that UseDefault was caused by a missing body.
	EmptyBody bool
}

// Strategy extracts raw fields for one family of content types.
type Strategy interface {
	Kind() Kind
	CanHandle(mediaType string) bool
	Extract(req Request, media MediaType, target Target) (Extraction, *core.Error)
}

// DefaultStrategies returns the built-in strategies in dispatch order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		JSONStrategy{},
		MultipartFormStrategy{},
		BinaryStrategy{},
		MultipartMixedStrategy{},
		FormURLEncodedStrategy{},
		YAMLStrategy{},
	}
}

// DefaultStrategy matches anything and asks for a default instance.
type DefaultStrategy struct{}

func (DefaultStrategy) Kind() Kind { return KindDefault }

func (DefaultStrategy) CanHandle(string) bool { return true }

func (DefaultStrategy) Extract(Request, MediaType, Target) (Extraction, *core.Error) {
	return Extraction{Strategy: KindDefault, UseDefault: true}, nil
}

func bodyError(err error) *core.Error {
	return core.NewContentProcessingError("failed to read request body", err)
}

func isJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
