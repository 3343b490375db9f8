package binder

import (
	"mime"
	"net/textproto"
	"strings"

	"github.com/dmitrymomot/autobind/core"
)

// BinaryStrategy handles raw uploads: images, audio, video and
// application/octet-stream.
type BinaryStrategy struct{}

func (BinaryStrategy) Kind() Kind { return KindBinary }

func (BinaryStrategy) CanHandle(mediaType string) bool {
	if mediaType == "application/octet-stream" {
		return true
	}
	major, _, _ := strings.Cut(mediaType, "/")
	switch major {
	case "image", "audio", "video":
		return true
	}
	return false
}

// Extract wraps the body in an upload named after the Content-Disposition
// filename ("file" when absent). The upload goes to a "file" field if the
// target has one, otherwise to its first upload field. It is always
// available as Payload, and []byte fields receive the raw content.
func (BinaryStrategy) Extract(req Request, media MediaType, target Target) (Extraction, *core.Error) {
	body, err := req.Body()
	if err != nil {
		return Extraction{}, bodyError(err)
	}
	if len(body) == 0 {
		return Extraction{}, core.NewEmptyPayloadError("binary body is empty")
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", media.Type)
	if cd := req.Header("Content-Disposition"); cd != "" {
		header.Set("Content-Disposition", cd)
	}
	up := NewFileUpload(DefaultFileField, dispositionFilename(req.Header("Content-Disposition")), header, body)

	fields := map[string]any{}
	fileFields := target.FileFields()
	for _, f := range fileFields {
		if f.Key == DefaultFileField {
			fields[f.Key] = uploadValue(f.Type, []*FileUpload{up})
			break
		}
	}
	if len(fields) == 0 && len(fileFields) > 0 {
		f := fileFields[0]
		fields[f.Key] = uploadValue(f.Type, []*FileUpload{up})
	}
	for _, f := range target.BytesFields() {
		fields[f.Key] = body
	}

	return Extraction{Strategy: KindBinary, Fields: fields, Payload: up}, nil
}

func dispositionFilename(cd string) string {
	if cd == "" {
		return DefaultFileField
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil || params["filename"] == "" {
		return DefaultFileField
	}
	return params["filename"]
}
