package binder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/dmitrymomot/autobind/pkg/file"
)

// DefaultFileField is the external name used when an upload has no better one.
const DefaultFileField = "file"

// fallbackFileFields are tried, in order, after the exact field name.
var fallbackFileFields = []string{DefaultFileField, "avatar"}

// FileUpload is an uploaded file held in memory.
type FileUpload struct {
	// Filename is the name supplied by the client, unsanitized.
	Filename string
	Size     int64
	Header   textproto.MIMEHeader
	Content  []byte

	field string
}

// NewFileUpload wraps content as an upload received under field.
func NewFileUpload(field, filename string, header textproto.MIMEHeader, content []byte) *FileUpload {
	if header == nil {
		header = textproto.MIMEHeader{}
	}
	return &FileUpload{
		Filename: filename,
		Size:     int64(len(content)),
		Header:   header,
		Content:  content,
		field:    field,
	}
}

// Name returns the form field the upload arrived under.
func (f *FileUpload) Name() string {
	return f.field
}

// ContentType returns the part's declared media type, falling back to the
// type registered for the file extension.
func (f *FileUpload) ContentType() string {
	if ct := f.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}
	return mime.TypeByExtension(filepath.Ext(f.Filename))
}

// OriginalName returns Filename. It makes FileUpload a file.Source.
func (f *FileUpload) OriginalName() string {
	return f.Filename
}

// Open returns a reader over the content.
func (f *FileUpload) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Content)), nil
}

// Bytes returns the content.
func (f *FileUpload) Bytes() []byte {
	return f.Content
}

// Save persists the upload through storage. A path ending in "/" stores the
// file under its sanitized original name.
func (f *FileUpload) Save(ctx context.Context, storage file.Storage, path string) (*file.File, error) {
	return storage.Save(ctx, f, path)
}

// Uploads maps form field names to their uploads.
type Uploads map[string][]*FileUpload

// Len returns the total number of uploads.
func (u Uploads) Len() int {
	n := 0
	for _, files := range u {
		n += len(files)
	}
	return n
}

// All returns every upload ordered by field name.
func (u Uploads) All() []*FileUpload {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []*FileUpload
	for _, k := range keys {
		out = append(out, u[k]...)
	}
	return out
}

// Pick selects the upload for a parameter named name: an upload under the
// exact name, then under "file", then "avatar", then the only upload in the
// request when there is exactly one.
func (u Uploads) Pick(name string) (*FileUpload, bool) {
	for _, key := range append([]string{name}, fallbackFileFields...) {
		if files := u[key]; len(files) > 0 {
			return files[0], true
		}
	}
	if u.Len() == 1 {
		return u.All()[0], true
	}
	return nil, false
}

// For selects and shapes the uploads for a field named name of type t.
// Slice fields take every upload under name when there are any; other
// fields go through Pick.
func (u Uploads) For(name string, t reflect.Type) (any, bool) {
	picked := u[name]
	if len(picked) == 0 || t.Kind() != reflect.Slice {
		up, ok := u.Pick(name)
		if !ok {
			return nil, false
		}
		picked = []*FileUpload{up}
	}
	return uploadValue(t, picked), true
}

// readFileHeader reads a multipart file part into memory.
func readFileHeader(field string, header *multipart.FileHeader) (*FileUpload, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", header.Filename, err)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", header.Filename, err)
	}
	return NewFileUpload(field, header.Filename, header.Header, content), nil
}

var (
	fileUploadType = reflect.TypeFor[FileUpload]()
	bytesType      = reflect.TypeFor[[]byte]()
)

// IsFileType reports whether t can hold an upload: FileUpload, *FileUpload or
// a slice of either.
func IsFileType(t reflect.Type) bool {
	if t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t == fileUploadType
}

// uploadValue shapes uploads for a field of type t.
func uploadValue(t reflect.Type, files []*FileUpload) any {
	if len(files) == 0 {
		return nil
	}
	switch {
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Pointer:
		return files
	case t.Kind() == reflect.Slice:
		out := make([]FileUpload, len(files))
		for i, f := range files {
			out[i] = *f
		}
		return out
	case t.Kind() == reflect.Pointer:
		return files[0]
	}
	return *files[0]
}
