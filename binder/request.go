package binder

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// DefaultMaxMemory bounds the buffered request body (10 MiB).
const DefaultMaxMemory = 10 << 20

// Request is the read-only view of an HTTP request used by strategies.
// Every accessor is safe to call repeatedly; the body is read once.
type Request interface {
	// ContentType returns the raw Content-Type header.
	ContentType() string
	Header(name string) string
	// Body returns the buffered body.
	Body() ([]byte, error)
	// JSON decodes the body as a JSON object. A body that is empty, not
	// JSON or not an object yields nil.
	JSON() map[string]any
	// Form returns the form values of the body read as media, which is the
	// resolved media type and may differ from the declared header.
	Form(media MediaType) (url.Values, error)
	// Files returns the multipart uploads of the body read as media, keyed
	// by field name.
	Files(media MediaType) (Uploads, error)
	Query() url.Values
}

type httpRequest struct {
	r         *http.Request
	maxMemory int64

	bodyOnce sync.Once
	body     []byte
	bodyErr  error

	formMu sync.Mutex
	forms  map[string]*parsedForm
}

type parsedForm struct {
	form  url.Values
	files Uploads
	err   error
}

// NewRequest adapts r. maxMemory caps the body; zero or less means
// DefaultMaxMemory.
func NewRequest(r *http.Request, maxMemory int64) Request {
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}
	return &httpRequest{r: r, maxMemory: maxMemory}
}

func (h *httpRequest) ContentType() string { return h.r.Header.Get("Content-Type") }

func (h *httpRequest) Header(name string) string { return h.r.Header.Get(name) }

func (h *httpRequest) Query() url.Values { return h.r.URL.Query() }

func (h *httpRequest) Body() ([]byte, error) {
	h.bodyOnce.Do(func() {
		if h.r.Body == nil || h.r.Body == http.NoBody {
			return
		}
		data, err := io.ReadAll(io.LimitReader(h.r.Body, h.maxMemory+1))
		_ = h.r.Body.Close()
		if err != nil {
			h.bodyErr = fmt.Errorf("%w: %v", ErrReadBody, err)
			return
		}
		if int64(len(data)) > h.maxMemory {
			h.bodyErr = fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, h.maxMemory)
			return
		}
		h.body = data
		h.r.Body = io.NopCloser(bytes.NewReader(data))
	})
	return h.body, h.bodyErr
}

func (h *httpRequest) JSON() map[string]any {
	body, err := h.Body()
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var obj map[string]any
	if err := decodeJSON(body, &obj); err != nil {
		return nil
	}
	return obj
}

func (h *httpRequest) Form(media MediaType) (url.Values, error) {
	p := h.parseForm(media)
	return p.form, p.err
}

func (h *httpRequest) Files(media MediaType) (Uploads, error) {
	p := h.parseForm(media)
	return p.files, p.err
}

// parseForm parses the body once per distinct media type. Only the type,
// boundary and charset affect the result.
func (h *httpRequest) parseForm(media MediaType) *parsedForm {
	key := media.Type + ";" + media.Param("boundary") + ";" + media.Param("charset")

	h.formMu.Lock()
	defer h.formMu.Unlock()
	if p, ok := h.forms[key]; ok {
		return p
	}
	if h.forms == nil {
		h.forms = make(map[string]*parsedForm, 1)
	}

	p := &parsedForm{form: url.Values{}, files: Uploads{}}
	h.forms[key] = p

	body, err := h.Body()
	if err != nil {
		p.err = err
		return p
	}
	switch media.Type {
	case "multipart/form-data":
		p.form, p.files, p.err = parseMultipart(body, media.Param("boundary"), h.maxMemory)
	case "application/x-www-form-urlencoded":
		p.form, p.err = parseURLEncoded(body, media.Param("charset"))
	}
	if p.form == nil {
		p.form = url.Values{}
	}
	if p.files == nil {
		p.files = Uploads{}
	}
	return p
}

func parseMultipart(body []byte, boundary string, maxMemory int64) (url.Values, Uploads, error) {
	if boundary == "" {
		return nil, nil, ErrMissingBoundary
	}
	form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(maxMemory)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidMultipart, err)
	}
	defer func() { _ = form.RemoveAll() }()

	files := make(Uploads, len(form.File))
	for field, headers := range form.File {
		for _, fh := range headers {
			up, err := readFileHeader(field, fh)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrInvalidMultipart, err)
			}
			files[field] = append(files[field], up)
		}
	}
	return url.Values(form.Value), files, nil
}

func parseURLEncoded(body []byte, charset string) (url.Values, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	if isUTF8(charset) {
		return values, nil
	}

	decoded := make(url.Values, len(values))
	for k, vs := range values {
		key, err := decodeCharset(charset, []byte(k))
		if err != nil {
			return nil, err
		}
		for _, v := range vs {
			s, err := decodeCharset(charset, []byte(v))
			if err != nil {
				return nil, err
			}
			decoded[key] = append(decoded[key], s)
		}
	}
	return decoded, nil
}

// flatten turns form values into raw fields: one value stays a string,
// repeated values become []string.
func flatten(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			out[k] = vs[0]
		default:
			out[k] = append([]string(nil), vs...)
		}
	}
	return out
}

func isUTF8(charset string) bool {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8", "us-ascii":
		return true
	}
	return false
}
