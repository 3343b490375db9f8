package binder_test

import (
	"bytes"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autobind/binder"
	"github.com/dmitrymomot/autobind/pkg/cache"
	"github.com/dmitrymomot/autobind/pkg/materializer"
)

type upload struct {
	field, filename string
	content         []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

type mixedPart struct {
	contentType string
	body        string
}

func mixedBody(t *testing.T, parts ...mixedPart) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, "multipart/mixed; boundary=" + w.Boundary()
}

func newRequest(method, contentType string, body []byte) binder.Request {
	return binder.NewRequest(newHTTPRequest(method, contentType, body), 0)
}

func newDispatcher(t *testing.T, opts ...binder.DispatcherOption) (*binder.Dispatcher, *cache.Registry) {
	t.Helper()
	reg := cache.MustNewRegistry()
	return binder.NewDispatcher(materializer.New(reg), reg, opts...), reg
}

func target(t *testing.T, v any) binder.Target {
	t.Helper()
	m := materializer.New(cache.MustNewRegistry())
	typ := reflect.TypeOf(v)
	schema, err := m.Schema(typ)
	require.NoError(t, err)
	return binder.Target{Type: typ, Schema: schema}
}

func mediaOf(t *testing.T, contentType string) binder.MediaType {
	t.Helper()
	mt, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	return binder.MediaType{Type: mt, Params: params}
}

func newHTTPRequest(method, contentType string, body []byte) *http.Request {
	r := httptest.NewRequest(method, "/", bytes.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}
