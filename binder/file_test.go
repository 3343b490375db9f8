package binder_test

import (
	"context"
	"io"
	"net/textproto"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/autobind/binder"
	"github.com/dmitrymomot/autobind/pkg/file"
)

func TestFileUpload(t *testing.T) {
	t.Parallel()

	t.Run("content type", func(t *testing.T) {
		t.Parallel()
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", "image/png; foo=bar")
		assert.Equal(t, "image/png", binder.NewFileUpload("f", "x.bin", h, nil).ContentType())
		assert.Equal(t, "application/pdf", binder.NewFileUpload("f", "doc.pdf", nil, nil).ContentType())
	})

	t.Run("open", func(t *testing.T) {
		t.Parallel()
		up := binder.NewFileUpload("f", "a.txt", nil, []byte("hello"))
		rc, err := up.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
		assert.Equal(t, int64(5), up.Size)
	})

	t.Run("save to local storage", func(t *testing.T) {
		t.Parallel()
		storage, err := file.NewLocalStorage(t.TempDir(), "/files/")
		require.NoError(t, err)

		up := binder.NewFileUpload("avatar", "../me.txt", nil, []byte("hello"))
		stored, err := up.Save(context.Background(), storage, "avatars/")
		require.NoError(t, err)
		assert.Equal(t, "avatars/me.txt", stored.RelativePath)
		assert.Equal(t, int64(5), stored.Size)
		assert.Equal(t, "/files/avatars/me.txt", storage.URL(stored.RelativePath))
	})
}

func TestUploads_Pick(t *testing.T) {
	t.Parallel()

	a := binder.NewFileUpload("avatar", "a", nil, nil)
	f := binder.NewFileUpload("file", "f", nil, nil)
	d := binder.NewFileUpload("document", "d", nil, nil)
	x := binder.NewFileUpload("other", "x", nil, nil)

	tests := []struct {
		name    string
		uploads binder.Uploads
		param   string
		want    *binder.FileUpload
	}{
		{"exact name", binder.Uploads{"document": {d}, "file": {f}}, "document", d},
		{"file fallback", binder.Uploads{"file": {f}, "avatar": {a}}, "photo", f},
		{"avatar fallback", binder.Uploads{"avatar": {a}, "other": {x}}, "photo", a},
		{"sole upload", binder.Uploads{"other": {x}}, "photo", x},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.uploads.Pick(tt.param)
			require.True(t, ok)
			assert.Same(t, tt.want, got)
		})
	}

	t.Run("ambiguous", func(t *testing.T) {
		t.Parallel()
		_, ok := binder.Uploads{"x": {x}, "d": {d}}.Pick("photo")
		assert.False(t, ok)
	})

	t.Run("all is ordered", func(t *testing.T) {
		t.Parallel()
		u := binder.Uploads{"b": {x}, "a": {a, f}}
		assert.Equal(t, []*binder.FileUpload{a, f, x}, u.All())
		assert.Equal(t, 3, u.Len())
	})
}

func TestUploads_For(t *testing.T) {
	t.Parallel()

	a := binder.NewFileUpload("images", "a.png", nil, []byte("a"))
	b := binder.NewFileUpload("images", "b.png", nil, []byte("b"))
	f := binder.NewFileUpload("file", "f.txt", nil, []byte("f"))
	u := binder.Uploads{"images": {a, b}, "file": {f}}

	t.Run("slice of pointers takes every upload under the name", func(t *testing.T) {
		t.Parallel()
		got, ok := u.For("images", reflect.TypeFor[[]*binder.FileUpload]())
		require.True(t, ok)
		assert.Equal(t, []*binder.FileUpload{a, b}, got)
	})

	t.Run("slice of values", func(t *testing.T) {
		t.Parallel()
		got, ok := u.For("images", reflect.TypeFor[[]binder.FileUpload]())
		require.True(t, ok)
		assert.Equal(t, []binder.FileUpload{*a, *b}, got)
	})

	t.Run("slice falls back to a single pick", func(t *testing.T) {
		t.Parallel()
		got, ok := u.For("docs", reflect.TypeFor[[]*binder.FileUpload]())
		require.True(t, ok)
		assert.Equal(t, []*binder.FileUpload{f}, got)
	})

	t.Run("pointer and value", func(t *testing.T) {
		t.Parallel()
		got, ok := u.For("images", reflect.TypeFor[*binder.FileUpload]())
		require.True(t, ok)
		assert.Same(t, a, got)

		got, ok = u.For("images", reflect.TypeFor[binder.FileUpload]())
		require.True(t, ok)
		assert.Equal(t, *a, got)
	})

	t.Run("nothing to pick", func(t *testing.T) {
		t.Parallel()
		_, ok := binder.Uploads{}.For("file", reflect.TypeFor[*binder.FileUpload]())
		assert.False(t, ok)
	})
}

func TestIsFileType(t *testing.T) {
	t.Parallel()

	assert.True(t, binder.IsFileType(reflect.TypeFor[binder.FileUpload]()))
	assert.True(t, binder.IsFileType(reflect.TypeFor[*binder.FileUpload]()))
	assert.True(t, binder.IsFileType(reflect.TypeFor[[]*binder.FileUpload]()))
	assert.True(t, binder.IsFileType(reflect.TypeFor[[]binder.FileUpload]()))
	assert.False(t, binder.IsFileType(reflect.TypeFor[[]byte]()))
	assert.False(t, binder.IsFileType(reflect.TypeFor[string]()))
}
