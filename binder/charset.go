package binder

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/encoding/htmlindex"
)

// decodeCharset converts b from the named charset to UTF-8. Names follow the
// WHATWG encoding labels ("latin1", "windows-1251", "shift_jis", ...).
func decodeCharset(charset string, b []byte) (string, error) {
	if isUTF8(charset) {
		return string(b), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownCharset, charset)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownCharset, err)
	}
	return string(out), nil
}

// decodeJSON decodes with numbers kept as json.Number.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
