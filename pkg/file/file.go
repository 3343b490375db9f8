package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// File represents stored file metadata.
type File struct {
	Filename     string
	Size         int64
	MIMEType     string
	Extension    string
	AbsolutePath string
	RelativePath string
}

// Source is an upload that can be persisted. Open must return a fresh reader
// on every call.
type Source interface {
	OriginalName() string
	Open() (io.ReadCloser, error)
}

// Storage persists uploads to a backend.
type Storage interface {
	// Save stores src under path. A path ending in "/" (or empty) is treated
	// as a directory and the sanitized original name is appended.
	Save(ctx context.Context, src Source, path string) (*File, error)
	// Delete removes a single file.
	Delete(ctx context.Context, path string) error
	// Exists checks if a file exists.
	Exists(ctx context.Context, path string) bool
	// URL returns the public URL for a file.
	URL(path string) string
}

type bytesSource struct {
	name string
	data []byte
}

func (b bytesSource) OriginalName() string { return b.name }

func (b bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// FromBytes wraps an in-memory payload as a Source.
func FromBytes(name string, data []byte) Source {
	return bytesSource{name: name, data: data}
}

type headerSource struct {
	fh *multipart.FileHeader
}

func (h headerSource) OriginalName() string { return h.fh.Filename }

func (h headerSource) Open() (io.ReadCloser, error) { return h.fh.Open() }

// FromHeader wraps a parsed multipart file header as a Source.
func FromHeader(fh *multipart.FileHeader) Source {
	if fh == nil {
		return nil
	}
	return headerSource{fh: fh}
}

var imageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".bmp",
	".tiff", ".tif", ".heic", ".heif", ".avif", ".jxl",
}

// IsImage reports whether src is an image. Content sniffing wins; the
// extension is only consulted when the content cannot be read.
func IsImage(src Source) bool {
	if src == nil {
		return false
	}
	mimeType, err := DetectMIMEType(src)
	if err == nil && mimeType != "" {
		return strings.HasPrefix(mimeType, "image/")
	}
	return slices.Contains(imageExtensions, strings.ToLower(Extension(src.OriginalName())))
}

// Extension returns the file extension including the dot.
func Extension(name string) string {
	return filepath.Ext(name)
}

// DetectMIMEType sniffs the first 512 bytes of src.
func DetectMIMEType(src Source) (string, error) {
	if src == nil {
		return "", ErrNilSource
	}

	r, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	defer func() { _ = r.Close() }()

	// 512 bytes is the maximum http.DetectContentType reads
	buffer := make([]byte, 512)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}
	return http.DetectContentType(buffer[:n]), nil
}

// ValidateMIMEType checks the sniffed type of src against allowedTypes.
// No types means everything is allowed.
func ValidateMIMEType(src Source, allowedTypes ...string) error {
	if src == nil {
		return ErrNilSource
	}
	if len(allowedTypes) == 0 {
		return nil
	}

	mimeType, err := DetectMIMEType(src)
	if err != nil {
		return err
	}
	// DetectContentType appends parameters such as "; charset=utf-8".
	base, _, _ := strings.Cut(mimeType, ";")
	if slices.Contains(allowedTypes, strings.TrimSpace(base)) {
		return nil
	}
	return fmt.Errorf("MIME type %s not in allowed types %v: %w", mimeType, allowedTypes, ErrMIMETypeNotAllowed)
}

// ReadAll reads the whole content of src.
func ReadAll(src Source) ([]byte, error) {
	if src == nil {
		return nil, ErrNilSource
	}

	r, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}
	return data, nil
}

// Hash returns the hex digest of src. A nil hash defaults to SHA-256.
func Hash(src Source, h hash.Hash) (string, error) {
	if src == nil {
		return "", ErrNilSource
	}
	if h == nil {
		h = sha256.New()
	}

	r, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	defer func() { _ = r.Close() }()

	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToHashFile, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SanitizeFilename strips directories, NUL bytes and control characters and
// normalizes the name to NFC. Returns "unnamed" when nothing usable is left.
//
//	file.SanitizeFilename("../../../etc/passwd")   // "passwd"
//	file.SanitizeFilename("C:\\Windows\\file.txt") // "file.txt"
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, filename)
	filename = norm.NFC.String(strings.TrimSpace(filename))

	if filename == "." || filename == ".." || filename == "" || filename == "/" {
		filename = "unnamed"
	}
	return filename
}

// targetPath appends the sanitized source name when path denotes a directory.
func targetPath(path string, src Source) (string, string) {
	filename := SanitizeFilename(src.OriginalName())
	if path == "" || strings.HasSuffix(path, "/") || filepath.Base(path) == "." {
		return filepath.ToSlash(filepath.Join(path, filename)), filename
	}
	return path, filename
}
