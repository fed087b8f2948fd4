package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"props-bible/config"

	"github.com/gofrs/uuid/v5"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrInvalidKey  = errors.New("invalid object key")
	ErrTooLarge    = errors.New("object too large")
	ErrUnsupported = errors.New("unsupported content type")
)

// Object describes a stored blob. Keys look like "<prefix>/<uuid><ext>".
type Object struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Store interface {
	Put(ctx context.Context, prefix, filename, contentType string, r io.Reader) (Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
}

// New picks the backend named in cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewFS(cfg.Dir, cfg.UploadMaxBytes)
	case "s3":
		return NewS3(ctx, cfg.S3, cfg.UploadMaxBytes)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

var imageTypes = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// IsImage reports whether ct is one of the accepted image types.
func IsImage(ct string) bool {
	_, ok := imageTypes[normalizeType(ct)]
	return ok
}

func normalizeType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

func newKey(prefix, filename, contentType string) (string, string, error) {
	prefix = strings.Trim(path.Clean("/"+strings.TrimSpace(prefix)), "/")
	if prefix == "" || strings.Contains(prefix, "..") {
		return "", "", ErrInvalidKey
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", "", err
	}
	ct := normalizeType(contentType)
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if known, ok := imageTypes[ct]; ok {
		ext = known
	}
	if ct == "" {
		ct = mime.TypeByExtension(ext)
		if ct == "" {
			ct = "application/octet-stream"
		}
	}
	if len(ext) > 10 {
		ext = ""
	}
	return prefix + "/" + id.String() + ext, ct, nil
}

// ValidKey rejects absolute keys and any key that would climb out of the root.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	clean := path.Clean(key)
	if clean != key || clean == "." {
		return false
	}
	for _, part := range strings.Split(clean, "/") {
		if part == ".." || part == "" {
			return false
		}
	}
	return true
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// limitReader fails once more than max bytes were read; max <= 0 disables the check.
type limitReader struct {
	r   io.Reader
	max int64
	n   int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.max > 0 && l.n > l.max {
		return n, ErrTooLarge
	}
	return n, err
}
