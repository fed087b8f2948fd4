package objectstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type FSStore struct {
	root     string
	maxBytes int64
}

func NewFS(root string, maxBytes int64) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage dir is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, err
	}
	return &FSStore{root: abs, maxBytes: maxBytes}, nil
}

func (s *FSStore) resolve(key string) (string, error) {
	if !ValidKey(key) {
		return "", ErrInvalidKey
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidKey
	}
	return full, nil
}

func (s *FSStore) Put(ctx context.Context, prefix, filename, contentType string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	key, ct, err := newKey(prefix, filename, contentType)
	if err != nil {
		return Object{}, err
	}
	full, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return Object{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return Object{}, err
	}
	size, err := io.Copy(tmp, &limitReader{r: r, max: s.maxBytes})
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return Object{}, err
	}
	return Object{Key: key, ContentType: ct, Size: size}, nil
}

func (s *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, Object{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Object{}, err
	}
	return f, Object{Key: key, ContentType: contentTypeFor(key), Size: st.Size()}, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
