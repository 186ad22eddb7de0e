package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// MediaPrefix - путь, по которому сервер раздает локальные файлы.
const MediaPrefix = "/media/"

// LocalStore складывает файлы в каталог и раздает их по MediaPrefix.
type LocalStore struct {
	fs afero.Fs
}

func NewLocal(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve media dir: %w", err)
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return NewLocalFs(afero.NewBasePathFs(osFs, abs)), nil
}

// NewLocalFs работает поверх произвольной afero.Fs; в тестах - MemMapFs.
func NewLocalFs(fs afero.Fs) *LocalStore {
	return &LocalStore{fs: fs}
}

func (s *LocalStore) Put(ctx context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	if err := s.fs.MkdirAll(path.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmp := clean + ".part"
	if err := afero.WriteReader(s.fs, tmp, readerWithContext(ctx, body)); err != nil {
		_ = s.fs.Remove(tmp)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := s.fs.Rename(tmp, clean); err != nil {
		_ = s.fs.Remove(tmp)
		return "", fmt.Errorf("commit object: %w", err)
	}

	return MediaPrefix + strings.TrimPrefix(clean, "/"), nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(clean); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// cleanKey не дает ключу выйти за корень хранилища.
func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return clean, nil
}

// Handler раздает сохраненные файлы; монтируется на MediaPrefix.
func (s *LocalStore) Handler() http.Handler {
	return http.StripPrefix(strings.TrimSuffix(MediaPrefix, "/"), http.FileServer(afero.NewHttpFs(s.fs).Dir("/")))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
