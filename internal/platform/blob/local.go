package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type localStore struct {
	log       *logger.Logger
	dir       string
	urlPrefix string
}

func NewLocal(log *logger.Logger, dir, urlPrefix string) (Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("local storage dir required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve local storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage dir: %w", err)
	}
	s := &localStore{
		log:       log.With("service", "LocalBlobStore"),
		dir:       abs,
		urlPrefix: "/" + strings.Trim(strings.TrimSpace(urlPrefix), "/"),
	}
	s.log.Info("Object storage initialized", "mode", "local", "dir", abs, "url_prefix", s.urlPrefix)
	return s, nil
}

func (s *localStore) path(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(cleaned)), nil
}

func (s *localStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	// Write to a sibling temp file so readers never observe a partial blob.
	tmp := p + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

func (s *localStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *localStore) URL(key string) string {
	cleaned, err := CleanKey(key)
	if err != nil {
		return ""
	}
	return s.urlPrefix + "/" + cleaned
}

// Check verifies the root is writable.
func (s *localStore) Check(ctx context.Context) error {
	f, err := os.CreateTemp(s.dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func (s *localStore) Close() error { return nil }

// LocalDir returns the filesystem root when store is disk-backed.
func LocalDir(store Store) (dir string, urlPrefix string, ok bool) {
	ls, ok := store.(*localStore)
	if !ok {
		return "", "", false
	}
	return ls.dir, ls.urlPrefix, true
}
