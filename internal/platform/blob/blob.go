package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/yungbote/mumble-backend/internal/platform/envutil"
	"github.com/yungbote/mumble-backend/internal/platform/gcp"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store holds the binary side of the pipeline: uploaded audio, generated
// images and their thumbnails. Keys are slash-separated relative paths.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Check(ctx context.Context) error
	Close() error
}

// New resolves OBJECT_STORAGE_MODE and returns the matching store.
func New(log *logger.Logger) (Store, error) {
	cfg, err := gcp.StorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	if !cfg.UsesBucket() {
		return NewLocal(
			log,
			envutil.String("LOCAL_STORAGE_DIR", "uploads"),
			envutil.String("LOCAL_STORAGE_URL_PREFIX", "/uploads"),
		)
	}
	bucket, err := gcp.NewBucketService(log, cfg)
	if err != nil {
		return nil, err
	}
	return NewGCS(bucket), nil
}

// CleanKey normalizes key and rejects anything that escapes the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") || strings.Contains(key, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
