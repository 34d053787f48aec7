package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

var ErrObjectNotFound = errors.New("object not found")

const (
	transferTimeout = 2 * time.Minute
	deleteTimeout   = 30 * time.Second
	pingTimeout     = 10 * time.Second
)

// BucketService stores pipeline blobs (audio, images, thumbnails) in one bucket.
type BucketService interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	Ping(ctx context.Context) error
	Close() error
}

type bucketService struct {
	log    *logger.Logger
	cfg    StorageConfig
	client *storage.Client
	http   *http.Client
}

func NewBucketService(log *logger.Logger, cfg StorageConfig) (BucketService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.UsesBucket() {
		return nil, fmt.Errorf("object storage mode %q is not bucket-backed", cfg.Mode)
	}

	var opts []option.ClientOption
	if cfg.Mode == StorageEmulator {
		// storage.NewClient reads the emulator address from the environment.
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	log = log.With("service", "BucketService")
	log.Info("object storage initialized", "mode", cfg.Mode, "bucket", cfg.Bucket, "public_base_url", cfg.PublicBaseURL)
	return &bucketService{
		log:    log,
		cfg:    cfg,
		client: client,
		http:   &http.Client{Timeout: transferTimeout},
	}, nil
}

func (b *bucketService) object(key string) *storage.ObjectHandle {
	return b.client.Bucket(b.cfg.Bucket).Object(key)
}

func (b *bucketService) Upload(ctx context.Context, key, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	w := b.object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs writer %q: %w", key, err)
	}
	return nil
}

func (b *bucketService) Download(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()
	if b.cfg.Mode == StorageEmulator {
		return b.downloadEmulator(ctx, key)
	}
	r, err := b.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open gcs reader %q: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// The emulator's reader endpoint is unreliable, so reads go through the media URL.
func (b *bucketService) downloadEmulator(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL(b.cfg.EmulatorHost, b.cfg.Bucket, key), nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("emulator download %q: %w", key, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrObjectNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("emulator download %q: status=%d body=%s", key, resp.StatusCode, bytes.TrimSpace(body))
	}
	return io.ReadAll(resp.Body)
}

func (b *bucketService) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()
	err := b.object(key).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return fmt.Errorf("delete gcs object %q: %w", key, err)
}

func (b *bucketService) PublicURL(key string) string { return b.cfg.ObjectURL(key) }

// Ping checks that the bucket exists and the credentials can see it.
func (b *bucketService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	_, err := b.client.Bucket(b.cfg.Bucket).Attrs(ctx)
	return err
}

func (b *bucketService) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}
