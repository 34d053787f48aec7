package blob

import (
	"context"
	"errors"

	"github.com/yungbote/mumble-backend/internal/platform/gcp"
)

type gcsStore struct {
	bucket gcp.BucketService
}

func NewGCS(bucket gcp.BucketService) Store {
	return &gcsStore{bucket: bucket}
}

func (s *gcsStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}
	return s.bucket.Upload(ctx, cleaned, contentType, data)
}

func (s *gcsStore) Get(ctx context.Context, key string) ([]byte, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := s.bucket.Download(ctx, cleaned)
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}
	return s.bucket.Delete(ctx, cleaned)
}

func (s *gcsStore) URL(key string) string {
	cleaned, err := CleanKey(key)
	if err != nil {
		return ""
	}
	return s.bucket.PublicURL(cleaned)
}

func (s *gcsStore) Check(ctx context.Context) error { return s.bucket.Ping(ctx) }

func (s *gcsStore) Close() error { return s.bucket.Close() }
