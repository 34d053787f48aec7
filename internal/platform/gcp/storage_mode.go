package gcp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/mumble-backend/internal/platform/envutil"
)

type StorageMode string

const (
	StorageLocal    StorageMode = "local"
	StorageGCS      StorageMode = "gcs"
	StorageEmulator StorageMode = "gcs_emulator"
)

var (
	ErrInvalidStorageMode   = errors.New("invalid OBJECT_STORAGE_MODE")
	ErrMissingBucket        = errors.New("GCS_BUCKET is required")
	ErrMissingEmulatorHost  = errors.New("STORAGE_EMULATOR_HOST is required")
	ErrInvalidEmulatorHost  = errors.New("invalid STORAGE_EMULATOR_HOST")
	ErrInvalidPublicBaseURL = errors.New("invalid OBJECT_STORAGE_PUBLIC_BASE_URL")
)

// StorageConfig selects where blobs live and how their public URLs are built.
type StorageConfig struct {
	Mode          StorageMode
	Bucket        string
	EmulatorHost  string
	PublicBaseURL string
	CDNDomain     string
}

// StorageConfigFromEnv reads OBJECT_STORAGE_MODE and friends. With no explicit
// mode: emulator if STORAGE_EMULATOR_HOST is set, gcs if GCS_BUCKET is set,
// local disk otherwise.
func StorageConfigFromEnv() (StorageConfig, error) {
	cfg := StorageConfig{
		Bucket:        envutil.String("GCS_BUCKET", ""),
		EmulatorHost:  strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", ""), "/"),
		PublicBaseURL: strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""), "/"),
		CDNDomain:     envutil.String("GCS_CDN_DOMAIN", ""),
	}
	cfg.Mode = StorageMode(strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", "")))
	if cfg.Mode == "" {
		switch {
		case cfg.EmulatorHost != "":
			cfg.Mode = StorageEmulator
		case cfg.Bucket != "":
			cfg.Mode = StorageGCS
		default:
			cfg.Mode = StorageLocal
		}
	}
	return cfg, cfg.Validate()
}

func (c StorageConfig) UsesBucket() bool {
	return c.Mode == StorageGCS || c.Mode == StorageEmulator
}

func (c StorageConfig) Validate() error {
	switch c.Mode {
	case StorageLocal:
		return nil
	case StorageGCS, StorageEmulator:
	default:
		return fmt.Errorf("%w: %q (allowed: local, gcs, gcs_emulator)", ErrInvalidStorageMode, c.Mode)
	}
	if c.Bucket == "" {
		return fmt.Errorf("%w for mode %q", ErrMissingBucket, c.Mode)
	}
	if c.PublicBaseURL != "" && !absoluteURL(c.PublicBaseURL) {
		return fmt.Errorf("%w: %q", ErrInvalidPublicBaseURL, c.PublicBaseURL)
	}
	if c.Mode != StorageEmulator {
		return nil
	}
	if c.EmulatorHost == "" {
		return ErrMissingEmulatorHost
	}
	if !absoluteURL(c.EmulatorHost) {
		return fmt.Errorf("%w: %q, expected something like http://fake-gcs:4443", ErrInvalidEmulatorHost, c.EmulatorHost)
	}
	return nil
}

// ObjectURL is the address clients use to fetch key.
func (c StorageConfig) ObjectURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case c.CDNDomain != "":
		return "https://" + c.CDNDomain + "/" + key
	case c.Mode == StorageEmulator:
		base := c.PublicBaseURL
		if base == "" {
			base = c.EmulatorHost
		}
		return mediaURL(base, c.Bucket, key)
	case c.PublicBaseURL != "":
		return c.PublicBaseURL + "/" + c.Bucket + "/" + key
	default:
		return "https://storage.googleapis.com/" + c.Bucket + "/" + key
	}
}

// mediaURL is the JSON API download form the emulator understands.
func mediaURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media",
		strings.TrimRight(base, "/"), url.PathEscape(bucket), url.PathEscape(key))
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
