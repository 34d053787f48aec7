package gcp

import (
	"errors"
	"testing"
)

func TestStorageConfigFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		mode     string
		bucket   string
		emulator string
		public   string
		wantMode StorageMode
		wantErr  error
	}{
		{name: "default local", wantMode: StorageLocal},
		{name: "default gcs when bucket set", bucket: "mumble", wantMode: StorageGCS},
		{name: "default emulator when host set", bucket: "mumble", emulator: "http://fake-gcs:4443", wantMode: StorageEmulator},
		{name: "explicit local ignores bucket", mode: "LOCAL", bucket: "mumble", wantMode: StorageLocal},
		{name: "explicit gcs ignores emulator", mode: "gcs", bucket: "mumble", emulator: "http://fake-gcs:4443", wantMode: StorageGCS},
		{name: "invalid mode", mode: "s3", wantErr: ErrInvalidStorageMode},
		{name: "gcs missing bucket", mode: "gcs", wantErr: ErrMissingBucket},
		{name: "emulator missing host", mode: "gcs_emulator", bucket: "mumble", wantErr: ErrMissingEmulatorHost},
		{name: "emulator host not absolute", mode: "gcs_emulator", bucket: "mumble", emulator: "fake-gcs:4443", wantErr: ErrInvalidEmulatorHost},
		{name: "bad public base", mode: "gcs", bucket: "mumble", public: "localhost:4443", wantErr: ErrInvalidPublicBaseURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OBJECT_STORAGE_MODE", tc.mode)
			t.Setenv("GCS_BUCKET", tc.bucket)
			t.Setenv("STORAGE_EMULATOR_HOST", tc.emulator)
			t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", tc.public)
			t.Setenv("GCS_CDN_DOMAIN", "")

			cfg, err := StorageConfigFromEnv()
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("StorageConfigFromEnv: want=%v got=%v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("StorageConfigFromEnv: %v", err)
			}
			if cfg.Mode != tc.wantMode {
				t.Fatalf("mode: want=%q got=%q", tc.wantMode, cfg.Mode)
			}
			if cfg.UsesBucket() != (tc.wantMode != StorageLocal) {
				t.Fatalf("UsesBucket: got=%v for mode %q", cfg.UsesBucket(), cfg.Mode)
			}
		})
	}
}

func TestObjectURL(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		cfg  StorageConfig
		key  string
		want string
	}{
		{
			name: "gcs default",
			cfg:  StorageConfig{Mode: StorageGCS, Bucket: "mumble"},
			key:  "images/a.jpg",
			want: "https://storage.googleapis.com/mumble/images/a.jpg",
		},
		{
			name: "cdn domain",
			cfg:  StorageConfig{Mode: StorageGCS, Bucket: "mumble", CDNDomain: "cdn.example.com"},
			key:  "thumbnails/a.jpg",
			want: "https://cdn.example.com/thumbnails/a.jpg",
		},
		{
			name: "public base url",
			cfg:  StorageConfig{Mode: StorageGCS, Bucket: "mumble", PublicBaseURL: "http://localhost:4443"},
			key:  "/images/a.jpg",
			want: "http://localhost:4443/mumble/images/a.jpg",
		},
		{
			name: "emulator media endpoint",
			cfg:  StorageConfig{Mode: StorageEmulator, Bucket: "mumble", PublicBaseURL: "http://localhost:4443", EmulatorHost: "http://fake-gcs:4443"},
			key:  "images/a.jpg",
			want: "http://localhost:4443/storage/v1/b/mumble/o/images%2Fa.jpg?alt=media",
		},
		{
			name: "emulator host when public base missing",
			cfg:  StorageConfig{Mode: StorageEmulator, Bucket: "mumble", EmulatorHost: "http://fake-gcs:4443"},
			key:  "/audio/x.webm",
			want: "http://fake-gcs:4443/storage/v1/b/mumble/o/audio%2Fx.webm?alt=media",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cfg.ObjectURL(tc.key); got != tc.want {
				t.Fatalf("ObjectURL: want=%q got=%q", tc.want, got)
			}
		})
	}
}
