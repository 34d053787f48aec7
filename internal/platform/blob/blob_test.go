package blob

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/mumble-backend/internal/platform/gcp"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

func TestCleanKey(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "images/a.jpg", want: "images/a.jpg"},
		{in: "/thumbnails//a.jpg", want: "thumbnails/a.jpg"},
		{in: "audio\\b.webm", want: "audio/b.webm"},
		{in: "", wantErr: true},
		{in: "../etc/passwd", wantErr: true},
		{in: "images/../../x", wantErr: true},
	}
	for _, tc := range cases {
		got, err := CleanKey(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("CleanKey(%q): want ErrInvalidKey got=%v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("CleanKey(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("CleanKey(%q): want=%q got=%q", tc.in, tc.want, got)
		}
	}
}

func TestLocalStoreLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := NewLocal(logger.Nop(), t.TempDir(), "/uploads/")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	if err := s.Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := s.Put(ctx, "images/a.jpg", "image/jpeg", []byte("jpeg")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "images/a.jpg")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "jpeg" {
		t.Fatalf("Get: want=jpeg got=%q", got)
	}
	if u := s.URL("images/a.jpg"); u != "/uploads/images/a.jpg" {
		t.Fatalf("URL: want=/uploads/images/a.jpg got=%q", u)
	}

	if err := s.Delete(ctx, "images/a.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "images/a.jpg"); err != nil {
		t.Fatalf("Delete missing: want nil got=%v", err)
	}
	if _, err := s.Get(ctx, "images/a.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get deleted: want ErrNotFound got=%v", err)
	}
	if err := s.Put(ctx, "../escape", "", []byte("x")); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("Put escape: want ErrInvalidKey got=%v", err)
	}

	dir, prefix, ok := LocalDir(s)
	if !ok || dir == "" || prefix != "/uploads" {
		t.Fatalf("LocalDir: got dir=%q prefix=%q ok=%v", dir, prefix, ok)
	}
}

func TestNewDefaultsToLocal(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("GCS_BUCKET", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")
	t.Setenv("LOCAL_STORAGE_DIR", t.TempDir())

	s, err := New(logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, ok := LocalDir(s); !ok {
		t.Fatalf("New: want local store")
	}
}

type fakeBucket struct {
	objects map[string][]byte
	types   map[string]string
	pingErr error
}

func (f *fakeBucket) Upload(ctx context.Context, key, contentType string, data []byte) error {
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeBucket) Download(ctx context.Context, key string) ([]byte, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, gcp.ErrObjectNotFound
	}
	return b, nil
}

func (f *fakeBucket) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeBucket) PublicURL(key string) string    { return "https://storage.googleapis.com/mumble/" + key }
func (f *fakeBucket) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeBucket) Close() error                   { return nil }

func TestGCSStoreDelegates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fb := &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}, pingErr: errors.New("no bucket")}
	s := NewGCS(fb)

	if err := s.Put(ctx, "/thumbnails/t.jpg", "image/jpeg", []byte("thumb")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if fb.types["thumbnails/t.jpg"] != "image/jpeg" {
		t.Fatalf("content type: got=%q", fb.types["thumbnails/t.jpg"])
	}
	got, err := s.Get(ctx, "thumbnails/t.jpg")
	if err != nil || string(got) != "thumb" {
		t.Fatalf("Get: want=thumb got=%q err=%v", got, err)
	}
	if _, err := s.Get(ctx, "thumbnails/missing.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: want ErrNotFound got=%v", err)
	}
	if u := s.URL("thumbnails/t.jpg"); !strings.HasSuffix(u, "/mumble/thumbnails/t.jpg") {
		t.Fatalf("URL: got=%q", u)
	}
	if err := s.Check(ctx); err == nil {
		t.Fatalf("Check: want ping error")
	}
}
