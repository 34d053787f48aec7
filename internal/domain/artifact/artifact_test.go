package artifact

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusError, true},
		{StatusQueued, StatusError, true},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusError, false},
		{StatusError, StatusCompleted, false},
		{StatusProcessing, StatusQueued, false},
		{StatusProcessing, StatusProcessing, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s->%s): want=%v got=%v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestNewDefaultsStyle(t *testing.T) {
	rec := New("dev", uuid.New(), uuid.New(), "surreal", time.Now())
	if rec.StylePreference != StyleBalanced {
		t.Fatalf("style: want=balanced got=%s", rec.StylePreference)
	}
	if rec.Status != StatusQueued {
		t.Fatalf("status: want=queued got=%s", rec.Status)
	}
}

func TestStatusViewOnlyExposesOutcomeWhenTerminal(t *testing.T) {
	rec := New("dev", uuid.New(), uuid.New(), StyleRealistic, time.Now())
	url := "/uploads/images/x.jpg"
	rec.ImageURL = &url

	if v := rec.StatusView(); v.ImageURL != nil || v.ImageID != "" {
		t.Fatalf("queued view leaked image fields: %+v", v)
	}
	rec.Status = StatusCompleted
	v := rec.StatusView()
	if v.ImageID != rec.ID.String() || v.ImageURL == nil {
		t.Fatalf("completed view: %+v", v)
	}
}

func TestFileNameKeys(t *testing.T) {
	id := uuid.New()
	name := FileName(id)
	if !strings.HasPrefix(name, id.String()+"_") || !strings.HasSuffix(name, ".jpg") {
		t.Fatalf("FileName: unexpected %q", name)
	}
	if ImageKey(name) != "images/"+name || ThumbnailKey(name) != "thumbnails/"+name {
		t.Fatalf("keys: %s %s", ImageKey(name), ThumbnailKey(name))
	}
}
