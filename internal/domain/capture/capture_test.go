package capture

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := New("dev-1", "audio/x.webm", "x.webm", "audio/webm", 10, 3.0, now)

	if rec.Status != StatusProcessing {
		t.Fatalf("status: want=%s got=%s", StatusProcessing, rec.Status)
	}
	if !rec.ExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("expires_at: want=%s got=%s", now.Add(7*24*time.Hour), rec.ExpiresAt)
	}
	if rec.Text != nil || rec.Analysis != nil || rec.Error != nil {
		t.Fatalf("new record should carry no outcome fields")
	}
}

func TestEstimatedProcessingSeconds(t *testing.T) {
	tests := []struct {
		duration float64
		want     float64
	}{
		{3.0, 0.5},
		{30, 5},
		{60, 5},
		{0, 0},
	}
	for _, tc := range tests {
		if got := EstimatedProcessingSeconds(tc.duration); got != tc.want {
			t.Fatalf("EstimatedProcessingSeconds(%v): want=%v got=%v", tc.duration, tc.want, got)
		}
	}
}

func TestStatusViewProjection(t *testing.T) {
	rec := New("dev-1", "k", "f", "audio/wav", 1, 1, time.Now())

	v := rec.StatusView()
	if v.Text != nil || v.Analysis != nil || v.Error != nil {
		t.Fatalf("processing view should only carry id and status: %+v", v)
	}

	text := "a calm lake at sunrise"
	rec.Status = StatusCompleted
	rec.Text = &text
	rec.Analysis = EncodeAnalysis(Analysis{Sentiment: "calm", Keywords: []string{"lake", "sunrise"}, Themes: []string{"nature"}})
	v = rec.StatusView()
	if v.Text == nil || *v.Text != text {
		t.Fatalf("completed view text: got %v", v.Text)
	}
	if v.Analysis == nil || v.Analysis.Sentiment != "calm" || len(v.Analysis.Keywords) != 2 {
		t.Fatalf("completed view analysis: got %+v", v.Analysis)
	}

	msg := "transcription failed"
	rec.Status = StatusError
	rec.Error = &msg
	v = rec.StatusView()
	if v.Error == nil || v.Text != nil || v.Analysis != nil {
		t.Fatalf("error view: got %+v", v)
	}
}
