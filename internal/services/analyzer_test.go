package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

func TestOpenAIAnalyzer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("well formed", func(t *testing.T) {
		a := NewOpenAIAnalyzer(logger.Nop(), &fakeAI{obj: map[string]any{
			"sentiment": "calm",
			"keywords":  []any{"lake", "mist"},
			"themes":    []any{"stillness"},
		}})
		got := a.Analyze(ctx, "the lake is still this morning")
		if got.Sentiment != "calm" {
			t.Fatalf("sentiment: want=calm got=%q", got.Sentiment)
		}
		if len(got.Keywords) != 2 || got.Keywords[0] != "lake" {
			t.Fatalf("keywords: got=%v", got.Keywords)
		}
		if len(got.Themes) != 1 || got.Themes[0] != "stillness" {
			t.Fatalf("themes: got=%v", got.Themes)
		}
	})

	t.Run("malformed falls back", func(t *testing.T) {
		a := NewOpenAIAnalyzer(logger.Nop(), &fakeAI{obj: map[string]any{"sentiment": 7}})
		got := a.Analyze(ctx, "one two three four five six seven")
		if got.Sentiment != "neutral" {
			t.Fatalf("sentiment: want=neutral got=%q", got.Sentiment)
		}
		if len(got.Keywords) != 5 {
			t.Fatalf("keywords: want=5 got=%v", got.Keywords)
		}
	})

	t.Run("transport error falls back", func(t *testing.T) {
		a := NewOpenAIAnalyzer(logger.Nop(), &fakeAI{err: errors.New("boom")})
		got := a.Analyze(ctx, "quiet rain")
		if got.Sentiment != "neutral" || len(got.Themes) != 1 || got.Themes[0] != "quiet rain" {
			t.Fatalf("fallback: got=%+v", got)
		}
	})
}

func TestFallbackAnalysis(t *testing.T) {
	t.Parallel()

	got := FallbackAnalysis("a very long sentence about nothing in particular")
	if got.Themes[0] != "a very long sentence" {
		t.Fatalf("theme: want=%q got=%q", "a very long sentence", got.Themes[0])
	}
	want := []string{"a", "very", "long", "sentence", "about"}
	for i, w := range want {
		if got.Keywords[i] != w {
			t.Fatalf("keyword[%d]: want=%q got=%q", i, w, got.Keywords[i])
		}
	}

	empty := FallbackAnalysis("   ")
	if empty.Sentiment != "neutral" || len(empty.Keywords) != 0 || len(empty.Themes) != 0 {
		t.Fatalf("empty: got=%+v", empty)
	}
}
