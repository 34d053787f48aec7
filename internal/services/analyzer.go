package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/openai"
)

const (
	fallbackThemeRunes   = 20
	fallbackKeywordCount = 5
)

// Analyzer scores a transcript. It never fails: when the model call errors or
// answers with something unusable, the result is FallbackAnalysis(text).
type Analyzer interface {
	Analyze(ctx context.Context, text string) capture.Analysis
}

const analysisSystemPrompt = `Analyze the sentiment, themes and keywords of the user's text.
sentiment is one word: positive, negative, neutral, or a more specific emotion such as excited, calm, sad, happy, angry, surprised or peaceful.
keywords are the concrete nouns and verbs that best describe what the speaker sees or does, most important first.
themes are short topic labels.`

var analysisSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"sentiment", "keywords", "themes"},
	"properties": map[string]any{
		"sentiment": map[string]any{"type": "string"},
		"keywords":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"themes":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

type openAIAnalyzer struct {
	client openai.Client
	log    *logger.Logger
}

func NewOpenAIAnalyzer(baseLog *logger.Logger, client openai.Client) Analyzer {
	return &openAIAnalyzer{client: client, log: baseLog.With("service", "Analyzer")}
}

func (a *openAIAnalyzer) Analyze(ctx context.Context, text string) capture.Analysis {
	if strings.TrimSpace(text) == "" {
		return FallbackAnalysis(text)
	}
	obj, err := a.client.GenerateJSON(ctx, analysisSystemPrompt, text, "text_analysis", analysisSchema)
	if err != nil {
		a.log.Warn("text analysis failed, using fallback", "error", err)
		return FallbackAnalysis(text)
	}
	out, err := parseAnalysis(obj)
	if err != nil {
		a.log.Warn("text analysis malformed, using fallback", "error", err)
		return FallbackAnalysis(text)
	}
	return out
}

func parseAnalysis(obj map[string]any) (capture.Analysis, error) {
	sentiment, _ := obj["sentiment"].(string)
	sentiment = strings.ToLower(strings.TrimSpace(sentiment))
	if sentiment == "" {
		return capture.Analysis{}, fmt.Errorf("missing sentiment")
	}
	keywords, err := stringList(obj["keywords"])
	if err != nil {
		return capture.Analysis{}, fmt.Errorf("keywords: %w", err)
	}
	themes, err := stringList(obj["themes"])
	if err != nil {
		return capture.Analysis{}, fmt.Errorf("themes: %w", err)
	}
	return capture.Analysis{Sentiment: sentiment, Keywords: keywords, Themes: themes}, nil
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return []string{}, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("want array got %T", v)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("want string item got %T", item)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// FallbackAnalysis derives a neutral analysis from the text alone.
func FallbackAnalysis(text string) capture.Analysis {
	text = strings.TrimSpace(text)
	out := capture.Analysis{Sentiment: "neutral", Keywords: []string{}, Themes: []string{}}
	if text == "" {
		return out
	}

	theme := text
	if utf8.RuneCountInString(theme) > fallbackThemeRunes {
		theme = string([]rune(theme)[:fallbackThemeRunes])
	}
	out.Themes = []string{theme}

	words := strings.Fields(text)
	if len(words) > fallbackKeywordCount {
		words = words[:fallbackKeywordCount]
	}
	out.Keywords = words
	return out
}
