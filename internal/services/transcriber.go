package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/mumble-backend/internal/platform/gcp"
	"github.com/yungbote/mumble-backend/internal/platform/openai"
)

const (
	TranscriberOpenAI = "openai"
	TranscriberGCP    = "gcp"
)

// Transcriber turns stored audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, fileName, mimeType string) (string, error)
}

type openAITranscriber struct{ client openai.Client }

func NewOpenAITranscriber(client openai.Client) Transcriber {
	return &openAITranscriber{client: client}
}

func (t *openAITranscriber) Transcribe(ctx context.Context, audio []byte, fileName, mimeType string) (string, error) {
	text, err := t.client.Transcribe(ctx, audio, fileName)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(text), nil
}

type speechTranscriber struct{ speech gcp.Speech }

func NewSpeechTranscriber(speech gcp.Speech) Transcriber {
	return &speechTranscriber{speech: speech}
}

func (t *speechTranscriber) Transcribe(ctx context.Context, audio []byte, fileName, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = fileName
	}
	text, err := t.speech.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return "", fmt.Errorf("speech transcription: %w", err)
	}
	return strings.TrimSpace(text), nil
}
