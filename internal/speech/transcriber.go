// Package speech provides the transcription capability: audio bytes in,
// transcribed text plus a detected language tag out.
package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Transcription is the result of one transcription call.
type Transcription struct {
	Text     string
	Language string
}

// Transcriber is the speech-to-text capability.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (Transcription, error)
}

// Whisper transcribes audio through Groq's hosted whisper endpoint.
type Whisper struct {
	client *openai.Client
	model  string
}

// NewWhisper creates a Whisper transcriber for the given model.
func NewWhisper(apiKey, model string) (*Whisper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(groqBaseURL),
	)
	return &Whisper{client: &client, model: model}, nil
}

func (w *Whisper) Transcribe(ctx context.Context, audio io.Reader, filename string) (Transcription, error) {
	resp, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           openai.File(audio, filename, "application/octet-stream"),
		Model:          openai.AudioModel(w.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		slog.Error("transcription failed", "model", w.model, "error", err)
		return Transcription{}, fmt.Errorf("transcribe audio: %w", err)
	}

	t := resp.AsTranscription()
	return Transcription{
		Text:     resp.Text,
		Language: detectedLanguage(&t),
	}, nil
}

// detectedLanguage pulls the language tag out of the verbose_json
// response; the SDK's Transcription struct does not model it directly.
func detectedLanguage(resp *openai.Transcription) string {
	field, ok := resp.JSON.ExtraFields["language"]
	if !ok {
		return "unknown"
	}
	var language string
	if err := json.Unmarshal([]byte(field.Raw()), &language); err != nil || language == "" {
		return "unknown"
	}
	return language
}
