package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/voifodas/voifodas/internal/types"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1"

// Groq implements Client against Groq's chat completions API.
type Groq struct {
	client *openai.Client
	model  string
}

// NewGroq creates a Groq client for the given model.
func NewGroq(apiKey, model string) (*Groq, error) {
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
	return &Groq{client: &client, model: model}, nil
}

func (g *Groq) Complete(ctx context.Context, msgs []types.Message, p Params) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, g.params(msgs, p))
	if err != nil {
		slog.Error("chat completion failed", "model", g.model, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *Groq) Stream(ctx context.Context, msgs []types.Message, p Params) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := g.client.Chat.Completions.NewStreaming(ctx, g.params(msgs, p))
		defer func() {
			if err := stream.Close(); err != nil {
				slog.Error("failed to close completion stream", "error", err)
			}
		}()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			slog.Error("chat completion stream failed", "model", g.model, "error", err)
			yield("", fmt.Errorf("stream completion: %w", err))
		}
	}
}

func (g *Groq) params(msgs []types.Message, p Params) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case types.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case types.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(p.Temperature),
		MaxTokens:   openai.Int(p.MaxTokens),
		TopP:        openai.Float(p.TopP),
	}
}
