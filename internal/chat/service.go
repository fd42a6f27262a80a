// Package chat is the generation dispatcher: it composes prompts from
// session history and multi-modal context, invokes the generation
// capability in single or streaming mode, and governs what gets
// persisted back into the session store.
package chat

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/voifodas/voifodas/internal/llm"
	"github.com/voifodas/voifodas/internal/prompt"
	"github.com/voifodas/voifodas/internal/session"
	"github.com/voifodas/voifodas/internal/suggest"
	"github.com/voifodas/voifodas/internal/types"
)

// AnalysisRequest carries one context-analysis call.
type AnalysisRequest struct {
	Bundle   types.ContextBundle
	Playbook types.Playbook
	Question string
}

// SuggestRequest carries one auto-suggest call.
type SuggestRequest struct {
	Bundle   types.ContextBundle
	Playbook types.Playbook
}

// Suggestion is a proactive suggestion plus its heuristic category.
type Suggestion struct {
	Text     string
	Category suggest.Category
}

// Service dispatches generation requests.
type Service struct {
	llm      llm.Client
	sessions *session.Store
	prompts  *prompt.Builder
}

// NewService creates a dispatcher over the given capability, session
// store, and prompt builder.
func NewService(client llm.Client, sessions *session.Store, prompts *prompt.Builder) *Service {
	return &Service{llm: client, sessions: sessions, prompts: prompts}
}

// StreamChat appends the user message to the session, composes the
// personality prompt over the retained history, and yields generated
// fragments in arrival order. Once the stream is exhausted without
// error, the accumulated text is persisted as one assistant message.
// On a mid-stream failure or early consumer stop, nothing is persisted
// and the accumulated text is discarded.
func (s *Service) StreamChat(ctx context.Context, sessionID, personality, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.sessions.Append(sessionID, types.Message{Role: types.RoleUser, Content: message})
		msgs := s.prompts.Chat(personality, s.sessions.History(sessionID))

		slog.Info("streaming chat", "session", sessionID, "personality", personality)

		var full strings.Builder
		for fragment, err := range s.llm.Stream(ctx, msgs, llm.ChatParams) {
			if err != nil {
				yield("", fmt.Errorf("chat stream: %w", err))
				return
			}
			full.WriteString(fragment)
			if !yield(fragment, nil) {
				return
			}
		}

		s.sessions.Append(sessionID, types.Message{Role: types.RoleAssistant, Content: full.String()})
	}
}

// QuickAction builds a one-shot prompt from the action's fixed template
// and returns a single completion. Never touches session history.
func (s *Service) QuickAction(ctx context.Context, action, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrMissingInput
	}

	slog.Info("quick action", "action", action)
	msgs := []types.Message{{Role: types.RoleUser, Content: prompt.QuickAction(action, text)}}
	out, err := s.llm.Complete(ctx, msgs, llm.QuickParams)
	if err != nil {
		return "", fmt.Errorf("quick action %q: %w", action, err)
	}
	return out, nil
}

// AnalyzeContext fuses the context bundle and playbook into a
// single-shot analysis. Fails with prompt.ErrEmptyContext before any
// capability call when both context sources are empty.
func (s *Service) AnalyzeContext(ctx context.Context, req AnalysisRequest) (string, error) {
	msgs, err := s.prompts.Analysis(req.Bundle, req.Playbook, req.Question)
	if err != nil {
		return "", err
	}

	slog.Info("context analysis", "playbook", req.Playbook.Name, "question", req.Question != "")
	out, err := s.llm.Complete(ctx, msgs, llm.AnalysisParams)
	if err != nil {
		return "", fmt.Errorf("context analysis: %w", err)
	}
	return out, nil
}

// AutoSuggest generates one proactive suggestion from the context
// bundle and tags it with the heuristic classifier.
func (s *Service) AutoSuggest(ctx context.Context, req SuggestRequest) (Suggestion, error) {
	msgs, err := s.prompts.Suggest(req.Bundle, req.Playbook)
	if err != nil {
		return Suggestion{}, err
	}

	text, err := s.llm.Complete(ctx, msgs, llm.SuggestParams)
	if err != nil {
		return Suggestion{}, fmt.Errorf("auto suggest: %w", err)
	}
	text = strings.TrimSpace(text)

	sourceContext := req.Bundle.TranscriptText + "\n" + req.Bundle.ScreenText
	return Suggestion{
		Text:     text,
		Category: suggest.Classify(text, sourceContext),
	}, nil
}

// AnalyzeText runs a single-shot analysis of already-extracted text,
// used for the OCR analyze flag. The instruction defaults to a general
// screen-content description.
func (s *Service) AnalyzeText(ctx context.Context, text, instruction string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrMissingInput
	}
	if strings.TrimSpace(instruction) == "" {
		instruction = "Analyze this screen content and describe what is happening."
	}

	msgs := []types.Message{{Role: types.RoleUser, Content: instruction + "\n\n" + text}}
	out, err := s.llm.Complete(ctx, msgs, llm.AnalysisParams)
	if err != nil {
		return "", fmt.Errorf("text analysis: %w", err)
	}
	return out, nil
}
