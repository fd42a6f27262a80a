// Package prompt assembles message lists for the generation capability:
// plain chat with a personality system prompt, quick one-shot actions,
// and multi-modal context fusion for analysis and auto-suggest.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/voifodas/voifodas/internal/types"
)

// ErrEmptyContext is returned when a multi-modal request supplies
// neither screen text nor transcript text.
var ErrEmptyContext = errors.New("empty context: no screen or transcript text supplied")

// Default per-source character budgets. Truncation is silent and
// prefix-preserving; the values are tunable, not derived.
const (
	DefaultScreenLimit     = 2000
	DefaultTranscriptLimit = 1000
)

// Builder fuses history, personality/playbook configuration, and
// multi-modal context into ordered message lists.
type Builder struct {
	screenLimit     int
	transcriptLimit int
}

// NewBuilder creates a Builder with the given truncation budgets.
// Non-positive budgets fall back to the defaults.
func NewBuilder(screenLimit, transcriptLimit int) *Builder {
	if screenLimit <= 0 {
		screenLimit = DefaultScreenLimit
	}
	if transcriptLimit <= 0 {
		transcriptLimit = DefaultTranscriptLimit
	}
	return &Builder{
		screenLimit:     screenLimit,
		transcriptLimit: transcriptLimit,
	}
}

// Chat prepends exactly one system message for the personality to the
// retained session history. The history already ends with the new user
// message; nothing here is persisted.
func (b *Builder) Chat(personality string, history []types.Message) []types.Message {
	msgs := make([]types.Message, 0, len(history)+1)
	msgs = append(msgs, types.Message{Role: types.RoleSystem, Content: PersonalityPrompt(personality)})
	return append(msgs, history...)
}

// Analysis fuses the context bundle and playbook into a single-shot
// message list. With a question it frames a grounded answer; without
// one it requests the structured three-part summary. Fails with
// ErrEmptyContext before any truncation or external call.
func (b *Builder) Analysis(bundle types.ContextBundle, playbook types.Playbook, question string) ([]types.Message, error) {
	if bundle.Empty() {
		return nil, ErrEmptyContext
	}
	playbook = withPlaybookDefaults(playbook)

	data := struct {
		Screen     string
		Transcript string
		Question   string
		Playbook   string
	}{
		Screen:     truncate(bundle.ScreenText, b.screenLimit),
		Transcript: truncate(bundle.TranscriptText, b.transcriptLimit),
		Question:   strings.TrimSpace(question),
		Playbook:   playbook.Name,
	}

	tmpl := summaryTemplate
	if data.Question != "" {
		tmpl = questionTemplate
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("build analysis prompt: %w", err)
	}

	return []types.Message{
		{Role: types.RoleSystem, Content: playbookSystemPrompt(playbook)},
		{Role: types.RoleUser, Content: buf.String()},
	}, nil
}

// Suggest builds the proactive-suggestion prompt from the context
// bundle. Same empty-context and truncation policy as Analysis.
func (b *Builder) Suggest(bundle types.ContextBundle, playbook types.Playbook) ([]types.Message, error) {
	if bundle.Empty() {
		return nil, ErrEmptyContext
	}
	playbook = withPlaybookDefaults(playbook)

	data := struct {
		Screen     string
		Transcript string
	}{
		Screen:     truncate(bundle.ScreenText, b.screenLimit),
		Transcript: truncate(bundle.TranscriptText, b.transcriptLimit),
	}
	var buf bytes.Buffer
	if err := suggestTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("build suggest prompt: %w", err)
	}

	return []types.Message{
		{Role: types.RoleSystem, Content: playbookSystemPrompt(playbook)},
		{Role: types.RoleUser, Content: buf.String()},
	}, nil
}

// PersonalityPrompt returns the canned system prompt for a personality,
// falling back to concise for unknown values.
func PersonalityPrompt(personality string) string {
	if p, ok := personalityPrompts[personality]; ok {
		return p
	}
	return personalityPrompts["concise"]
}

// QuickAction interpolates the text body into the action's fixed
// template, falling back to summarize for unknown actions.
func QuickAction(action, text string) string {
	tmpl, ok := quickActionTemplates[action]
	if !ok {
		tmpl = quickActionTemplates["summarize"]
	}
	return fmt.Sprintf(tmpl, text)
}

func withPlaybookDefaults(p types.Playbook) types.Playbook {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = defaultPlaybookName
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		p.SystemPrompt = defaultPlaybookPrompt
	}
	if strings.TrimSpace(p.ContextFraming) == "" {
		p.ContextFraming = defaultPlaybookFraming
	}
	return p
}

func playbookSystemPrompt(p types.Playbook) string {
	return p.SystemPrompt + "\n\n" + p.ContextFraming
}

// truncate keeps the earliest limit characters and silently drops the
// rest.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
