// Package types holds the shared data model for the Voifodas backend.
package types

import "strings"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn in a conversation. Immutable once appended to a
// session. System messages are synthesized per request and never stored.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Playbook steers context-analysis and auto-suggest prompts. Supplied
// fresh per request; zero values fall back to the defaults applied by
// the prompt builder.
type Playbook struct {
	Name           string `json:"name"`
	SystemPrompt   string `json:"system_prompt"`
	ContextFraming string `json:"context_framing"`
}

// ContextBundle carries the multi-modal context for one request: screen
// text from OCR and/or a spoken transcript. Request-scoped, never stored.
type ContextBundle struct {
	ScreenText     string `json:"screen_text"`
	TranscriptText string `json:"transcript_text"`
}

// Empty reports whether the bundle carries no context at all.
func (b ContextBundle) Empty() bool {
	return strings.TrimSpace(b.ScreenText) == "" && strings.TrimSpace(b.TranscriptText) == ""
}
