package prompt

import "text/template"

// Personality system prompts. Unknown personalities fall back to concise.
var personalityPrompts = map[string]string{
	"concise": "You are a helpful AI assistant. Be concise and direct.",
	"casual":  "You are a friendly AI assistant. Be casual and conversational.",
	"formal":  "You are a professional AI assistant. Be formal and detailed.",
	"teacher": "You are a patient teacher. Explain concepts clearly with examples.",
}

// Quick-action templates. Unknown actions fall back to summarize.
var quickActionTemplates = map[string]string{
	"summarize": "Summarize this text concisely:\n\n%s",
	"translate": "Translate this text to English:\n\n%s",
	"explain":   "Explain this in simple terms:\n\n%s",
	"code":      "Explain this code:\n\n%s",
}

// Playbook defaults applied when the caller supplies no configuration.
const (
	defaultPlaybookName    = "General Assistant"
	defaultPlaybookPrompt  = "You are a helpful assistant supporting the user during a live work session."
	defaultPlaybookFraming = "The user shares what is on their screen and what is being said; help them act on it."
)

const questionTemplateText = `Answer the question below using the supplied context. Be direct and ground your answer in the context; if the context does not contain the answer, say so.
{{- if .Screen}}

Screen content:
{{.Screen}}
{{- end}}
{{- if .Transcript}}

Conversation transcript:
{{.Transcript}}
{{- end}}

Question: {{.Question}}`

const summaryTemplateText = `You are analyzing a live session using the "{{.Playbook}}" playbook.
{{- if .Screen}}

Screen content:
{{.Screen}}
{{- end}}
{{- if .Transcript}}

Conversation transcript:
{{.Transcript}}
{{- end}}

Respond with three parts:
1. Situation summary: what is happening right now.
2. Key insights: the most important things to notice.
3. Suggestions: what to do next.`

const suggestTemplateText = `Based on the context below, offer exactly one short, proactive suggestion that would help the user right now. Respond with the suggestion only, no preamble.
{{- if .Screen}}

Screen content:
{{.Screen}}
{{- end}}
{{- if .Transcript}}

Conversation transcript:
{{.Transcript}}
{{- end}}`

var (
	questionTemplate = template.Must(template.New("question").Parse(questionTemplateText))
	summaryTemplate  = template.Must(template.New("summary").Parse(summaryTemplateText))
	suggestTemplate  = template.Must(template.New("suggest").Parse(suggestTemplateText))
)
