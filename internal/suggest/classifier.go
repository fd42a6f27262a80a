// Package suggest tags generated suggestions with a semantic category
// using ordered heuristic rules. Best-effort: the contract is
// determinism and rule-order stability, not accuracy.
package suggest

import "strings"

// Category is the semantic tag attached to a suggestion.
type Category string

const (
	CategoryQuestion Category = "question"
	CategoryCode     Category = "code"
	CategoryAction   Category = "action"
	CategoryInsight  Category = "insight"
)

// leadingWindow bounds how much of the suggestion text the rules inspect.
const leadingWindow = 100

// Classify applies the rules in order against the lower-cased leading
// portion of the suggestion and the raw source context.
func Classify(suggestion, sourceContext string) Category {
	leading := suggestion
	if len(leading) > leadingWindow {
		leading = leading[:leadingWindow]
	}
	leading = strings.ToLower(leading)

	switch {
	case strings.Contains(sourceContext, "?") || strings.Contains(leading, "question"):
		return CategoryQuestion
	case containsAny(leading, "code", "error", "function"):
		return CategoryCode
	case containsAny(leading, "action", "todo", "should"):
		return CategoryAction
	default:
		return CategoryInsight
	}
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
