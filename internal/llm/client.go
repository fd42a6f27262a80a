// Package llm provides the text-generation capability consumed by the
// dispatcher: single-shot completions and incremental fragment streams.
package llm

import (
	"context"
	"iter"

	"github.com/voifodas/voifodas/internal/types"
)

// Params are sampling parameters for one generation call. They are
// fixed per call site, not user-tunable per request.
type Params struct {
	Temperature float64
	MaxTokens   int64
	TopP        float64
}

// Per-call-site sampling presets.
var (
	ChatParams     = Params{Temperature: 0.7, MaxTokens: 1024, TopP: 1.0}
	QuickParams    = Params{Temperature: 0.5, MaxTokens: 512, TopP: 1.0}
	AnalysisParams = Params{Temperature: 0.6, MaxTokens: 800, TopP: 1.0}
	SuggestParams  = Params{Temperature: 0.8, MaxTokens: 200, TopP: 1.0}
)

// Client is the generation capability. Implementations do not retry;
// a failure is surfaced once to the caller.
type Client interface {
	// Complete issues one request and returns the completed text.
	Complete(ctx context.Context, msgs []types.Message, p Params) (string, error)

	// Stream issues a streaming request and yields text fragments in
	// arrival order. The sequence ends after the final fragment, or
	// yields a single non-nil error and stops. Stopping the iteration
	// early cancels the underlying stream.
	Stream(ctx context.Context, msgs []types.Message, p Params) iter.Seq2[string, error]
}
