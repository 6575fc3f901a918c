// Package compare acquires a pair of replies, one from Verde and one from
// the reference model, for a single prompt.
package compare

import "context"

// Reply is one model's answer. An empty Response means the backend did not
// provide one.
type Reply struct {
	Response string            `json:"response"`
	Metrics  map[string]string `json:"metrics,omitempty"`
}

type Result struct {
	Prompt  string `json:"prompt,omitempty"`
	Verde   Reply  `json:"verde"`
	ChatGPT Reply  `json:"chatgpt"`
}

// Comparer fetches both replies for a prompt. Any error means the reply
// could not be acquired; callers do not distinguish causes.
type Comparer interface {
	Compare(ctx context.Context, prompt string) (Result, error)
}

// ComparerFunc adapts a function to Comparer.
type ComparerFunc func(ctx context.Context, prompt string) (Result, error)

func (f ComparerFunc) Compare(ctx context.Context, prompt string) (Result, error) {
	return f(ctx, prompt)
}
