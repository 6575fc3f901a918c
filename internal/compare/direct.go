package compare

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"verde/internal/llm"
)

const (
	VerdeSystemPrompt   = "You are Verde, a sustainable and energy-efficient AI assistant."
	ChatGPTSystemPrompt = "You are a helpful AI assistant."
)

// Direct produces both replies in-process by querying two models
// concurrently. It stands in for the comparison backend.
type Direct struct {
	Verde   llm.Client
	ChatGPT llm.Client

	now func() time.Time
}

func NewDirect(verde, chatgpt llm.Client) *Direct {
	return &Direct{Verde: verde, ChatGPT: chatgpt, now: time.Now}
}

func (d *Direct) Compare(ctx context.Context, prompt string) (Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	res := Result{Prompt: prompt}

	g.Go(func() error {
		r, err := d.ask(gctx, d.Verde, VerdeSystemPrompt, prompt, map[string]string{
			"accuracy": "95%", "coherence": "High", "creativity": "Medium",
		})
		if err != nil {
			return fmt.Errorf("verde: %w", err)
		}
		res.Verde = r
		return nil
	})
	g.Go(func() error {
		r, err := d.ask(gctx, d.ChatGPT, ChatGPTSystemPrompt, prompt, map[string]string{
			"accuracy": "93%", "coherence": "High", "creativity": "High",
		})
		if err != nil {
			return fmt.Errorf("chatgpt: %w", err)
		}
		res.ChatGPT = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (d *Direct) ask(ctx context.Context, c llm.Client, system, prompt string, metrics map[string]string) (Reply, error) {
	if c == nil {
		return Reply{}, fmt.Errorf("model not configured")
	}
	now := d.now
	if now == nil {
		now = time.Now
	}
	start := now()
	resp, err := llm.Ask(ctx, c, system, prompt)
	if err != nil {
		return Reply{}, err
	}
	metrics["speed"] = fmt.Sprintf("%dms", now().Sub(start).Milliseconds())
	if resp.Model != "" {
		metrics["model"] = resp.Model
	}
	return Reply{Response: resp.Content, Metrics: metrics}, nil
}
