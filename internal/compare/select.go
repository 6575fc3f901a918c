package compare

import (
	"fmt"

	"verde/internal/config"
	"verde/internal/llm"
)

// FromConfig builds the comparer selected by cfg.CompareMode.
func FromConfig(cfg *config.Config) (Comparer, error) {
	switch cfg.CompareMode {
	case config.ModeHTTP:
		return NewHTTPClient(cfg.APIURL, cfg.CompareTimeout), nil
	case config.ModeDirect:
		f := llm.NewFactory(cfg)
		verde, err := f.CreateClient(cfg.VerdeProvider, cfg.VerdeModel)
		if err != nil {
			return nil, fmt.Errorf("verde client: %w", err)
		}
		chatgpt, err := f.CreateClient(llm.ProviderOpenAI, cfg.ChatGPTModel)
		if err != nil {
			return nil, fmt.Errorf("chatgpt client: %w", err)
		}
		return NewDirect(verde, chatgpt), nil
	default:
		return nil, fmt.Errorf("unknown compare mode: %q", cfg.CompareMode)
	}
}
