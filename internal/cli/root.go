package cli

import (
	"context"

	"github.com/spf13/cobra"

	"verde/internal/compare"
	"verde/internal/config"
	"verde/internal/logging"
	"verde/internal/session"
)

// localUser keys the single terminal session in the tracker.
const localUser int64 = 0

type comparerFactory func(cfg *config.Config) (compare.Comparer, error)

type app struct {
	apiURL      string
	mode        string
	newComparer comparerFactory
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(compare.FromConfig)
}

func newRootCmd(newComparer comparerFactory) *cobra.Command {
	a := &app{newComparer: newComparer}
	root := &cobra.Command{
		Use:   "verde",
		Short: "Chat with Verde and compare its replies with ChatGPT",
		Long: `Verde is a small, energy-efficient language model. Every reply is generated
alongside a ChatGPT reply to the same prompt so the two can be compared, and
each reply adds to a running estimate of the energy you saved.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "comparison backend base URL (overrides VERDE_API_URL)")
	root.PersistentFlags().StringVar(&a.mode, "mode", "", "how replies are produced: http or direct (overrides COMPARE_MODE)")

	root.AddCommand(newChatCmd(a), newAskCmd(a))
	return root
}

// loadConfig reads the environment and applies flag overrides.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.mode != "" {
		cfg.CompareMode = config.CompareMode(a.mode)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) newTracker() (*session.Tracker, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	c, err := a.newComparer(cfg)
	if err != nil {
		return nil, err
	}
	logger.WithField("mode", cfg.CompareMode).Debug("comparer ready")
	return session.NewTracker(c, session.WithLogger(logger)), nil
}
