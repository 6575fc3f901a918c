package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		withCompare bool
		format      string
	)
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send a single prompt and print the reply",
		Example: `  verde ask "why is the sky blue?"
  verde ask --compare --format yaml "write a haiku about wind"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validFormat(format) {
				return errors.New("--format must be text, json or yaml")
			}
			tr, err := a.newTracker()
			if err != nil {
				return err
			}
			defer tr.Drain()

			p, _, err := tr.Submit(cmd.Context(), localUser, strings.Join(args, " "))
			if err != nil {
				return err
			}
			turn, err := p.Wait(cmd.Context())
			if err != nil {
				p.Cancel()
				return err
			}

			res := askResult{Prompt: p.UserTurn.Text, Reply: turn, Savings: tr.Savings(localUser)}
			if withCompare {
				rec, err := tr.BuildComparison(localUser, turn.ID)
				if err != nil {
					return err
				}
				res.Comparison = &rec
			}
			if err := render(cmd.OutOrStdout(), format, res); err != nil {
				return err
			}
			if turn.Failed {
				return errors.New(turn.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withCompare, "compare", false, "also print the side-by-side comparison")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return cmd
}
