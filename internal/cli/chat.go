package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"verde/internal/session"
)

const chatHelp = `Type a message and press enter. Commands:
  :compare [n]  compare the n-th most recent reply (default 1)
  :close        close the comparison
  :savings      show your savings
  :new          start a new chat
  :quit         exit`

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := a.newTracker()
			if err != nil {
				return err
			}
			defer tr.Drain()
			return runChat(cmd, tr)
		},
	}
}

func runChat(cmd *cobra.Command, tr *session.Tracker) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, chatHelp)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, ":") {
			if quit := runMeta(out, tr, line); quit {
				return nil
			}
			continue
		}

		p, _, err := tr.Submit(ctx, localUser, line)
		if err != nil {
			// blank line
			continue
		}
		turn, err := p.Wait(ctx)
		if err != nil {
			p.Cancel()
			return err
		}
		fmt.Fprintf(out, "Verde: %s\n", turn.Text)
	}
}

// runMeta handles a ":" command and reports whether the loop should end.
func runMeta(out io.Writer, tr *session.Tracker, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":new":
		tr.Reset(localUser)
		fmt.Fprintln(out, "Started a new chat. Your savings are kept.")
	case ":savings":
		fmt.Fprintln(out, strings.Join(tr.Savings(localUser).Lines(), "\n"))
	case ":close":
		tr.CloseComparison(localUser)
		fmt.Fprintln(out, "Comparison closed.")
	case ":compare":
		n := 1
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil || v < 1 {
				fmt.Fprintf(out, "invalid reply number %q\n", fields[1])
				return false
			}
			n = v
		}
		turn, ok := nthAssistant(tr.Turns(localUser), n)
		if !ok {
			fmt.Fprintln(out, "No reply to compare yet.")
			return false
		}
		rec, err := tr.BuildComparison(localUser, turn.ID)
		if err != nil {
			fmt.Fprintf(out, "compare: %v\n", err)
			return false
		}
		fmt.Fprintln(out, rec.Text())
	case ":help":
		fmt.Fprintln(out, chatHelp)
	default:
		fmt.Fprintf(out, "unknown command %s, try :help\n", fields[0])
	}
	return false
}

// nthAssistant returns the n-th most recent assistant turn, 1-based.
func nthAssistant(turns []session.Turn, n int) (session.Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != session.RoleAssistant {
			continue
		}
		n--
		if n == 0 {
			return turns[i], true
		}
	}
	return session.Turn{}, false
}
