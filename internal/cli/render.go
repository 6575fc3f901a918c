package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"verde/internal/comparison"
	"verde/internal/savings"
	"verde/internal/session"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type askResult struct {
	Prompt     string             `json:"prompt" yaml:"prompt"`
	Reply      session.Turn       `json:"reply" yaml:"reply"`
	Comparison *comparison.Record `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	Savings    savings.Totals     `json:"savings" yaml:"savings"`
}

func validFormat(f string) bool {
	switch f {
	case formatText, formatJSON, formatYAML:
		return true
	}
	return false
}

func render(w io.Writer, format string, res askResult) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case formatText:
		var b strings.Builder
		fmt.Fprintf(&b, "Verde: %s\n", res.Reply.Text)
		if res.Comparison != nil {
			b.WriteString("\n")
			b.WriteString(res.Comparison.Text())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(res.Savings.Lines(), "\n"))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
