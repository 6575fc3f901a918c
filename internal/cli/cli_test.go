package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"verde/internal/compare"
	"verde/internal/config"
	"verde/internal/session"
)

func fixedFactory(c compare.Comparer, seen **config.Config) comparerFactory {
	return func(cfg *config.Config) (compare.Comparer, error) {
		if seen != nil {
			*seen = cfg
		}
		return c, nil
	}
}

func echoComparer() compare.Comparer {
	return compare.ComparerFunc(func(ctx context.Context, prompt string) (compare.Result, error) {
		return compare.Result{
			Prompt:  prompt,
			Verde:   compare.Reply{Response: "verde says " + prompt},
			ChatGPT: compare.Reply{Response: "chatgpt says " + prompt},
		}, nil
	})
}

func run(t *testing.T, f comparerFactory, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("COMPARE_MODE", "http")
	t.Setenv("LOG_LEVEL", "error")
	cmd := newRootCmd(f)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAsk_Text(t *testing.T) {
	out, err := run(t, fixedFactory(echoComparer(), nil), "", "ask", "hello", "there")
	require.NoError(t, err)
	assert.Contains(t, out, "Verde: verde says hello there")
	assert.Contains(t, out, "Energy saved:")
	assert.NotContains(t, out, "Similarity:")
}

func TestAsk_JSONWithComparison(t *testing.T) {
	out, err := run(t, fixedFactory(echoComparer(), nil), "", "ask", "--compare", "--format", "json", "hello")
	require.NoError(t, err)

	var res askResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "hello", res.Prompt)
	assert.Equal(t, "verde says hello", res.Reply.Text)
	require.NotNil(t, res.Comparison)
	assert.Equal(t, "chatgpt says hello", res.Comparison.ChatGPTResponse)
	assert.Less(t, res.Comparison.Verde.LatencyMs, res.Comparison.ChatGPT.LatencyMs)
	assert.Equal(t, 1, res.Savings.Replies)
	assert.Greater(t, res.Savings.EnergyKWh, 0.0)
}

func TestAsk_YAML(t *testing.T) {
	out, err := run(t, fixedFactory(echoComparer(), nil), "", "ask", "-f", "yaml", "hi")
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, "hi", res["prompt"])
	reply, ok := res["reply"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "verde says hi", reply["text"])
}

func TestAsk_FailureReturnsError(t *testing.T) {
	failing := compare.ComparerFunc(func(ctx context.Context, prompt string) (compare.Result, error) {
		return compare.Result{}, errors.New("fetch failed")
	})
	out, err := run(t, fixedFactory(failing, nil), "", "ask", "hello")
	require.Error(t, err)
	assert.Equal(t, "fetch failed", err.Error())
	assert.Contains(t, out, "Verde: fetch failed")
	assert.Contains(t, out, "Energy saved: 0.0000 kWh")
}

func TestAsk_BadFormat(t *testing.T) {
	_, err := run(t, fixedFactory(echoComparer(), nil), "", "ask", "--format", "xml", "hello")
	assert.Error(t, err)
}

func TestFlagsOverrideConfig(t *testing.T) {
	var seen *config.Config
	_, err := run(t, fixedFactory(echoComparer(), &seen), "", "--api-url", "http://other:9000", "ask", "hi")
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "http://other:9000", seen.APIURL)

	_, err = run(t, fixedFactory(echoComparer(), nil), "", "--mode", "pigeon", "ask", "hi")
	assert.Error(t, err)
}

func TestChat_Session(t *testing.T) {
	stdin := strings.Join([]string{
		"first",
		"   ",
		"second",
		":compare 2",
		":savings",
		":close",
		":new",
		":compare",
		":bogus",
		":quit",
		"never sent",
	}, "\n") + "\n"

	out, err := run(t, fixedFactory(echoComparer(), nil), stdin, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Verde: verde says first")
	assert.Contains(t, out, "Verde: verde says second")
	assert.Contains(t, out, "Prompt: first")
	assert.Contains(t, out, "chatgpt says first")
	assert.Contains(t, out, "Energy saved:")
	assert.Contains(t, out, "Comparison closed.")
	assert.Contains(t, out, "Started a new chat")
	assert.Contains(t, out, "No reply to compare yet.")
	assert.Contains(t, out, "unknown command :bogus")
	assert.NotContains(t, out, "never sent")
}

func TestNthAssistant(t *testing.T) {
	turns := []session.Turn{
		{ID: "u1", Role: session.RoleUser},
		{ID: "a1", Role: session.RoleAssistant},
		{ID: "u2", Role: session.RoleUser},
		{ID: "a2", Role: session.RoleAssistant},
	}
	got, ok := nthAssistant(turns, 1)
	require.True(t, ok)
	assert.Equal(t, "a2", got.ID)
	got, ok = nthAssistant(turns, 2)
	require.True(t, ok)
	assert.Equal(t, "a1", got.ID)
	_, ok = nthAssistant(turns, 3)
	assert.False(t, ok)
}
