// Package session tracks a Verde conversation: its turns, the cumulative
// savings and the comparison currently on display.
//
// Session values are updated only through the pure functions in this file,
// which return a new Session and never modify the one passed in. Tracker
// owns one Session per user and serializes those updates.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"verde/internal/compare"
	"verde/internal/comparison"
	"verde/internal/savings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Display texts used in place of a reply.
const (
	NoVerdeResponse  = "Sorry, no Verde response received"
	GenericErrorText = "Sorry, something went wrong."
	CancelledText    = "Request cancelled."
)

type State int

const (
	Idle State = iota
	AwaitingReply
)

func (s State) String() string {
	if s == AwaitingReply {
		return "awaiting_reply"
	}
	return "idle"
}

// Turn is one message of the conversation. Turns are never modified after
// they are created.
type Turn struct {
	ID                string    `json:"id" yaml:"id"`
	Role              Role      `json:"role" yaml:"role"`
	Text              string    `json:"text" yaml:"text"`
	Prompt            string    `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	PrimaryResponse   string    `json:"primary_response,omitempty" yaml:"primary_response,omitempty"`
	SecondaryResponse string    `json:"secondary_response,omitempty" yaml:"secondary_response,omitempty"`
	Failed            bool      `json:"failed,omitempty" yaml:"failed,omitempty"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
}

// Session is the whole state of one user's conversation.
type Session struct {
	Turns   []Turn
	Savings savings.Totals
	Active  *comparison.Record
	// Draft is the unsent input buffer.
	Draft    string
	InFlight int
	// Epoch changes on every Reset; replies started in an older epoch do
	// not land in the new conversation.
	Epoch int
}

// State reports whether any submission is still waiting for its reply.
func (s Session) State() State {
	if s.InFlight > 0 {
		return AwaitingReply
	}
	return Idle
}

// Find returns the turn with the given id.
func (s Session) Find(id string) (Turn, bool) {
	for _, t := range s.Turns {
		if t.ID == id {
			return t, true
		}
	}
	return Turn{}, false
}

// LastAssistant returns the most recent assistant turn.
func (s Session) LastAssistant() (Turn, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == RoleAssistant {
			return s.Turns[i], true
		}
	}
	return Turn{}, false
}

// AppendUser adds the user's prompt and marks a reply as pending. It
// reports false, leaving s untouched, when text is blank.
func AppendUser(s Session, id, text string, now time.Time) (Session, Turn, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s, Turn{}, false
	}
	t := Turn{ID: id, Role: RoleUser, Text: text, Prompt: text, CreatedAt: now}
	s.Turns = withTurn(s.Turns, t)
	s.Draft = ""
	s.InFlight++
	return s, t, true
}

// ApplyReply settles a successful submission started in epoch: it adds the
// assistant turn and the savings increment.
func ApplyReply(s Session, epoch int, id, prompt string, res compare.Result, inc savings.Increment, now time.Time) (Session, Turn) {
	text := res.Verde.Response
	if strings.TrimSpace(text) == "" {
		text = NoVerdeResponse
	}
	t := Turn{
		ID:                id,
		Role:              RoleAssistant,
		Text:              text,
		Prompt:            prompt,
		PrimaryResponse:   res.Verde.Response,
		SecondaryResponse: res.ChatGPT.Response,
		CreatedAt:         now,
	}
	s = settle(s, epoch, t)
	s.Savings = s.Savings.Add(inc)
	return s, t
}

// ApplyFailure settles a failed submission. Savings are left unchanged.
func ApplyFailure(s Session, epoch int, id, prompt string, err error, now time.Time) (Session, Turn) {
	t := Turn{
		ID:        id,
		Role:      RoleAssistant,
		Text:      FailureText(err),
		Prompt:    prompt,
		Failed:    true,
		CreatedAt: now,
	}
	return settle(s, epoch, t), t
}

// Reset starts a new conversation. Savings are kept, they accumulate over
// the lifetime of the session rather than per conversation.
func Reset(s Session) Session {
	return Session{
		Savings:  s.Savings,
		InFlight: s.InFlight,
		Epoch:    s.Epoch + 1,
	}
}

// FailureText is what the user sees when a reply could not be acquired.
func FailureText(err error) string {
	if err == nil {
		return GenericErrorText
	}
	if errors.Is(err, context.Canceled) {
		return CancelledText
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return GenericErrorText
}

func settle(s Session, epoch int, t Turn) Session {
	if s.InFlight > 0 {
		s.InFlight--
	}
	if epoch == s.Epoch {
		s.Turns = withTurn(s.Turns, t)
	}
	return s
}

// withTurn appends into a fresh backing array so earlier Session values
// keep their own slice.
func withTurn(turns []Turn, t Turn) []Turn {
	out := make([]Turn, len(turns), len(turns)+1)
	copy(out, turns)
	return append(out, t)
}
