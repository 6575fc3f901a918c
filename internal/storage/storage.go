package storage

import (
	"time"

	"verde/internal/savings"
)

// Event records one finished submission: the prompt, what came back and
// the savings it earned. Failed submissions carry Error and no Savings.
type Event struct {
	Timestamp       time.Time          `json:"timestamp"`
	UserID          int64              `json:"user_id"`
	TurnID          string             `json:"turn_id"`
	Prompt          string             `json:"prompt"`
	VerdeResponse   string             `json:"verde_response,omitempty"`
	ChatGPTResponse string             `json:"chatgpt_response,omitempty"`
	Error           string             `json:"error,omitempty"`
	Savings         *savings.Increment `json:"savings,omitempty"`
}

func (e Event) Failed() bool { return e.Error != "" }

// Recorder abstracts persistence of interaction events.
// LoadInteractions returns events in the order they were appended.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
