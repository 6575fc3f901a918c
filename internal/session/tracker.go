package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"verde/internal/compare"
	"verde/internal/comparison"
	"verde/internal/logging"
	"verde/internal/savings"
	"verde/internal/storage"
)

var (
	ErrEmptyPrompt  = errors.New("prompt is empty")
	ErrTurnNotFound = errors.New("turn not found")
)

// Rand is the random source used for savings and comparison sampling.
type Rand interface {
	Float64() float64
}

// Tracker owns one Session per user. All methods are safe for concurrent
// use.
type Tracker struct {
	mu       sync.Mutex
	sessions map[int64]Session

	comparer compare.Comparer
	rng      Rand
	now      func() time.Time
	newID    func() string
	recorder storage.Recorder
	logger   *logrus.Logger

	wg sync.WaitGroup
}

type Option func(*Tracker)

// WithRand injects the random source. It is only used under the tracker's
// lock, so it need not be safe for concurrent use.
func WithRand(r Rand) Option { return func(t *Tracker) { t.rng = r } }

func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

func WithIDs(newID func() string) Option { return func(t *Tracker) { t.newID = newID } }

// WithRecorder logs every finished submission to rec.
func WithRecorder(rec storage.Recorder) Option { return func(t *Tracker) { t.recorder = rec } }

func WithLogger(l *logrus.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

func NewTracker(c compare.Comparer, opts ...Option) *Tracker {
	t := &Tracker{
		sessions: make(map[int64]Session),
		comparer: c,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		logger:   logging.Discard(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Pending is the handle for one submitted prompt.
type Pending struct {
	UserTurn Turn

	call  *compare.Call
	done  chan struct{}
	reply Turn
}

// Cancel aborts the outstanding request. The submission then settles as a
// failure.
func (p *Pending) Cancel() { p.call.Cancel() }

// Done is closed once the assistant turn has been added.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the assistant turn is available or ctx is done.
func (p *Pending) Wait(ctx context.Context) (Turn, error) {
	select {
	case <-p.done:
		return p.reply, nil
	case <-ctx.Done():
		return Turn{}, ctx.Err()
	}
}

// Submit appends the user's prompt right away and asks the comparer for a
// reply in the background. Blank text is rejected with ErrEmptyPrompt and
// nothing else happens. Submissions are independent: several may be in
// flight and their replies land in completion order.
func (t *Tracker) Submit(ctx context.Context, userID int64, text string) (*Pending, Turn, error) {
	t.mu.Lock()
	next, userTurn, ok := AppendUser(t.sessions[userID], t.newID(), text, t.now())
	if !ok {
		t.mu.Unlock()
		return nil, Turn{}, ErrEmptyPrompt
	}
	t.sessions[userID] = next
	epoch := next.Epoch
	t.mu.Unlock()

	t.logger.WithField("user_id", userID).WithField("turn_id", userTurn.ID).Debug("prompt submitted")

	prompt := userTurn.Text
	p := &Pending{
		UserTurn: userTurn,
		call:     compare.Start(ctx, t.comparer, prompt),
		done:     make(chan struct{}),
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		res, err := p.call.Wait(context.Background())
		p.reply = t.complete(userID, epoch, prompt, res, err)
		close(p.done)
	}()
	return p, userTurn, nil
}

func (t *Tracker) complete(userID int64, epoch int, prompt string, res compare.Result, err error) Turn {
	t.mu.Lock()
	s := t.sessions[userID]
	id := t.newID()
	now := t.now()
	var (
		turn Turn
		inc  *savings.Increment
	)
	if err != nil {
		s, turn = ApplyFailure(s, epoch, id, prompt, err, now)
	} else {
		sample := savings.Sample(t.rng)
		inc = &sample
		s, turn = ApplyReply(s, epoch, id, prompt, res, sample, now)
	}
	stale := epoch != s.Epoch
	t.sessions[userID] = s
	t.mu.Unlock()

	entry := t.logger.WithField("user_id", userID).WithField("turn_id", turn.ID)
	switch {
	case err != nil:
		entry.WithError(err).Warn("reply acquisition failed")
	case stale:
		entry.Info("reply arrived after reset, not added to conversation")
	default:
		entry.WithField("energy_kwh", inc.EnergyKWh).Info("reply received")
	}

	if t.recorder != nil {
		ev := storage.Event{
			Timestamp:       now,
			UserID:          userID,
			TurnID:          turn.ID,
			Prompt:          prompt,
			VerdeResponse:   res.Verde.Response,
			ChatGPTResponse: res.ChatGPT.Response,
			Savings:         inc,
		}
		if err != nil {
			ev.Error = turn.Text
		}
		if rerr := t.recorder.AppendInteraction(ev); rerr != nil {
			t.logger.WithError(rerr).Error("failed to record interaction")
		}
	}
	return turn
}

// BuildComparison samples a fresh comparison for the given turn and makes
// it the active one. Missing replies are shown as placeholders.
func (t *Tracker) BuildComparison(userID int64, turnID string) (comparison.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.sessions[userID]
	turn, ok := s.Find(turnID)
	if !ok {
		return comparison.Record{}, ErrTurnNotFound
	}
	rec := comparison.Build(t.rng, turn.Prompt, turn.PrimaryResponse, turn.SecondaryResponse)
	active := rec
	s.Active = &active
	t.sessions[userID] = s
	return rec, nil
}

// ActiveComparison returns the comparison currently on display.
func (t *Tracker) ActiveComparison(userID int64) (comparison.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.sessions[userID].Active
	if a == nil {
		return comparison.Record{}, false
	}
	return *a, true
}

func (t *Tracker) CloseComparison(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.sessions[userID]
	s.Active = nil
	t.sessions[userID] = s
}

// Reset clears the conversation but keeps the savings totals.
func (t *Tracker) Reset(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[userID] = Reset(t.sessions[userID])
}

func (t *Tracker) SetDraft(userID int64, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.sessions[userID]
	s.Draft = text
	t.sessions[userID] = s
}

func (t *Tracker) Draft(userID int64) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[userID].Draft
}

// Turns returns a copy of the conversation.
func (t *Tracker) Turns(userID int64) []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	turns := t.sessions[userID].Turns
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (t *Tracker) LastAssistant(userID int64) (Turn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[userID].LastAssistant()
}

func (t *Tracker) Savings(userID int64) savings.Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[userID].Savings
}

func (t *Tracker) State(userID int64) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[userID].State()
}

// Snapshot returns a copy of the user's whole session.
func (t *Tracker) Snapshot(userID int64) Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.sessions[userID]
	s.Turns = append([]Turn(nil), s.Turns...)
	if s.Active != nil {
		a := *s.Active
		s.Active = &a
	}
	return s
}

// Drain waits for every outstanding submission to settle.
func (t *Tracker) Drain() { t.wg.Wait() }
