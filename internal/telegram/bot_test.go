package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"verde/internal/compare"
	"verde/internal/logging"
	"verde/internal/savings"
	"verde/internal/session"
	"verde/internal/storage"
)

type sentMessage struct {
	chatID int64
	text   string
	markup interface{}
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, sentMessage{chatID: m.ChatID, text: m.Text, markup: m.ReplyMarkup})
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type memRecorder struct{ events []storage.Event }

func (m *memRecorder) AppendInteraction(ev storage.Event) error {
	m.events = append(m.events, ev)
	return nil
}
func (m *memRecorder) LoadInteractions() ([]storage.Event, error) { return m.events, nil }

func newTestBot(c compare.Comparer) (*Bot, *fakeSender) {
	fs := &fakeSender{}
	tr := session.NewTracker(c, session.WithLogger(logging.Discard()))
	return &Bot{
		s:       fs,
		tracker: tr,
		logger:  logging.Discard(),
		now:     func() time.Time { return time.Now().UTC() },
	}, fs
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, UserName: "u"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
}

func commandMessage(userID int64, cmd string) *tgbotapi.Message {
	m := textMessage(userID, cmd)
	name := strings.Fields(cmd)[0]
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	return m
}

func callback(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}
}

func buttons(t *testing.T, markup interface{}) []string {
	t.Helper()
	kb, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", markup)
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			out = append(out, *btn.CallbackData)
		}
	}
	return out
}

func helloComparer() compare.Comparer {
	return compare.ComparerFunc(func(ctx context.Context, prompt string) (compare.Result, error) {
		return compare.Result{
			Verde:   compare.Reply{Response: "hi"},
			ChatGPT: compare.Reply{Response: "hey"},
		}, nil
	})
}

func TestHandleIncomingMessage_RepliesWithCompareButton(t *testing.T) {
	b, fs := newTestBot(helloComparer())
	b.handleIncomingMessage(context.Background(), textMessage(42, "hello"))
	b.inflight.Wait()

	msgs := fs.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %+v", msgs)
	}
	if msgs[0].text != "hi" || msgs[0].chatID != 42 {
		t.Fatalf("unexpected reply: %+v", msgs[0])
	}
	last, ok := b.tracker.LastAssistant(42)
	if !ok {
		t.Fatalf("assistant turn missing")
	}
	got := buttons(t, msgs[0].markup)
	if len(got) != 2 || got[0] != compareCmdPrefix+last.ID || got[1] != resetCmd {
		t.Fatalf("unexpected buttons: %v", got)
	}
	if len(fs.requests) == 0 {
		t.Fatalf("typing action not sent")
	}
}

func TestHandleIncomingMessage_EmptyIsIgnored(t *testing.T) {
	called := false
	b, fs := newTestBot(compare.ComparerFunc(func(ctx context.Context, prompt string) (compare.Result, error) {
		called = true
		return compare.Result{}, nil
	}))
	b.handleIncomingMessage(context.Background(), textMessage(1, "   "))
	b.inflight.Wait()
	if called || len(fs.messages()) != 0 {
		t.Fatalf("blank message must not be submitted")
	}
}

func TestHandleIncomingMessage_FailureShowsMessage(t *testing.T) {
	b, fs := newTestBot(compare.ComparerFunc(func(ctx context.Context, prompt string) (compare.Result, error) {
		return compare.Result{}, errors.New("fetch failed")
	}))
	b.handleIncomingMessage(context.Background(), textMessage(1, "hello"))
	b.inflight.Wait()

	msgs := fs.messages()
	if len(msgs) != 1 || msgs[0].text != "fetch failed" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if got := buttons(t, msgs[0].markup); len(got) != 1 || got[0] != resetCmd {
		t.Fatalf("failed reply should only offer a new chat: %v", got)
	}
	if b.tracker.Savings(1).EnergyKWh != 0 {
		t.Fatalf("failure must not add savings")
	}
}

func TestCompareCallback_SendsComparison(t *testing.T) {
	b, fs := newTestBot(helloComparer())
	b.handleIncomingMessage(context.Background(), textMessage(5, "hello"))
	b.inflight.Wait()
	last, _ := b.tracker.LastAssistant(5)

	b.handleCallback(callback(5, compareCmdPrefix+last.ID))

	msgs := fs.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected comparison message, got %+v", msgs)
	}
	out := msgs[1].text
	for _, want := range []string{"Prompt: hello", "hi", "hey", "Similarity:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("comparison missing %q: %s", want, out)
		}
	}
	if got := buttons(t, msgs[1].markup); len(got) != 1 || got[0] != closeCmd {
		t.Fatalf("unexpected buttons: %v", got)
	}
	if _, ok := b.tracker.ActiveComparison(5); !ok {
		t.Fatalf("comparison should be active")
	}

	b.handleCallback(callback(5, closeCmd))
	if _, ok := b.tracker.ActiveComparison(5); ok {
		t.Fatalf("comparison should be closed")
	}
}

func TestCompareCallback_UnknownTurn(t *testing.T) {
	b, fs := newTestBot(helloComparer())
	b.handleCallback(callback(5, compareCmdPrefix+"gone"))
	msgs := fs.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].text, "no longer") {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestResetKeepsSavings(t *testing.T) {
	b, _ := newTestBot(helloComparer())
	b.handleIncomingMessage(context.Background(), textMessage(9, "hello"))
	b.inflight.Wait()
	before := b.tracker.Savings(9)

	b.handleCallback(callback(9, resetCmd))
	if len(b.tracker.Turns(9)) != 0 {
		t.Fatalf("conversation not cleared")
	}
	if b.tracker.Savings(9) != before {
		t.Fatalf("savings changed on reset")
	}
}

func TestCommands(t *testing.T) {
	b, fs := newTestBot(helloComparer())
	b.handleCommand(context.Background(), commandMessage(3, "/start"))
	b.handleCommand(context.Background(), commandMessage(3, "/savings"))
	b.handleCommand(context.Background(), commandMessage(3, "/report"))

	msgs := fs.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].text, "Verde") {
		t.Fatalf("unexpected greeting: %q", msgs[0].text)
	}
	if !strings.Contains(msgs[1].text, "Energy saved: 0.0000 kWh") {
		t.Fatalf("unexpected savings: %q", msgs[1].text)
	}
	if !strings.Contains(msgs[2].text, "administrator") {
		t.Fatalf("report must be admin only: %q", msgs[2].text)
	}
}

func TestSendDailyReport(t *testing.T) {
	b, fs := newTestBot(helloComparer())
	inc := savings.FromEnergy(0.005)
	b.adminUserID = 99
	b.recorder = &memRecorder{events: []storage.Event{
		{Timestamp: b.now(), UserID: 1, Prompt: "hello", Savings: &inc},
	}}

	if err := b.SendDailyReport(context.Background()); err != nil {
		t.Fatalf("report: %v", err)
	}
	msgs := fs.messages()
	if len(msgs) != 1 || msgs[0].chatID != 99 {
		t.Fatalf("report not sent to admin: %+v", msgs)
	}
	if !strings.Contains(msgs[0].text, "Prompts: 1") || !strings.Contains(msgs[0].text, "Energy saved: 0.0050 kWh") {
		t.Fatalf("unexpected report: %s", msgs[0].text)
	}
}

func TestDeliver_SettledReplyIsSentAfterShutdown(t *testing.T) {
	b, fs := newTestBot(helloComparer())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	const rounds = 50
	for i := 0; i < rounds; i++ {
		p, _, err := b.tracker.Submit(context.Background(), 1, "hello")
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		<-p.Done()
		b.deliver(ctx, 1, p)
	}

	msgs := fs.messages()
	if len(msgs) != rounds {
		t.Fatalf("expected %d replies, got %d", rounds, len(msgs))
	}
	for _, m := range msgs {
		if m.text != "hi" {
			t.Fatalf("unexpected reply text %q", m.text)
		}
		if got := buttons(t, m.markup); got[0] == compareCmdPrefix {
			t.Fatalf("compare button without turn id")
		}
	}
}

func TestDeliver_CancelsUnsettledReplyOnShutdown(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b, fs := newTestBot(compare.ComparerFunc(func(ctx context.Context, prompt string) (compare.Result, error) {
		select {
		case <-ctx.Done():
			return compare.Result{}, ctx.Err()
		case <-release:
			return compare.Result{}, nil
		}
	}))
	p, _, err := b.tracker.Submit(context.Background(), 1, "hello")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.deliver(ctx, 1, p)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("pending reply was not cancelled")
	}
	turn, _ := p.Wait(context.Background())
	if turn.Text != session.CancelledText {
		t.Fatalf("unexpected turn text %q", turn.Text)
	}
	if len(fs.messages()) != 0 {
		t.Fatalf("nothing should be sent after shutdown: %+v", fs.messages())
	}
}

func TestHandleCommand_WithoutSender(t *testing.T) {
	b, fs := newTestBot(helloComparer())
	msg := commandMessage(3, "/savings")
	msg.From = nil
	b.handleCommand(context.Background(), msg)
	if len(fs.messages()) != 0 {
		t.Fatalf("expected no reply, got %+v", fs.messages())
	}
}

func TestSavingsByPeriod(t *testing.T) {
	b, fs := newTestBot(helloComparer())
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	today, lastWeek, lastMonth := savings.FromEnergy(0.002), savings.FromEnergy(0.003), savings.FromEnergy(0.009)
	b.recorder = &memRecorder{events: []storage.Event{
		{Timestamp: now.Add(-time.Hour), UserID: 3, Prompt: "a", Savings: &today},
		{Timestamp: now.AddDate(0, 0, -7), UserID: 3, Prompt: "b", Savings: &lastWeek},
		{Timestamp: now.AddDate(0, -1, 0), UserID: 3, Prompt: "c", Savings: &lastMonth},
	}}

	b.handleCommand(context.Background(), commandMessage(3, "/savings today"))
	b.handleCommand(context.Background(), commandMessage(3, "/savings month"))
	b.handleCommand(context.Background(), commandMessage(3, "/savings year"))

	msgs := fs.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].text, "today") || !strings.Contains(msgs[0].text, "Energy saved: 0.0020 kWh") {
		t.Fatalf("unexpected daily savings: %q", msgs[0].text)
	}
	if !strings.Contains(msgs[1].text, "this month") || !strings.Contains(msgs[1].text, "Energy saved: 0.0050 kWh") {
		t.Fatalf("unexpected monthly savings: %q", msgs[1].text)
	}
	if !strings.Contains(msgs[2].text, "Usage") {
		t.Fatalf("unexpected reply to bad period: %q", msgs[2].text)
	}
}

func TestSavingsByPeriod_WithoutLog(t *testing.T) {
	b, fs := newTestBot(helloComparer())
	b.handleCommand(context.Background(), commandMessage(3, "/savings today"))
	msgs := fs.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].text, "not available") {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}
