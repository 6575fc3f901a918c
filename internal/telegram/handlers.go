package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"verde/internal/analytics"
	"verde/internal/session"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	switch msg.Command() {
	case "start":
		b.sendMessage(msg.Chat.ID, greeting)
	case "new":
		b.tracker.Reset(msg.From.ID)
		b.sendMessage(msg.Chat.ID, "Started a new chat. Your savings are kept.")
	case "savings":
		b.handleSavings(msg)
	case "report":
		if msg.From.ID != b.adminUserID || b.adminUserID == 0 {
			b.sendMessage(msg.Chat.ID, "This command is only available to the administrator.")
			return
		}
		if err := b.SendDailyReport(ctx); err != nil {
			b.logger.WithError(err).Error("report generation failed")
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Report failed: %v", err))
		}
	default:
		b.sendMessage(msg.Chat.ID, "Unknown command. Just send me a question.")
	}
}

// handleIncomingMessage submits the text and delivers the reply once it
// arrives. The update loop is not blocked while the reply is pending.
func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	log := b.logger.WithField("user_id", msg.From.ID).WithField("username", msg.From.UserName)

	pending, _, err := b.tracker.Submit(ctx, msg.From.ID, msg.Text)
	if errors.Is(err, session.ErrEmptyPrompt) {
		log.Debug("ignoring empty message")
		return
	}
	if err != nil {
		log.WithError(err).Error("submit failed")
		b.sendMessage(msg.Chat.ID, session.GenericErrorText)
		return
	}
	log.Info("prompt received")

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.deliver(ctx, msg.Chat.ID, pending)
	}()
}

func (b *Bot) deliver(ctx context.Context, chatID int64, p *session.Pending) {
	b.request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	ticker := time.NewTicker(typingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-p.Done():
			b.sendReply(chatID, p)
			return
		case <-ticker.C:
			b.request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
		case <-ctx.Done():
			// A reply that settled while shutting down is still delivered.
			select {
			case <-p.Done():
				b.sendReply(chatID, p)
			default:
				p.Cancel()
			}
			return
		}
	}
}

// sendReply sends the settled assistant turn. p.Done must already be closed.
func (b *Bot) sendReply(chatID int64, p *session.Pending) {
	turn, err := p.Wait(context.Background())
	if err != nil || turn.ID == "" {
		return
	}
	out := tgbotapi.NewMessage(chatID, turn.Text)
	out.ReplyMarkup = replyKeyboard(turn.ID, turn.Failed)
	b.send(out)
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	b.request(tgbotapi.NewCallback(cb.ID, ""))
	if cb.From == nil || cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case cb.Data == resetCmd:
		b.tracker.Reset(cb.From.ID)
		b.sendMessage(chatID, "Started a new chat. Your savings are kept.")
	case cb.Data == closeCmd:
		b.tracker.CloseComparison(cb.From.ID)
		b.request(tgbotapi.NewDeleteMessage(chatID, cb.Message.MessageID))
	case strings.HasPrefix(cb.Data, compareCmdPrefix):
		b.handleCompare(chatID, cb.From.ID, strings.TrimPrefix(cb.Data, compareCmdPrefix))
	default:
		b.logger.WithField("data", cb.Data).Warn("unknown callback")
	}
}

func (b *Bot) handleCompare(chatID, userID int64, turnID string) {
	rec, err := b.tracker.BuildComparison(userID, turnID)
	if errors.Is(err, session.ErrTurnNotFound) {
		b.sendMessage(chatID, "This reply is no longer part of the conversation.")
		return
	}
	if err != nil {
		b.logger.WithError(err).Error("comparison failed")
		b.sendMessage(chatID, session.GenericErrorText)
		return
	}
	out := tgbotapi.NewMessage(chatID, rec.Text())
	out.ReplyMarkup = closeKeyboard()
	b.send(out)
}

// handleSavings shows lifetime totals, or with "today" or "month" the
// savings recorded in that period.
func (b *Bot) handleSavings(msg *tgbotapi.Message) {
	period := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	var window func(time.Time) (time.Time, time.Time)
	switch period {
	case "", "all", "lifetime":
		b.sendMessage(msg.Chat.ID, savingsText("Your savings with Verde", b.tracker.Savings(msg.From.ID)))
		return
	case "today":
		window = analytics.DayWindow
	case "month":
		window = analytics.MonthWindow
	default:
		b.sendMessage(msg.Chat.ID, "Usage: /savings [today|month]")
		return
	}
	if b.recorder == nil {
		b.sendMessage(msg.Chat.ID, "Savings by period are not available, the interaction log is disabled.")
		return
	}
	events, err := b.recorder.LoadInteractions()
	if err != nil {
		b.logger.WithError(err).Error("failed to load interactions")
		b.sendMessage(msg.Chat.ID, session.GenericErrorText)
		return
	}
	from, to := window(b.now())
	totals := analytics.UserSavings(events, msg.From.ID, from, to)
	title := "Your savings today"
	if period == "month" {
		title = "Your savings this month"
	}
	b.sendMessage(msg.Chat.ID, savingsText(title, totals))
}

// SendDailyReport sends today's usage and savings summary to the admin.
func (b *Bot) SendDailyReport(ctx context.Context) error {
	if b.adminUserID == 0 {
		b.logger.Warn("ADMIN_USER not set, skipping report")
		return nil
	}
	if b.recorder == nil {
		return errors.New("no interaction log configured")
	}
	events, err := b.recorder.LoadInteractions()
	if err != nil {
		return fmt.Errorf("load interactions: %w", err)
	}
	stats := analytics.AnalyzeDailyLogs(events, b.now())
	b.sendMessage(b.adminUserID, stats.Summary())
	b.logger.WithField("date", stats.Date).WithField("prompts", stats.Prompts).Info("report sent")
	return nil
}
