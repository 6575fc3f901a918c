package telegram

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"verde/internal/session"
	"verde/internal/storage"
)

// typingEvery is how often the typing indicator is refreshed; Telegram
// clears it after about five seconds.
const typingEvery = 4 * time.Second

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	tracker     *session.Tracker
	recorder    storage.Recorder
	adminUserID int64
	logger      *logrus.Logger
	now         func() time.Time

	inflight sync.WaitGroup
}

func New(botToken string, tracker *session.Tracker, recorder storage.Recorder, adminUserID int64, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bot{
		api:         api,
		s:           botAPISender{api: api},
		tracker:     tracker,
		recorder:    recorder,
		adminUserID: adminUserID,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start polls for updates until ctx is cancelled, then waits for pending
// replies to be delivered.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.WithField("bot", b.api.Self.UserName).Info("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.inflight.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.inflight.Wait()
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
			return
		}
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.s.Send(c); err != nil {
		b.logger.WithError(err).Error("failed to send message")
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.s.Request(c); err != nil {
		b.logger.WithError(err).Warn("bot api request failed")
	}
}
