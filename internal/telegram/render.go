package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"verde/internal/savings"
)

const (
	compareCmdPrefix = "cmp:"
	resetCmd         = "reset"
	closeCmd         = "close"
)

const greeting = "Hi! I'm Verde, a small language model that answers like a big one while using a " +
	"fraction of the energy.\n\nSend me any question. Tap Compare under a reply to see how " +
	"ChatGPT answered the same prompt, and /savings (or /savings today, /savings month) to see " +
	"what you've saved so far."

func replyKeyboard(turnID string, failed bool) tgbotapi.InlineKeyboardMarkup {
	if failed {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("New chat", resetCmd),
			),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Compare", compareCmdPrefix+turnID),
			tgbotapi.NewInlineKeyboardButtonData("New chat", resetCmd),
		),
	)
}

func closeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Close", closeCmd),
		),
	)
}

func savingsText(title string, t savings.Totals) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(t.Lines(), "\n"))
	return b.String()
}
