package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/wallet_sessions/internal/model"
)

const (
	buttonSessions  = "📋 My sessions"
	buttonSetWallet = "👛 Set wallet"

	callbackDetails  = "details:"
	callbackJoin     = "join:"
	callbackActivate = "activate:"
)

func (b *Bot) getMainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonSessions),
			tgbotapi.NewKeyboardButton(buttonSetWallet),
		),
	)
}

// getSessionsKeyboard offers one row per session: details, plus join or
// activate while the session is pending.
func (b *Bot) getSessionsKeyboard(sessions []model.SessionSummary) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, s := range sessions {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🔎 "+s.Name, callbackDetails+s.ID),
		}
		if !s.IsActive() {
			if s.IsJoined {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("🚀 Activate", callbackActivate+s.ID))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ Join", callbackJoin+s.ID))
			}
		}
		rows = append(rows, row)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
