package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"yt-download-bot/internal/config"
)

func subscriptionKeyboard(channels []config.Channel) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(channels)+1)
	for _, ch := range channels {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("➕ "+ch.Name, ch.URL()),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(BtnCheckSubscription, CallbackCheckSubscription),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func adminStartKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnAdminMode), tgbotapi.NewKeyboardButton(BtnHelp)),
	)
}

func adminKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnStats), tgbotapi.NewKeyboardButton(BtnBroadcast)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnUsers), tgbotapi.NewKeyboardButton(BtnTop)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnNormalMode)),
	)
}
