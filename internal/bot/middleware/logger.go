// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const logTextLimit = 50

// LogUpdate логирует входящий апдейт на уровне debug.
// Текст сообщений не пишем: в личке оператор вводит логин и пароль.
func LogUpdate(update tgbotapi.Update) {
	fields := log.Fields{"update_id": update.UpdateID}

	switch {
	case update.ChatJoinRequest != nil:
		fields["kind"] = "chat_join_request"
		fields["chat_id"] = update.ChatJoinRequest.Chat.ID
		fields["user_id"] = update.ChatJoinRequest.From.ID
	case update.CallbackQuery != nil:
		fields["kind"] = "callback_query"
		fields["data"] = update.CallbackQuery.Data
		if update.CallbackQuery.From != nil {
			fields["user_id"] = update.CallbackQuery.From.ID
		}
	case update.Message != nil:
		fields["kind"] = "message"
		if update.Message.Chat != nil {
			fields["chat_id"] = update.Message.Chat.ID
		}
		if update.Message.From != nil {
			fields["user_id"] = update.Message.From.ID
			fields["username"] = update.Message.From.UserName
		}
		if update.Message.IsCommand() {
			fields["command"] = truncate(update.Message.Command(), logTextLimit)
		}
		fields["text_len"] = utf8.RuneCountInString(update.Message.Text)
	default:
		fields["kind"] = "other"
	}

	log.WithFields(fields).Debug("Входящий апдейт")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "..."
}
