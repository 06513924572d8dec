// Package filters решает, какие апдейты бот вообще обрабатывает.
package filters

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

type ChatFilter struct {
	// Пустой список — одобряем заявки в любые чаты, где бот администратор.
	joinChats map[int64]struct{}
}

func NewChatFilter(joinChatIDs []int64) *ChatFilter {
	f := &ChatFilter{}
	if len(joinChatIDs) > 0 {
		f.joinChats = make(map[int64]struct{}, len(joinChatIDs))
		for _, id := range joinChatIDs {
			f.joinChats[id] = struct{}{}
		}
	}
	return f
}

// AllowJoinRequest — заявка пришла в чат из JOIN_CHAT_IDS (или список пуст).
func (f *ChatFilter) AllowJoinRequest(jr *tgbotapi.ChatJoinRequest) bool {
	if jr == nil {
		return false
	}
	if f.joinChats == nil {
		return true
	}
	if _, ok := f.joinChats[jr.Chat.ID]; ok {
		return true
	}
	log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   jr.Chat.ID,
		"user_id":   jr.From.ID,
	}).Info("deny: join request to unlisted chat")
	return false
}

// AllowOperator — сообщение для панели: только личка и только от живого пользователя.
func (f *ChatFilter) AllowOperator(message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil || message.From.IsBot {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("deny: no human sender (service/channel message?)")
		return false
	}
	if !message.Chat.IsPrivate() {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
			"user_id":   message.From.ID,
		}).Debug("deny: not a private chat")
		return false
	}
	return true
}

// AllowCallback — нажатие кнопки под сообщением бота в личке.
func (f *ChatFilter) AllowCallback(cb *tgbotapi.CallbackQuery) bool {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return false
	}
	return cb.Message.Chat.IsPrivate()
}
