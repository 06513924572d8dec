package joinrequest

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/gatekeeper-bot/internal/features/members"
)

// Handler переводит апдейт Telegram в Request.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleChatJoinRequest обрабатывает событие chat_join_request.
func (h *Handler) HandleChatJoinRequest(ctx context.Context, jr *tgbotapi.ChatJoinRequest) Result {
	date := time.Now().UTC()
	if jr.Date > 0 {
		date = time.Unix(int64(jr.Date), 0).UTC()
	}
	return h.service.Handle(ctx, Request{
		ChatID:   jr.Chat.ID,
		UserID:   jr.From.ID,
		Username: jr.From.UserName,
		FullName: members.FullNameOf(jr.From.FirstName, jr.From.LastName),
		Date:     date,
	})
}
