// Package telegram — тонкая обёртка над Telegram Bot API.
// Клиент переводит ответы Telegram в ошибки из пакета common,
// чтобы рассылка и обработчики не зависели от кодов API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gatekeeper-bot/internal/common"
)

// API — то, что нам нужно от *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client — удалённый API платформы: одобрение заявок, отправка, удаление.
type Client struct {
	api API
}

// NewClient создаёт клиента поверх готового BotAPI.
func NewClient(api API) *Client {
	return &Client{api: api}
}

// Connect авторизуется в Telegram. Ошибка здесь фатальна для старта.
func Connect(token string, debug bool) (*tgbotapi.BotAPI, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = debug
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)
	return botAPI, nil
}

// DropPendingUpdates удаляет вебхук и всё, что пришло, пока бот был выключен.
func (c *Client) DropPendingUpdates(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("deleteWebhook: %w", classify(err))
	}
	return nil
}

// ApproveJoinRequest одобряет заявку userID на вступление в chatID.
func (c *Client) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("approveChatJoinRequest chat=%d user=%d: %w", chatID, userID, classify(err))
	}
	return nil
}

// SendText отправляет простое текстовое сообщение.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("sendMessage chat=%d: %w", chatID, classify(err))
	}
	return nil
}

// DeleteMessage удаляет сообщение. Вызывающий сам решает, что делать с ошибкой:
// для best-effort операций её логируют и отбрасывают.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("deleteMessage chat=%d msg=%d: %w", chatID, messageID, classify(err))
	}
	return nil
}

// Send отправляет произвольный Chattable (клавиатуры, редактирование).
func (c *Client) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	sent, err := c.api.Send(msg)
	if err != nil {
		return sent, classify(err)
	}
	return sent, nil
}

// Request выполняет запрос без ответа-сообщения (answerCallbackQuery и т.п.).
func (c *Client) Request(req tgbotapi.Chattable) error {
	if _, err := c.api.Request(req); err != nil {
		return classify(err)
	}
	return nil
}

// classify раскладывает ошибку Telegram по классам:
// 403 → common.ErrRecipientBlocked, 429 → *common.RateLimitError, остальное как есть.
// Удалённый аккаунт («user is deactivated») тоже 403, но это не блокировка.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusForbidden && strings.Contains(apiErr.Message, "deactivated"):
		return err
	case apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrRecipientBlocked, apiErr.Message)
	case apiErr.Code == http.StatusTooManyRequests || apiErr.RetryAfter > 0:
		return &common.RateLimitError{
			RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
			Err:        err,
		}
	}
	return err
}
