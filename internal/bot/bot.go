// Package bot содержит главный цикл бота: long polling, фильтры и маршрутизацию апдейтов.
package bot

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gatekeeper-bot/internal/bot/filters"
	"serotonyl.ru/gatekeeper-bot/internal/bot/middleware"
	"serotonyl.ru/gatekeeper-bot/internal/config"
	"serotonyl.ru/gatekeeper-bot/internal/features/joinrequest"
)

const helpText = "Я одобряю заявки на вступление в канал и отправляю приветствие.\n" +
	"Для администратора: /panel — панель управления."

// UpdateSource — источник апдейтов (tgbotapi.BotAPI).
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// JoinRequestHandler обрабатывает заявки на вступление.
type JoinRequestHandler interface {
	HandleChatJoinRequest(ctx context.Context, jr *tgbotapi.ChatJoinRequest) joinrequest.Result
}

// AdminHandler — панель администратора.
type AdminHandler interface {
	HandlePanel(ctx context.Context, message *tgbotapi.Message)
	HandleMessage(ctx context.Context, message *tgbotapi.Message) bool
	HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery)
}

// Messenger отправляет служебные ответы.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	updates UpdateSource
	cfg     *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	joinHandler  JoinRequestHandler
	adminHandler AdminHandler
	messenger    Messenger

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	// апдейты одного пользователя обрабатываются строго по очереди
	locks *keyedMutex
	wg    sync.WaitGroup
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	updates UpdateSource,
	cfg *config.Config,
	chatFilter *filters.ChatFilter,
	joinHandler JoinRequestHandler,
	adminHandler AdminHandler,
	messenger Messenger,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		updates:      updates,
		cfg:          cfg,
		chatFilter:   chatFilter,
		rateLimiter:  middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		joinHandler:  joinHandler,
		adminHandler: adminHandler,
		messenger:    messenger,
		parser:       NewCommandParser(),
		inflight:     make(chan struct{}, maxInFlight),
		locks:        newKeyedMutex(),
	}
}

// Start запускает polling обновлений от Telegram и блокируется до отмены ctx.
// Перед возвратом дожидается уже запущенных обработчиков.
func (b *Bot) Start(ctx context.Context) {
	defer b.rateLimiter.Close()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds
	u.AllowedUpdates = []string{"message", "callback_query", "chat_join_request"}

	updates := b.updates.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает заявки...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.updates.StopReceivingUpdates()
			b.wg.Wait()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.wg.Wait()
				return
			}

			// лимит параллелизма
			select {
			case b.inflight <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				defer func() { <-b.inflight }()

				if key, ok := conversationKey(upd); ok {
					unlock := b.locks.Lock(key)
					defer unlock()
				}
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// conversationKey — id пользователя, от которого пришёл апдейт.
func conversationKey(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.ChatJoinRequest != nil:
		return update.ChatJoinRequest.From.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID, true
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	}
	return 0, false
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	middleware.LogUpdate(update)

	switch {
	case update.ChatJoinRequest != nil:
		if b.chatFilter.AllowJoinRequest(update.ChatJoinRequest) {
			b.joinHandler.HandleChatJoinRequest(ctx, update.ChatJoinRequest)
		}

	case update.CallbackQuery != nil:
		if b.chatFilter.AllowCallback(update.CallbackQuery) {
			b.adminHandler.HandleCallback(ctx, update.CallbackQuery)
		}

	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage — текст в личке: команды и шаги диалога панели.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Text == "" || !b.chatFilter.AllowOperator(message) {
		return
	}

	userID := message.From.ID
	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}

	if cmd, _, isCommand := b.parser.ParseCommand(message.Text); isCommand {
		switch cmd {
		case "panel":
			b.adminHandler.HandlePanel(ctx, message)
			return
		case "start", "help":
			if err := b.messenger.SendText(ctx, message.Chat.ID, helpText); err != nil {
				log.WithError(err).WithField("chat_id", message.Chat.ID).Debug("help not sent")
			}
			return
		}
	}

	// Неизвестные команды тоже могут быть текстом рассылки.
	if !b.adminHandler.HandleMessage(ctx, message) {
		log.WithField("user_id", userID).Debug("message outside of any dialog ignored")
	}
}

// CommandParser разбирает команды вида /cmd и /cmd@botname.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := parts[0]
	// В группах Telegram дописывает имя бота: /panel@gatekeeper_bot
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return strings.ToLower(command), args, true
}
