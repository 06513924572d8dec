// Package admin — handlers.go обрабатывает взаимодействие с панелью в Telegram.
// Панель работает через inline-клавиатуру в личных сообщениях.
// Поток: /panel → логин → пароль → меню → действие → пошаговый диалог.
package admin

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gatekeeper-bot/internal/common"
	"serotonyl.ru/gatekeeper-bot/internal/features/broadcast"
)

// Данные inline-кнопок.
const (
	CallbackStats      = "stats"
	CallbackBroadcast  = "broadcast"
	CallbackSetWelcome = "set_welcome"
	CallbackLogout     = "logout"
	CallbackCancel     = "cancel_action"
)

// Messenger — то, что обработчику нужно от Telegram-клиента.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// MemberCounter — статистика участников.
type MemberCounter interface {
	Count(ctx context.Context) (int64, error)
}

// WelcomeEditor — чтение и замена приветствия.
type WelcomeEditor interface {
	GetWelcomeMessage(ctx context.Context) (string, error)
	SetWelcomeMessage(ctx context.Context, text string) error
}

// Broadcaster — запуск рассылки.
type Broadcaster interface {
	Run(ctx context.Context, text string) (broadcast.Outcome, error)
}

// Handler обрабатывает команды и кнопки панели.
type Handler struct {
	service     *Service
	members     MemberCounter
	welcome     WelcomeEditor
	broadcaster Broadcaster
	bot         Messenger
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, members MemberCounter, welcome WelcomeEditor, broadcaster Broadcaster, bot Messenger) *Handler {
	return &Handler{
		service:     service,
		members:     members,
		welcome:     welcome,
		broadcaster: broadcaster,
		bot:         bot,
	}
}

// HandlePanel — команда /panel.
func (h *Handler) HandlePanel(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch h.service.OpenPanel(message.From.ID) {
	case PanelMenu:
		h.sendWithMenu(chatID, "🔓 Панель управления:")
	case PanelAskUsername:
		h.sendMessage(chatID, "🔒 ПРОВЕРКА ДОСТУПА\nВведите логин:")
	}
}

// HandleMessage обрабатывает обычный текст оператора в личке.
// Возвращает false, если у оператора нет активного диалога.
func (h *Handler) HandleMessage(ctx context.Context, message *tgbotapi.Message) bool {
	operatorID := message.From.ID

	switch h.service.State(operatorID) {
	case StateAwaitingUsername, StateAwaitingPassword:
		h.handleCredential(ctx, message)
		return true
	case StateAwaitingBroadcastText:
		h.handleBroadcastText(ctx, message)
		return true
	case StateAwaitingWelcomeText:
		h.handleWelcomeText(ctx, message)
		return true
	}
	return false
}

// handleCredential — шаги логина и пароля. Введённый текст сразу удаляем из чата.
func (h *Handler) handleCredential(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	step := h.service.SubmitCredential(message.From.ID, message.Text)

	// Удаление best-effort: без прав в чате оно может не сработать, и это не ошибка входа.
	if err := h.bot.DeleteMessage(ctx, chatID, message.MessageID); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Debug("Не удалось удалить сообщение с учётными данными")
	}

	switch step {
	case StepAskPassword:
		h.sendMessage(chatID, "✅ Логин верный.\n🔑 Введите пароль:")
	case StepAuthenticated:
		h.sendWithMenu(chatID, "✅ Вход выполнен! Добро пожаловать.")
	case StepRejected:
		h.sendMessage(chatID, "❌ Неверные данные. Вход отменён, начните заново с /panel.")
	}
}

// HandleCallback обрабатывает нажатия inline-кнопок.
func (h *Handler) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		h.answer(cb, "")
		return
	}
	operatorID := cb.From.ID
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	logger := log.WithFields(log.Fields{
		"operator_id": operatorID,
		"callback":    cb.Data,
	})
	logger.Debug("Нажата кнопка панели")

	switch cb.Data {
	case CallbackLogout:
		h.service.Logout(operatorID)
		h.answer(cb, "")
		h.edit(chatID, messageID, "🔒 Вы вышли. Чтобы войти снова, отправьте /panel.", nil)

	case CallbackCancel:
		h.service.Cancel(operatorID)
		h.answer(cb, "")
		if h.service.IsAuthenticated(operatorID) {
			h.edit(chatID, messageID, "Действие отменено. Главное меню:", menuKeyboard())
		} else {
			h.edit(chatID, messageID, "Действие отменено.", nil)
		}

	case CallbackStats:
		if !h.service.IsAuthenticated(operatorID) {
			h.reject(cb)
			return
		}
		h.answer(cb, "")
		h.showStats(ctx, chatID, messageID)

	case CallbackBroadcast:
		if err := h.service.Begin(operatorID, StateAwaitingBroadcastText); err != nil {
			h.reject(cb)
			return
		}
		h.answer(cb, "")
		h.edit(chatID, messageID, "📢 Режим рассылки\n\nНапишите сообщение, которое получат все участники:", cancelKeyboard())

	case CallbackSetWelcome:
		if err := h.service.Begin(operatorID, StateAwaitingWelcomeText); err != nil {
			h.reject(cb)
			return
		}
		h.answer(cb, "")
		current, err := h.welcome.GetWelcomeMessage(ctx)
		if err != nil {
			logger.WithError(err).Error("Не удалось прочитать приветствие")
			h.service.Finish(operatorID)
			h.edit(chatID, messageID, "❌ Не удалось прочитать текущее приветствие.", menuKeyboard())
			return
		}
		h.edit(chatID, messageID,
			fmt.Sprintf("📝 Приветствие\n\nСейчас:\n%s\n\nНапишите новый текст:", current),
			cancelKeyboard())

	default:
		h.answer(cb, "")
	}
}

func (h *Handler) showStats(ctx context.Context, chatID int64, messageID int) {
	total, err := h.members.Count(ctx)
	if err != nil {
		log.WithError(err).Error("Не удалось посчитать участников")
		h.edit(chatID, messageID, "❌ База недоступна, попробуйте позже.", menuKeyboard())
		return
	}
	sessions := int64(h.service.ActiveSessions())
	text := fmt.Sprintf("📊 Статистика\n\n👥 Всего: %s\n🔐 Активных: %d %s",
		common.FormatMembers(total), sessions, common.PluralizeSessions(sessions))
	h.edit(chatID, messageID, text, menuKeyboard())
}

// handleBroadcastText — текст получен, запускаем рассылку и ждём итога.
func (h *Handler) handleBroadcastText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	operatorID := message.From.ID
	defer h.service.Finish(operatorID)

	if !h.service.IsAuthenticated(operatorID) {
		h.sendMessage(chatID, "⛔ Сначала войдите: /panel")
		return
	}

	progressText := "⏳ Рассылка запущена..."
	if total, err := h.members.Count(ctx); err == nil {
		progressText = fmt.Sprintf("⏳ Рассылка для %s...", common.FormatMembers(total))
	}
	progress, progressErr := h.bot.Send(tgbotapi.NewMessage(chatID, progressText))
	if progressErr != nil {
		log.WithError(progressErr).Warn("Не удалось отправить сообщение о ходе рассылки")
	}

	log.WithField("operator_id", operatorID).Info("Оператор запустил рассылку")
	// Запущенную рассылку не прерываем даже при остановке бота.
	out, err := h.broadcaster.Run(context.WithoutCancel(ctx), message.Text)
	if err != nil {
		log.WithError(err).Error("Рассылка не запущена")
		h.sendWithMenu(chatID, "❌ Не удалось получить список участников, рассылка не отправлена.")
		return
	}

	if progressErr == nil {
		h.edit(chatID, progress.MessageID, out.Summary(), menuKeyboard())
		return
	}
	h.sendWithMenu(chatID, out.Summary())
}

func (h *Handler) handleWelcomeText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	operatorID := message.From.ID
	defer h.service.Finish(operatorID)

	if !h.service.IsAuthenticated(operatorID) {
		h.sendMessage(chatID, "⛔ Сначала войдите: /panel")
		return
	}
	if err := h.welcome.SetWelcomeMessage(ctx, message.Text); err != nil {
		log.WithError(err).Error("Не удалось сохранить приветствие")
		h.sendWithMenu(chatID, "❌ Не удалось сохранить приветствие.")
		return
	}
	h.sendWithMenu(chatID, "✅ Приветствие обновлено!")
}

// --- Клавиатуры ---

func menuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", CallbackStats),
			tgbotapi.NewInlineKeyboardButtonData("📢 Рассылка", CallbackBroadcast),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Приветствие", CallbackSetWelcome),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚪 Выйти", CallbackLogout),
		),
	)
	return &kb
}

func cancelKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", CallbackCancel),
		),
	)
	return &kb
}

// --- Отправка ---

func (h *Handler) reject(cb *tgbotapi.CallbackQuery) {
	if err := h.bot.Request(tgbotapi.NewCallbackWithAlert(cb.ID, "Сначала войдите в панель!")); err != nil {
		log.WithError(err).Debug("Ошибка ответа на callback")
	}
}

func (h *Handler) answer(cb *tgbotapi.CallbackQuery, text string) {
	if err := h.bot.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		log.WithError(err).Debug("Ошибка ответа на callback")
	}
}

func (h *Handler) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ReplyMarkup = markup
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка редактирования сообщения")
	}
}

func (h *Handler) sendWithMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = menuKeyboard()
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки меню")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
