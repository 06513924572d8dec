// Package joinrequest — главная работа бота: одобрить заявку в канал,
// записать участника и отправить ему приветствие.
package joinrequest

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gatekeeper-bot/internal/features/members"
)

// Platform — удалённый API: одобрение заявки и отправка сообщения.
type Platform interface {
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
	SendText(ctx context.Context, chatID int64, text string) error
}

// MemberRegistrar идемпотентно добавляет участника.
type MemberRegistrar interface {
	Register(ctx context.Context, m *members.Member) (bool, error)
}

// WelcomeSource отдаёт текущий текст приветствия.
type WelcomeSource interface {
	GetWelcomeMessage(ctx context.Context) (string, error)
}

// Request — заявка на вступление.
type Request struct {
	ChatID   int64
	UserID   int64
	Username string
	FullName string
	Date     time.Time
}

// Result — что удалось сделать по заявке.
type Result struct {
	Approved bool // Заявка одобрена
	Created  bool // Участник записан впервые
	Welcomed bool // Приветствие отправлено
}

// Service обрабатывает заявки.
type Service struct {
	platform Platform
	members  MemberRegistrar
	welcome  WelcomeSource
}

func NewService(platform Platform, members MemberRegistrar, welcome WelcomeSource) *Service {
	return &Service{platform: platform, members: members, welcome: welcome}
}

// Handle выполняет шаги по порядку: одобрить → записать → прочитать приветствие → отправить.
// Не удалось одобрить — дальше не идём. Ошибки следующих шагов только логируются
// и одобрение не откатывают. Приветствие отправляется не более одного раза.
func (s *Service) Handle(ctx context.Context, req Request) Result {
	var res Result
	logger := log.WithFields(log.Fields{
		"component": "join_request",
		"chat_id":   req.ChatID,
		"user_id":   req.UserID,
	})

	if err := s.platform.ApproveJoinRequest(ctx, req.ChatID, req.UserID); err != nil {
		logger.WithError(err).Error("Не удалось одобрить заявку")
		return res
	}
	res.Approved = true

	created, err := s.members.Register(ctx, &members.Member{
		UserID:   req.UserID,
		Username: req.Username,
		FullName: req.FullName,
		JoinedAt: req.Date,
	})
	if err != nil {
		logger.WithError(err).Error("Не удалось записать участника")
	}
	res.Created = created

	text, err := s.welcome.GetWelcomeMessage(ctx)
	if err != nil {
		logger.WithError(err).Error("Не удалось прочитать приветствие, не отправляем")
		return res
	}

	// Пользователь мог закрыть личку или заблокировать бота — это не ошибка заявки.
	if err := s.platform.SendText(ctx, req.UserID, text); err != nil {
		logger.WithError(err).Warn("Приветствие не доставлено")
		return res
	}
	res.Welcomed = true

	logger.WithField("created", created).Info("Заявка одобрена, приветствие отправлено")
	return res
}
