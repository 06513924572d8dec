// Package broadcast — dispatcher.go: последовательная рассылка с паузой
// между отправками и восстановлением после лимита Telegram.
//
// Получатели обрабатываются строго по одному: лимит и retry_after у Telegram
// общие на весь бот, поэтому параллелить отправку нельзя.
// Запущенный прогон не отменяется, он идёт до конца или до остановки процесса.
// Две рассылки от разных админов друг друга не ждут (известная гонка).
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gatekeeper-bot/internal/common"
)

// DefaultSendDelay — пауза после каждой успешной отправки.
const DefaultSendDelay = 50 * time.Millisecond

// Sender — удалённая отправка сообщения. Ошибки должны быть разложены
// по классам: common.ErrRecipientBlocked, *common.RateLimitError, прочее.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// MemberSource отдаёт снимок ID участников.
type MemberSource interface {
	ListMemberIDs(ctx context.Context) ([]int64, error)
}

// Dispatcher выполняет рассылку.
type Dispatcher struct {
	sender    Sender
	members   MemberSource
	sendDelay time.Duration
	sleep     func(time.Duration)
}

// Option настраивает Dispatcher.
type Option func(*Dispatcher)

// WithSendDelay меняет паузу между успешными отправками.
func WithSendDelay(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d >= 0 {
			disp.sendDelay = d
		}
	}
}

// WithSleep подменяет ожидание (в тестах — фейковые часы).
func WithSleep(sleep func(time.Duration)) Option {
	return func(disp *Dispatcher) {
		if sleep != nil {
			disp.sleep = sleep
		}
	}
}

// NewDispatcher создаёт рассыльщика.
func NewDispatcher(sender Sender, members MemberSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		members:   members,
		sendDelay: DefaultSendDelay,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run отправляет text всем участникам. Список читается один раз в начале:
// кто вступил во время прогона, сообщение не получит.
// Ошибка возвращается только если не удалось прочитать список.
func (d *Dispatcher) Run(ctx context.Context, text string) (Outcome, error) {
	ids, err := d.members.ListMemberIDs(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("не удалось получить список участников: %w", err)
	}

	runID := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"component": "broadcast",
		"run_id":    runID,
	})
	logger.WithField("total", len(ids)).Info("Рассылка запущена")

	start := time.Now()
	out := Outcome{Attempted: len(ids)}

	for _, id := range ids {
		switch d.deliver(ctx, logger.WithField("user_id", id), id, text) {
		case resultDelivered:
			out.Delivered++
			d.sleep(d.sendDelay)
		case resultBlocked:
			out.Blocked++
		default:
			out.OtherFailures++
		}
	}

	fields := log.Fields{
		"total":          out.Attempted,
		"delivered":      out.Delivered,
		"blocked":        out.Blocked,
		"other_failures": out.OtherFailures,
		"dur":            time.Since(start).String(),
	}
	if out.OtherFailures > 0 {
		logger.WithFields(fields).Warn("Рассылка завершена с ошибками")
	} else {
		logger.WithFields(fields).Info("Рассылка завершена")
	}
	return out, nil
}

// deliver делает одну попытку, а после retry_after — ровно одну повторную.
func (d *Dispatcher) deliver(ctx context.Context, logger *log.Entry, chatID int64, text string) result {
	err := d.sender.SendText(ctx, chatID, text)
	if err == nil {
		return resultDelivered
	}

	if errors.Is(err, common.ErrRecipientBlocked) {
		logger.Debug("Получатель заблокировал бота")
		return resultBlocked
	}

	if rl, ok := common.AsRateLimit(err); ok {
		logger.WithField("retry_after", rl.RetryAfter.String()).Warn("Лимит Telegram, ждём и повторяем")
		d.sleep(rl.RetryAfter)

		if err := d.sender.SendText(ctx, chatID, text); err != nil {
			logger.WithError(err).Warn("Повтор после лимита не удался")
			return resultFailed
		}
		return resultDelivered
	}

	logger.WithError(err).Warn("Не удалось отправить сообщение")
	return resultFailed
}
