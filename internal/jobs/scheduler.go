// Package jobs управляет фоновыми задачами (cron).
// Сейчас одна задача: периодически пишет в лог сводку по участникам.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gatekeeper-bot/internal/common"
)

// MemberCounter — число участников в хранилище.
type MemberCounter interface {
	Count(ctx context.Context) (int64, error)
}

// SessionCounter — число активных сессий панели.
type SessionCounter interface {
	ActiveSessions() int
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	loc      *time.Location
	members  MemberCounter
	sessions SessionCounter
}

// NewScheduler создаёт планировщик в часовом поясе timezone.
func NewScheduler(spec, timezone string, members MemberCounter, sessions SessionCounter) (*Scheduler, error) {
	loc := common.LoadLocation(timezone)
	// Проверяем выражение заранее: ошибка в STATS_CRON должна валить старт, а не теряться.
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("STATS_CRON %q: %w", spec, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		spec:     spec,
		loc:      loc,
		members:  members,
		sessions: sessions,
	}, nil
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.reportStats(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	log.WithFields(log.Fields{"spec": s.spec, "tz": s.loc.String()}).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт текущую задачу.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) reportStats(ctx context.Context) {
	total, err := s.members.Count(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Не удалось посчитать участников")
		return
	}
	sessions := s.sessions.ActiveSessions()
	log.WithFields(log.Fields{
		"members":  total,
		"sessions": sessions,
	}).Infof("[CRON] В базе %s, активных сессий: %d", common.FormatMembers(total), sessions)
}
