// Package members — service.go содержит бизнес-логику управления участниками.
package members

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Store — хранилище участников. Реализации: Repository (PostgreSQL)
// и SQLiteRepository. Обе должны выдерживать параллельные вызовы.
type Store interface {
	UpsertIfAbsent(ctx context.Context, m *Member) (bool, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

// Service управляет участниками канала.
type Service struct {
	store Store
}

// NewService создаёт новый сервис участников.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register добавляет участника, если его ещё нет. Повторный вызов — не ошибка.
func (s *Service) Register(ctx context.Context, m *Member) (bool, error) {
	created, err := s.store.UpsertIfAbsent(ctx, m)
	if err != nil {
		return false, fmt.Errorf("ошибка регистрации участника: %w", err)
	}

	logger := log.WithFields(log.Fields{
		"user_id":  m.UserID,
		"username": m.Username,
	})
	if created {
		logger.Info("Новый участник зарегистрирован")
	} else {
		logger.Debug("Участник уже есть в базе")
	}
	return created, nil
}

// ListMemberIDs возвращает снимок ID всех участников (для рассылки).
func (s *Service) ListMemberIDs(ctx context.Context) ([]int64, error) {
	return s.store.ListIDs(ctx)
}

// Count возвращает число участников (для статистики).
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
