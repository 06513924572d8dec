// Package settings — service.go: чтение и запись приветствия.
package settings

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Store — таблица ключ-значение.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// Service отдаёт текущее приветствие и меняет его.
type Service struct {
	store          Store
	defaultWelcome string
}

// NewService создаёт сервис. Пустой defaultWelcome заменяется на DefaultWelcome.
func NewService(store Store, defaultWelcome string) *Service {
	if defaultWelcome == "" {
		defaultWelcome = DefaultWelcome
	}
	return &Service{store: store, defaultWelcome: defaultWelcome}
}

// GetWelcomeMessage возвращает сохранённое приветствие или значение по умолчанию.
func (s *Service) GetWelcomeMessage(ctx context.Context) (string, error) {
	text, ok, err := s.store.Get(ctx, KeyWelcome)
	if err != nil {
		return "", err
	}
	if !ok {
		return s.defaultWelcome, nil
	}
	return text, nil
}

// SetWelcomeMessage заменяет приветствие целиком. Истории версий нет.
func (s *Service) SetWelcomeMessage(ctx context.Context, text string) error {
	if err := s.store.Put(ctx, KeyWelcome, text); err != nil {
		return fmt.Errorf("не удалось сохранить приветствие: %w", err)
	}
	log.WithField("length", len([]rune(text))).Info("Приветствие обновлено")
	return nil
}
