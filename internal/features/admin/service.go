// Package admin — service.go содержит state-машину входа и диалогов
// и проверку сессии перед закрытыми действиями.
package admin

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gatekeeper-bot/internal/common"
)

// Service управляет входом операторов и их диалогами.
// У каждого оператора свой диалог; разные операторы друг другу не мешают.
type Service struct {
	sessions *SessionRegistry
	creds    Credentials

	convs   map[int64]*conversation // Состояния диалогов (in-memory)
	convsMu sync.RWMutex
}

// NewService создаёт сервис админ-панели.
func NewService(sessions *SessionRegistry, creds Credentials) *Service {
	return &Service{
		sessions: sessions,
		creds:    creds,
		convs:    make(map[int64]*conversation),
	}
}

// OpenPanel — команда /panel. С сессией сразу открывает меню и сбрасывает
// незаконченный диалог, без сессии начинает вход заново.
func (s *Service) OpenPanel(operatorID int64) PanelResult {
	if s.sessions.IsActive(operatorID) {
		s.clear(operatorID)
		return PanelMenu
	}
	s.set(operatorID, &conversation{state: StateAwaitingUsername})
	return PanelAskUsername
}

// SubmitCredential обрабатывает текст на шагах входа.
// Любое несовпадение сбрасывает диалог в начало.
func (s *Service) SubmitCredential(operatorID int64, text string) LoginStep {
	logger := log.WithField("operator_id", operatorID)

	switch s.State(operatorID) {
	case StateAwaitingUsername:
		if !s.creds.Username.Match(text) {
			s.clear(operatorID)
			logger.Warn("Вход отклонён: неверный логин")
			return StepRejected
		}
		s.set(operatorID, &conversation{state: StateAwaitingPassword})
		return StepAskPassword

	case StateAwaitingPassword:
		s.clear(operatorID)
		if !s.creds.Password.Match(text) {
			logger.Warn("Вход отклонён: неверный пароль")
			return StepRejected
		}
		s.sessions.Grant(operatorID)
		logger.Info("Оператор вошёл в панель")
		return StepAuthenticated
	}
	return StepNone
}

// IsAuthenticated — есть ли у оператора сессия.
func (s *Service) IsAuthenticated(operatorID int64) bool {
	return s.sessions.IsActive(operatorID)
}

// ActiveSessions — число вошедших операторов.
func (s *Service) ActiveSessions() int {
	return s.sessions.Count()
}

// Begin начинает закрытый диалог (рассылка или приветствие).
// Без сессии возвращает common.ErrNotAuthenticated и ничего не меняет.
func (s *Service) Begin(operatorID int64, state State) error {
	if !s.sessions.IsActive(operatorID) {
		return common.ErrNotAuthenticated
	}
	s.set(operatorID, &conversation{state: state})
	return nil
}

// Cancel прерывает любой незаконченный диалог, включая вход.
func (s *Service) Cancel(operatorID int64) {
	s.clear(operatorID)
}

// Finish закрывает диалог после выполненного действия.
func (s *Service) Finish(operatorID int64) {
	s.clear(operatorID)
}

// Logout удаляет сессию и диалог.
func (s *Service) Logout(operatorID int64) {
	s.sessions.Revoke(operatorID)
	s.clear(operatorID)
	log.WithField("operator_id", operatorID).Info("Оператор вышел из панели")
}

// State возвращает текущее состояние диалога.
func (s *Service) State(operatorID int64) State {
	s.convsMu.RLock()
	defer s.convsMu.RUnlock()

	c, ok := s.convs[operatorID]
	if !ok {
		return StateIdle
	}
	return c.state
}

func (s *Service) set(operatorID int64, c *conversation) {
	s.convsMu.Lock()
	defer s.convsMu.Unlock()
	s.convs[operatorID] = c
}

func (s *Service) clear(operatorID int64) {
	s.convsMu.Lock()
	defer s.convsMu.Unlock()
	delete(s.convs, operatorID)
}
