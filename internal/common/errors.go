// Package common — errors.go определяет ошибки, которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем:
// отказ получателя, лимит Telegram, отсутствие сессии админа.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки доставки (ответы Telegram API, разобранные клиентом)
var (
	// ErrRecipientBlocked — пользователь заблокировал бота (403). Повторять бессмысленно.
	ErrRecipientBlocked = errors.New("получатель заблокировал бота")
)

// Ошибки админки
var (
	// ErrNotAuthenticated — нет активной сессии, действие запрещено
	ErrNotAuthenticated = errors.New("требуется вход в панель")
)

// RateLimitError — Telegram попросил подождать (429, retry_after).
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("лимит Telegram, повтор через %s: %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// AsRateLimit достаёт RateLimitError из цепочки ошибок.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
