// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел, работа с часовым поясом.
package common

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// pluralize выбирает форму слова по правилам русского языка.
//
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeMembers возвращает правильную форму слова «участник».
//
//	PluralizeMembers(1)  → "участник"
//	PluralizeMembers(3)  → "участника"
//	PluralizeMembers(11) → "участников"
func PluralizeMembers(n int64) string {
	return pluralize(n, "участник", "участника", "участников")
}

// PluralizeSessions возвращает правильную форму слова «сессия».
func PluralizeSessions(n int64) string {
	return pluralize(n, "сессия", "сессии", "сессий")
}

// FormatMembers форматирует количество участников: FormatMembers(2350) → "2 350 участников"
func FormatMembers(n int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(n), PluralizeMembers(n))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}

// LoadLocation загружает часовой пояс из конфига.
// Если в контейнере нет tzdata — откатываемся на UTC, а не падаем.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.WithError(err).WithField("tz", name).Warn("Не удалось загрузить часовой пояс, используем UTC")
		return time.UTC
	}
	return loc
}
