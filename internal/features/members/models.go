// Package members хранит участников канала: кого бот уже пустил и кому
// будет уходить рассылка. Запись создаётся один раз при первом одобрении
// заявки и больше не меняется.
package members

import (
	"strings"
	"time"
)

// Member — участник канала в базе данных.
type Member struct {
	UserID   int64     `db:"user_id"`   // Telegram user ID (уникальный, неизменяемый)
	Username string    `db:"username"`  // @username без @ (может быть пустым)
	FullName string    `db:"full_name"` // Имя + фамилия, как в Telegram
	JoinedAt time.Time `db:"joined_at"` // Когда заявка была одобрена
}

// FullNameOf склеивает имя и фамилию так же, как это делает клиент Telegram.
func FullNameOf(firstName, lastName string) string {
	return strings.TrimSpace(firstName + " " + lastName)
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — полное имя.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	return m.FullName
}
