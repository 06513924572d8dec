// Package broadcast рассылает одно сообщение всем участникам из базы.
// models.go описывает итог одного прогона рассылки.
package broadcast

import "fmt"

// Outcome — итог одного прогона. Не сохраняется, только отображается админу.
// Всегда Attempted == Delivered + Blocked + OtherFailures.
type Outcome struct {
	Attempted     int // Сколько участников было в снимке
	Delivered     int // Дошло (в том числе со второй попытки после лимита)
	Blocked       int // Пользователь заблокировал бота
	OtherFailures int // Всё остальное, включая неудачный повтор после лимита
}

// Summary — человекочитаемый отчёт для админа.
func (o Outcome) Summary() string {
	return fmt.Sprintf(
		"✅ Рассылка завершена!\n\nВсего получателей: %d\nДоставлено: %d\nЗаблокировали бота: %d\nДругие ошибки: %d",
		o.Attempted, o.Delivered, o.Blocked, o.OtherFailures,
	)
}

// result — чем закончилась доставка одному получателю.
type result int

const (
	resultDelivered result = iota
	resultBlocked
	resultFailed
)
