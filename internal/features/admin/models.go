// Package admin реализует панель оператора: двухшаговый вход (логин, пароль),
// сессии в памяти и пошаговые диалоги рассылки и смены приветствия.
// models.go описывает состояния диалога.
package admin

// State — состояние диалога с оператором (конечный автомат).
// Живёт только в памяти: после перезапуска все диалоги начинаются заново.
type State int

const (
	StateIdle                  State = iota // Нет активного диалога
	StateAwaitingUsername                   // Ждём логин
	StateAwaitingPassword                   // Ждём пароль
	StateAwaitingBroadcastText              // Ждём текст рассылки
	StateAwaitingWelcomeText                // Ждём новое приветствие
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingUsername:
		return "awaiting_username"
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateAwaitingBroadcastText:
		return "awaiting_broadcast_text"
	case StateAwaitingWelcomeText:
		return "awaiting_welcome_text"
	default:
		return "unknown"
	}
}

// conversation — диалог одного оператора. Введённый логин не храним:
// достаточно того, что оператор дошёл до шага пароля.
type conversation struct {
	state State
}

// PanelResult — что показать в ответ на /panel.
type PanelResult int

const (
	PanelMenu        PanelResult = iota // Сессия есть — сразу меню
	PanelAskUsername                    // Сессии нет — начинаем вход
)

// LoginStep — результат обработки введённого логина или пароля.
type LoginStep int

const (
	StepNone          LoginStep = iota // Вход не идёт, текст не наш
	StepAskPassword                    // Логин верный, ждём пароль
	StepAuthenticated                  // Пароль верный, сессия создана
	StepRejected                       // Ошибка, диалог сброшен
)
