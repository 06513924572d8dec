// Package settings хранит настройки бота в таблице ключ-значение.
// Сейчас там одна запись — текст приветствия для новых участников.
package settings

// KeyWelcome — ключ текста приветствия в таблице settings.
const KeyWelcome = "welcome_msg"

// DefaultWelcome — приветствие, пока админ не задал своё.
const DefaultWelcome = "Привет! Добро пожаловать в наш канал. 👋"
