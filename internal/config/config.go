// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Поддерживаемые хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Чаты, заявки в которые бот одобряет. Пусто — любые чаты, где бот админ.
	JoinChatIDsRaw string  `envconfig:"JOIN_CHAT_IDS"`
	JoinChatIDs    []int64 `ignored:"true"` // заполним вручную

	// --- Admin ---
	AdminUsername string `envconfig:"ADMIN_USERNAME" required:"true"`
	// Либо открытый пароль, либо Argon2id-хеш (go run ./cmd/hashpass <пароль>).
	// Если задан хеш — он важнее.
	AdminPassword     string `envconfig:"ADMIN_PASSWORD"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Database ---
	DBDriver string `envconfig:"DB_DRIVER" default:"postgres"`
	// Полный DSN имеет приоритет над DB_HOST/DB_PORT/...
	DatabaseURL string `envconfig:"DATABASE_URL"`
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"gatekeeper"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/bot_database.db"`

	// --- HTTP (health check) ---
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`
	// Хостинги (Render, Railway, Heroku) сами выставляют PORT.
	PlatformPort int `envconfig:"PORT"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Istanbul"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно (разные собеседники).
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Broadcast ---
	// Пауза после каждой успешной отправки, держит нас под лимитом Telegram.
	BroadcastSendDelay time.Duration `envconfig:"BROADCAST_SEND_DELAY" default:"50ms"`

	// --- Welcome ---
	WelcomeDefault string `envconfig:"WELCOME_DEFAULT" default:"Привет! Добро пожаловать в наш канал. 👋"`

	// --- Rate Limiting (входящие сообщения от одного пользователя) ---
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"1"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"10"`

	// --- Jobs ---
	StatsCron string `envconfig:"STATS_CRON" default:"0 9 * * *"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// HealthAddr возвращает адрес для health-check сервера.
func (c *Config) HealthAddr() string {
	port := c.HTTPPort
	if c.PlatformPort > 0 {
		port = c.PlatformPort
	}
	return fmt.Sprintf(":%d", port)
}

// IsDevelopment — включает отладку Telegram API.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) Validate() error {
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		return fmt.Errorf("нужно задать ADMIN_PASSWORD или ADMIN_PASSWORD_HASH")
	}
	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" && c.DBPassword == "" {
			return fmt.Errorf("для postgres нужен DATABASE_URL или DB_PASSWORD")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH не задан")
		}
	default:
		return fmt.Errorf("неизвестный DB_DRIVER %q (postgres|sqlite)", c.DBDriver)
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.BroadcastSendDelay < 0 {
		return fmt.Errorf("BROADCAST_SEND_DELAY не может быть отрицательным")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS и RATE_LIMIT_BURST должны быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.JoinChatIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("JOIN_CHAT_IDS parse: %w", err)
	}
	cfg.JoinChatIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
