// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: хранилище, Telegram API, сервисы, обработчики,
// фильтры и фоновые задачи.
package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gatekeeper-bot/internal/bot"
	"serotonyl.ru/gatekeeper-bot/internal/bot/filters"
	"serotonyl.ru/gatekeeper-bot/internal/config"
	"serotonyl.ru/gatekeeper-bot/internal/db/postgres"
	"serotonyl.ru/gatekeeper-bot/internal/db/sqlite"
	"serotonyl.ru/gatekeeper-bot/internal/features/admin"
	"serotonyl.ru/gatekeeper-bot/internal/features/broadcast"
	"serotonyl.ru/gatekeeper-bot/internal/features/joinrequest"
	"serotonyl.ru/gatekeeper-bot/internal/features/members"
	"serotonyl.ru/gatekeeper-bot/internal/features/settings"
	"serotonyl.ru/gatekeeper-bot/internal/health"
	"serotonyl.ru/gatekeeper-bot/internal/jobs"
	"serotonyl.ru/gatekeeper-bot/internal/telegram"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Health    *health.Server

	closeStore func()
}

// stores — репозитории выбранного бэкенда.
type stores struct {
	members  members.Store
	settings settings.Store
	close    func()
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
// Любая ошибка здесь фатальна: без хранилища или Telegram бот бесполезен.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Хранилище ===
	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// === 2. Учётные данные администратора ===
	creds, err := admin.CredentialsFromConfig(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("учётные данные администратора: %w", err)
	}

	// === 3. Telegram Bot API ===
	botAPI, err := telegram.Connect(cfg.TelegramBotToken, cfg.IsDevelopment())
	if err != nil {
		st.close()
		return nil, err
	}
	client := telegram.NewClient(botAPI)

	// Заявки, пришедшие пока бот лежал, не обрабатываем.
	if err := client.DropPendingUpdates(ctx); err != nil {
		st.close()
		return nil, err
	}

	// === 4. Сервисы ===
	memberService := members.NewService(st.members)
	settingsService := settings.NewService(st.settings, cfg.WelcomeDefault)
	adminService := admin.NewService(admin.NewSessionRegistry(), creds)
	dispatcher := broadcast.NewDispatcher(client, memberService,
		broadcast.WithSendDelay(cfg.BroadcastSendDelay),
	)
	joinService := joinrequest.NewService(client, memberService, settingsService)

	// === 5. Обработчики ===
	joinHandler := joinrequest.NewHandler(joinService)
	adminHandler := admin.NewHandler(adminService, memberService, settingsService, dispatcher, client)

	// === 6. Собираем бота ===
	b := bot.New(botAPI, cfg, filters.NewChatFilter(cfg.JoinChatIDs), joinHandler, adminHandler, client)

	// === 7. Планировщик задач ===
	scheduler, err := jobs.NewScheduler(cfg.StatsCron, cfg.AppTimezone, memberService, adminService)
	if err != nil {
		st.close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"db_driver":  cfg.DBDriver,
		"join_chats": len(cfg.JoinChatIDs),
	}).Info("Приложение собрано")

	return &App{
		Bot:        b,
		Scheduler:  scheduler,
		Health:     health.NewServer(cfg.HealthAddr(), cfg.IsDevelopment()),
		closeStore: st.close,
	}, nil
}

// Close освобождает соединения с хранилищем.
func (a *App) Close() {
	if a.closeStore != nil {
		a.closeStore()
	}
}

// openStores подключается к выбранной БД и применяет схему.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к SQLite: %w", err)
		}
		return &stores{
			members:  members.NewSQLiteRepository(db),
			settings: settings.NewSQLiteRepository(db),
			close:    func() { _ = db.Close() },
		}, nil

	default:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:      cfg.DatabaseDSN(),
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		return &stores{
			members:  members.NewRepository(pool),
			settings: settings.NewRepository(pool),
			close:    pool.Close,
		}, nil
	}
}
