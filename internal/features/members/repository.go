// Package members — repository.go работает с таблицей members в PostgreSQL.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package members

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository — хранилище участников на PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertIfAbsent добавляет участника. Если user_id уже есть — ничего не делает.
// created == true только когда запись действительно появилась.
func (r *Repository) UpsertIfAbsent(ctx context.Context, m *Member) (bool, error) {
	query := `
		INSERT INTO members (user_id, username, full_name, joined_at)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, m.UserID, m.Username, m.FullName, joinedAt(m))
	if err != nil {
		return false, fmt.Errorf("ошибка добавления участника (user_id=%d): %w", m.UserID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListIDs возвращает ID всех участников в порядке вступления.
func (r *Repository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM members ORDER BY joined_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса участников: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return ids, nil
}

// Count возвращает общее число участников.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта участников: %w", err)
	}
	return n, nil
}

func joinedAt(m *Member) time.Time {
	if m.JoinedAt.IsZero() {
		return time.Now().UTC()
	}
	return m.JoinedAt.UTC()
}
