package members

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteRepository — то же хранилище участников, но на SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) UpsertIfAbsent(ctx context.Context, m *Member) (bool, error) {
	query := `
		INSERT OR IGNORE INTO members (user_id, username, full_name, joined_at)
		VALUES (?, NULLIF(?, ''), ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query, m.UserID, m.Username, m.FullName, joinedAt(m))
	if err != nil {
		return false, fmt.Errorf("ошибка добавления участника (user_id=%d): %w", m.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка чтения RowsAffected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM members ORDER BY joined_at, user_id`)
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

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта участников: %w", err)
	}
	return n, nil
}
