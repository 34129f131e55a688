package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// SchedulerRepository persists the dispatcher on/off flag so toggling
// survives restarts and is visible to every instance.
type SchedulerRepository interface {
	IsEnabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, enabled bool) error
}

type schedulerRepository struct {
	db *sql.DB
}

func NewSchedulerRepository(db *sql.DB) SchedulerRepository {
	return &schedulerRepository{db: db}
}

func (r *schedulerRepository) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := r.db.QueryRowContext(ctx, `SELECT enabled FROM scheduler_settings WHERE id = 1`).Scan(&enabled)
	if err != nil {
		if err == sql.ErrNoRows {
			// No row yet means the scheduler has never been toggled; default on.
			return true, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return enabled, nil
}

func (r *schedulerRepository) SetEnabled(ctx context.Context, enabled bool) error {
	query := `
		INSERT INTO scheduler_settings (id, enabled, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET enabled = $1, updated_at = $2
	`
	_, err := r.db.ExecContext(ctx, query, enabled, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
