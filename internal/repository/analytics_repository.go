package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"postpipe/internal/models"
)

type AnalyticsRepository interface {
	Create(ctx context.Context, record *models.AnalyticsRecord) error
	ListByPostID(ctx context.Context, postID string) ([]*models.AnalyticsRecord, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Create(ctx context.Context, record *models.AnalyticsRecord) error {
	query := `
		INSERT INTO analytics (id, post_id, platform, external_id, impressions, likes, shares, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.PostID, record.Platform, record.ExternalID,
		record.Impressions, record.Likes, record.Shares, record.RecordedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *analyticsRepository) ListByPostID(ctx context.Context, postID string) ([]*models.AnalyticsRecord, error) {
	query := `
		SELECT id, post_id, platform, external_id, impressions, likes, shares, recorded_at
		FROM analytics WHERE post_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var records []*models.AnalyticsRecord
	for rows.Next() {
		var rec models.AnalyticsRecord
		err := rows.Scan(&rec.ID, &rec.PostID, &rec.Platform, &rec.ExternalID,
			&rec.Impressions, &rec.Likes, &rec.Shares, &rec.RecordedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
