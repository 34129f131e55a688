package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"postpipe/internal/models"
)

// ErrTableMissing is reported when the posts table has not been
// provisioned yet. Intake degrades to a provisional success instead of
// failing the caller.
var ErrTableMissing = errors.New("posts table not provisioned")

// PostPatch is the field set a conditional update may change. ScheduledFor
// is applied when non-nil; ClearScheduledFor nulls the column instead.
// Metadata replaces the stored map wholesale when non-nil.
type PostPatch struct {
	Status            string
	ScheduledFor      *time.Time
	ClearScheduledFor bool
	DisplayOrder      *int
	Metadata          map[string]any
}

type PostRepository interface {
	Create(ctx context.Context, post *models.ScheduledPost) error
	GetByID(ctx context.Context, id string) (*models.ScheduledPost, error)
	List(ctx context.Context) ([]*models.ScheduledPost, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error)
	Count(ctx context.Context) (int, error)
	DeleteOldest(ctx context.Context, n int) error
	Remove(ctx context.Context, id string) error
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error
	// UpdateStatusIf applies patch only when the row's current status equals
	// expectedStatus. The boolean reports whether a row matched; overlapping
	// dispatcher invocations rely on this compare-and-swap to avoid
	// double-publishing.
	UpdateStatusIf(ctx context.Context, id, expectedStatus string, patch PostPatch) (bool, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, content, platform, status, scheduled_for, display_order, metadata, created_at`

func (r *postRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	query := `
		INSERT INTO posts (id, content, platform, status, scheduled_for, display_order, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	meta, err := json.Marshal(post.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		post.ID, post.Content, post.Platform, post.Status,
		post.ScheduledFor, nullableOrder(post.DisplayOrder), meta, post.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
			return ErrTableMissing
		}
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) List(ctx context.Context) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPending, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *postRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *postRepository) DeleteOldest(ctx context.Context, n int) error {
	query := `
		DELETE FROM posts
		WHERE id IN (
			SELECT id FROM posts ORDER BY created_at ASC LIMIT $1
		)
	`
	_, err := r.db.ExecContext(ctx, query, n)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	// Deleting an id that no longer exists is not an error.
	_, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `UPDATE posts SET metadata = $1 WHERE id = $2`, meta, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateStatusIf(ctx context.Context, id, expectedStatus string, patch PostPatch) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			scheduled_for = CASE WHEN $4 THEN NULL ELSE COALESCE($5, scheduled_for) END,
			display_order = COALESCE($6, display_order),
			metadata = COALESCE($7, metadata)
		WHERE id = $1 AND status = $2
	`

	var meta any
	if patch.Metadata != nil {
		b, err := json.Marshal(patch.Metadata)
		if err != nil {
			return false, err
		}
		meta = b
	}

	res, err := r.db.ExecContext(ctx, query,
		id, expectedStatus, patch.Status,
		patch.ClearScheduledFor, patch.ScheduledFor,
		nullableOrderPtr(patch.DisplayOrder), meta)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanPost(row *sql.Row) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	var scheduledFor sql.NullTime
	var displayOrder sql.NullInt64
	var meta []byte

	err := row.Scan(&post.ID, &post.Content, &post.Platform, &post.Status,
		&scheduledFor, &displayOrder, &meta, &post.CreatedAt)
	if err != nil {
		return nil, err
	}

	fillPost(&post, scheduledFor, displayOrder, meta)
	return &post, nil
}

func collectPosts(rows *sql.Rows) ([]*models.ScheduledPost, error) {
	var posts []*models.ScheduledPost
	for rows.Next() {
		var post models.ScheduledPost
		var scheduledFor sql.NullTime
		var displayOrder sql.NullInt64
		var meta []byte

		err := rows.Scan(&post.ID, &post.Content, &post.Platform, &post.Status,
			&scheduledFor, &displayOrder, &meta, &post.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		fillPost(&post, scheduledFor, displayOrder, meta)
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}

func fillPost(post *models.ScheduledPost, scheduledFor sql.NullTime, displayOrder sql.NullInt64, meta []byte) {
	if scheduledFor.Valid {
		t := scheduledFor.Time
		post.ScheduledFor = &t
	}
	if displayOrder.Valid {
		post.DisplayOrder = int(displayOrder.Int64)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &post.Metadata); err != nil {
			slog.Info(err.Error())
		}
	}
}

func nullableOrder(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func nullableOrderPtr(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
