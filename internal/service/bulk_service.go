package service

import (
	"context"
	"log/slog"
	"time"

	"postpipe/internal/models"
	"postpipe/internal/repository"
	"postpipe/internal/transfer"
)

type BulkService interface {
	// Schedule assigns staggered schedule times to the given draft ids in
	// the caller's order: the i-th id gets start + i*interval and display
	// order i+1. Ids not currently in draft are skipped, not errors.
	Schedule(ctx context.Context, ids []string, start time.Time, interval time.Duration) (*transfer.BulkScheduleResponse, error)
}

type bulkService struct {
	posts repository.PostRepository
}

func NewBulkService(posts repository.PostRepository) BulkService {
	return &bulkService{posts: posts}
}

func (s *bulkService) Schedule(ctx context.Context, ids []string, start time.Time, interval time.Duration) (*transfer.BulkScheduleResponse, error) {
	resp := &transfer.BulkScheduleResponse{Success: true}

	for i, id := range ids {
		scheduledFor := start.Add(time.Duration(i) * interval)
		order := i + 1

		matched, err := s.posts.UpdateStatusIf(ctx, id, models.PostStatusDraft, repository.PostPatch{
			Status:       models.PostStatusPending,
			ScheduledFor: &scheduledFor,
			DisplayOrder: &order,
		})
		if err != nil {
			return nil, err
		}
		if !matched {
			slog.Info("bulk schedule skipped non-draft post", "post_id", id)
			resp.Skipped = append(resp.Skipped, id)
			continue
		}
		resp.Scheduled++
	}

	return resp, nil
}
