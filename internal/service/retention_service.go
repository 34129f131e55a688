package service

import (
	"context"
	"log/slog"

	"postpipe/internal/repository"
)

// RetentionService bounds the total number of stored posts. It runs
// immediately before generator-originated inserts and evicts the oldest
// rows so the post-insert count stays at the configured cap.
type RetentionService struct {
	posts    repository.PostRepository
	maxPosts int
}

func NewRetentionService(posts repository.PostRepository, maxPosts int) *RetentionService {
	return &RetentionService{posts: posts, maxPosts: maxPosts}
}

// EnsureCapacity evicts as many of the oldest rows as the next insert
// requires. Cleanup failure never blocks the insert; it is logged and
// swallowed.
func (s *RetentionService) EnsureCapacity(ctx context.Context) {
	count, err := s.posts.Count(ctx)
	if err != nil {
		slog.Warn("retention count failed", "error", err.Error())
		return
	}

	excess := count + 1 - s.maxPosts
	if excess <= 0 {
		return
	}

	if err := s.posts.DeleteOldest(ctx, excess); err != nil {
		slog.Warn("retention eviction failed", "evict", excess, "error", err.Error())
		return
	}
	slog.Info("evicted oldest posts to honor retention cap", "evicted", excess, "cap", s.maxPosts)
}
