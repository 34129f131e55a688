package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"postpipe/internal/models"
	"postpipe/internal/platform"
	"postpipe/internal/repository"
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrInvalidTransition = errors.New("post is not in a state that allows this operation")
)

type PostService interface {
	List(ctx context.Context) ([]*models.ScheduledPost, error)
	Info(ctx context.Context, id string) (*models.ScheduledPost, error)
	Remove(ctx context.Context, id string) error
	// Unschedule moves a pending post back to draft and clears its
	// schedule, which also prevents the dispatcher from claiming it.
	Unschedule(ctx context.Context, id string) error
	// PublishNow publishes a draft immediately, bypassing scheduling.
	PublishNow(ctx context.Context, id string) (*models.ScheduledPost, error)
}

type postService struct {
	posts     repository.PostRepository
	analytics repository.AnalyticsRepository
	adapters  platform.Registry
}

func NewPostService(posts repository.PostRepository, analytics repository.AnalyticsRepository, adapters platform.Registry) PostService {
	return &postService{posts: posts, analytics: analytics, adapters: adapters}
}

func (s *postService) List(ctx context.Context) ([]*models.ScheduledPost, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) Info(ctx context.Context, id string) (*models.ScheduledPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) Remove(ctx context.Context, id string) error {
	// Idempotent: removing an id that never existed succeeds.
	return s.posts.Remove(ctx, id)
}

func (s *postService) Unschedule(ctx context.Context, id string) error {
	matched, err := s.posts.UpdateStatusIf(ctx, id, models.PostStatusPending, repository.PostPatch{
		Status:            models.PostStatusDraft,
		ClearScheduledFor: true,
	})
	if err != nil {
		return err
	}
	if !matched {
		post, err := s.posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return ErrPostNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

func (s *postService) PublishNow(ctx context.Context, id string) (*models.ScheduledPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.Status != models.PostStatusDraft {
		return nil, ErrInvalidTransition
	}

	adapter, ok := s.adapters.For(post.Platform)
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q", post.Platform)
	}

	result, err := adapter.Publish(ctx, post.Content, post.Metadata)
	if err != nil {
		return nil, fmt.Errorf("publishing to %s: %w", post.Platform, err)
	}

	meta := make(map[string]any, len(post.Metadata)+3)
	for k, v := range post.Metadata {
		meta[k] = v
	}
	meta[models.MetaPostedAt] = time.Now().Format(time.RFC3339)
	meta[models.MetaExternalID] = result.ExternalID
	meta[models.MetaRetryCount] = 0

	matched, err := s.posts.UpdateStatusIf(ctx, id, models.PostStatusDraft, repository.PostPatch{
		Status:   models.PostStatusPosted,
		Metadata: meta,
	})
	if err != nil {
		return nil, err
	}
	if !matched {
		// The post left draft between the read and the write; the publish
		// already happened, so report the conflict rather than retrying.
		return nil, ErrInvalidTransition
	}

	s.emitAnalytics(ctx, post, result.ExternalID)

	post.Status = models.PostStatusPosted
	post.Metadata = meta
	return post, nil
}

func (s *postService) emitAnalytics(ctx context.Context, post *models.ScheduledPost, externalID string) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return
	}
	record := &models.AnalyticsRecord{
		ID:         id,
		PostID:     post.ID,
		Platform:   post.Platform,
		ExternalID: externalID,
		RecordedAt: time.Now(),
	}
	if err := s.analytics.Create(ctx, record); err != nil {
		slog.Warn("analytics stub not recorded", "post_id", post.ID, "error", err.Error())
	}
}
