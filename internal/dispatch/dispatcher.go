package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"postpipe/internal/models"
	"postpipe/internal/platform"
	"postpipe/internal/repository"
)

// Enqueuer schedules a future dispatch attempt for one post. Retries are
// requeued as new units of work instead of sleeping inside an invocation,
// so a dispatcher run stays short-lived.
type Enqueuer interface {
	EnqueueDispatch(postID string, delay time.Duration) error
}

// Summary aggregates one dispatcher invocation.
type Summary struct {
	Processed       int      `json:"processed"`
	Posted          int      `json:"posted"`
	Failed          int      `json:"failed"`
	Retried         int      `json:"retried"`
	Errors          []string `json:"errors"`
	ExecutionTimeMs int64    `json:"executionTimeMs"`
}

// Dispatcher publishes due pending posts through platform adapters. It is
// stateless; every invocation performs one bounded batch and returns.
type Dispatcher struct {
	posts     repository.PostRepository
	analytics repository.AnalyticsRepository
	adapters  platform.Registry
	policy    *RetryPolicy
	enqueuer  Enqueuer

	batchSize      int
	interPostDelay time.Duration

	// sleep is swapped out in tests; it must respect ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(
	posts repository.PostRepository,
	analytics repository.AnalyticsRepository,
	adapters platform.Registry,
	policy *RetryPolicy,
	enqueuer Enqueuer,
	batchSize int,
	interPostDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		posts:          posts,
		analytics:      analytics,
		adapters:       adapters,
		policy:         policy,
		enqueuer:       enqueuer,
		batchSize:      batchSize,
		interPostDelay: interPostDelay,
		sleep:          sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run processes one batch of due posts in ascending scheduled_for order.
// A failure on one row never aborts the rest of the batch, and a fixed
// delay separates distinct posts to respect platform rate limits.
func (d *Dispatcher) Run(ctx context.Context) *Summary {
	start := time.Now()
	summary := &Summary{Errors: []string{}}

	due, err := d.posts.ListDue(ctx, time.Now(), d.batchSize)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("listing due posts: %v", err))
		summary.ExecutionTimeMs = time.Since(start).Milliseconds()
		return summary
	}

	for i, post := range due {
		if i > 0 {
			// Unconditional inter-post delay, independent of outcome.
			if err := d.sleep(ctx, d.interPostDelay); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("invocation cancelled: %v", err))
				break
			}
		}

		summary.Processed++
		outcome, err := d.DispatchOne(ctx, post.ID)
		switch outcome {
		case outcomePosted:
			summary.Posted++
		case outcomeFailed:
			summary.Failed++
		case outcomeRetried:
			summary.Retried++
		}
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("post %s: %v", post.ID, err))
		}
	}

	summary.ExecutionTimeMs = time.Since(start).Milliseconds()
	return summary
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomePosted
	outcomeFailed
	outcomeRetried
)

// DispatchOne attempts delivery of a single post. It is the entry point
// for both the batch loop and requeued retry tasks. Every status change
// is a conditional update guarded by the pending status, so overlapping
// invocations cannot double-publish.
func (d *Dispatcher) DispatchOne(ctx context.Context, postID string) (outcome, error) {
	post, err := d.posts.GetByID(ctx, postID)
	if err != nil {
		return outcomeSkipped, err
	}
	if post == nil || post.Status != models.PostStatusPending {
		// Deleted or transitioned out of pending before we claimed it.
		return outcomeSkipped, nil
	}

	adapter, ok := d.adapters.For(post.Platform)
	if !ok {
		return d.fail(ctx, post, 1, fmt.Errorf("no adapter registered for platform %q", post.Platform))
	}

	attempt := post.RetryCount() + 1
	result, err := adapter.Publish(ctx, post.Content, post.Metadata)
	if err == nil {
		return d.succeed(ctx, post, attempt, result)
	}

	slog.Info("publish attempt failed",
		"post_id", post.ID, "platform", post.Platform, "attempt", attempt, "error", err.Error())

	if d.policy.ShouldRetry(err, attempt) {
		return d.requeue(ctx, post, attempt, err)
	}
	return d.fail(ctx, post, attempt, err)
}

func (d *Dispatcher) succeed(ctx context.Context, post *models.ScheduledPost, attempt int, result *platform.PublishResult) (outcome, error) {
	meta := cloneMetadata(post.Metadata)
	meta[models.MetaPostedAt] = time.Now().Format(time.RFC3339)
	meta[models.MetaExternalID] = result.ExternalID
	meta[models.MetaRetryCount] = attempt - 1

	matched, err := d.posts.UpdateStatusIf(ctx, post.ID, models.PostStatusPending, repository.PostPatch{
		Status:   models.PostStatusPosted,
		Metadata: meta,
	})
	if err != nil {
		return outcomeSkipped, err
	}
	if !matched {
		// A concurrent invocation finished first; it owns the analytics stub.
		slog.Info("post already transitioned, skipping", "post_id", post.ID)
		return outcomeSkipped, nil
	}

	d.emitAnalytics(ctx, post, result.ExternalID)
	return outcomePosted, nil
}

func (d *Dispatcher) requeue(ctx context.Context, post *models.ScheduledPost, attempt int, cause error) (outcome, error) {
	meta := cloneMetadata(post.Metadata)
	meta[models.MetaRetryCount] = attempt
	meta[models.MetaErrorMessage] = cause.Error()

	matched, err := d.posts.UpdateStatusIf(ctx, post.ID, models.PostStatusPending, repository.PostPatch{
		Status:   models.PostStatusPending,
		Metadata: meta,
	})
	if err != nil {
		return outcomeSkipped, err
	}
	if !matched {
		return outcomeSkipped, nil
	}

	delay := d.policy.NextDelay(attempt)
	if err := d.enqueuer.EnqueueDispatch(post.ID, delay); err != nil {
		// Requeue failed; the post stays pending and the next batch picks it up.
		return outcomeRetried, fmt.Errorf("scheduling retry: %w", err)
	}
	return outcomeRetried, fmt.Errorf("attempt %d failed, retry in %s: %w", attempt, delay, cause)
}

func (d *Dispatcher) fail(ctx context.Context, post *models.ScheduledPost, attempt int, cause error) (outcome, error) {
	meta := cloneMetadata(post.Metadata)
	meta[models.MetaRetryCount] = attempt
	meta[models.MetaErrorMessage] = cause.Error()

	matched, err := d.posts.UpdateStatusIf(ctx, post.ID, models.PostStatusPending, repository.PostPatch{
		Status:   models.PostStatusFailed,
		Metadata: meta,
	})
	if err != nil {
		return outcomeSkipped, err
	}
	if !matched {
		return outcomeSkipped, nil
	}

	return outcomeFailed, cause
}

func (d *Dispatcher) emitAnalytics(ctx context.Context, post *models.ScheduledPost, externalID string) {
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
	if err := d.analytics.Create(ctx, record); err != nil {
		// Stub emission is best effort; enrichment happens elsewhere.
		slog.Warn("analytics stub not recorded", "post_id", post.ID, "error", err.Error())
	}
}

func cloneMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+3)
	for k, v := range meta {
		out[k] = v
	}
	return out
}
