package service

import (
	"context"
	"testing"
	"time"

	"postpipe/internal/models"
	"postpipe/internal/repository"
)

func draft(id string, createdAt time.Time) *models.ScheduledPost {
	return &models.ScheduledPost{
		ID:        id,
		Content:   "content " + id,
		Platform:  models.PlatformX,
		Status:    models.PostStatusDraft,
		CreatedAt: createdAt,
	}
}

func TestBulkScheduleOrder(t *testing.T) {
	posts := repository.NewMemoryPostRepository()
	svc := NewBulkService(posts)
	ctx := context.Background()

	// Creation order deliberately disagrees with the caller's order.
	now := time.Now()
	posts.Create(ctx, draft("A", now.Add(-1*time.Hour)))
	posts.Create(ctx, draft("B", now.Add(-3*time.Hour)))
	posts.Create(ctx, draft("C", now.Add(-2*time.Hour)))

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	resp, err := svc.Schedule(ctx, []string{"C", "A", "B"}, start, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Scheduled != 3 || len(resp.Skipped) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	want := map[string]struct {
		at    time.Time
		order int
	}{
		"C": {start, 1},
		"A": {start.Add(30 * time.Minute), 2},
		"B": {start.Add(60 * time.Minute), 3},
	}
	for id, w := range want {
		post, _ := posts.GetByID(ctx, id)
		if post.Status != models.PostStatusPending {
			t.Errorf("%s: expected pending, got %s", id, post.Status)
		}
		if post.ScheduledFor == nil || !post.ScheduledFor.Equal(w.at) {
			t.Errorf("%s: expected scheduled_for %v, got %v", id, w.at, post.ScheduledFor)
		}
		if post.DisplayOrder != w.order {
			t.Errorf("%s: expected display_order %d, got %d", id, w.order, post.DisplayOrder)
		}
	}
}

func TestBulkScheduleSkipsNonDrafts(t *testing.T) {
	posts := repository.NewMemoryPostRepository()
	svc := NewBulkService(posts)
	ctx := context.Background()

	posts.Create(ctx, draft("ok", time.Now()))
	already := draft("posted", time.Now())
	already.Status = models.PostStatusPosted
	posts.Create(ctx, already)

	start := time.Now().Add(time.Hour)
	resp, err := svc.Schedule(ctx, []string{"ok", "posted", "missing"}, start, 15*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Scheduled != 1 {
		t.Errorf("expected one scheduled, got %d", resp.Scheduled)
	}
	if len(resp.Skipped) != 2 {
		t.Errorf("expected two skipped, got %v", resp.Skipped)
	}

	// Skipped rows keep their place in the stagger: "ok" is index 0.
	post, _ := posts.GetByID(ctx, "ok")
	if !post.ScheduledFor.Equal(start) {
		t.Errorf("expected %v, got %v", start, post.ScheduledFor)
	}

	terminal, _ := posts.GetByID(ctx, "posted")
	if terminal.Status != models.PostStatusPosted {
		t.Error("terminal post must not be touched")
	}
}
