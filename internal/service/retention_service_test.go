package service

import (
	"context"
	"testing"
	"time"

	"postpipe/internal/models"
	"postpipe/internal/repository"
)

func TestEnsureCapacityEvictsOldest(t *testing.T) {
	posts := repository.NewMemoryPostRepository()
	svc := NewRetentionService(posts, 5)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		posts.Create(ctx, &models.ScheduledPost{
			ID:        "p" + string(rune('0'+i)),
			Content:   "c",
			Platform:  models.PlatformX,
			Status:    models.PostStatusDraft,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	svc.EnsureCapacity(ctx)

	count, _ := posts.Count(ctx)
	if count != 4 {
		t.Fatalf("expected room for one insert (4 rows), got %d", count)
	}
	if oldest, _ := posts.GetByID(ctx, "p0"); oldest != nil {
		t.Error("oldest row should be evicted first")
	}
	if newest, _ := posts.GetByID(ctx, "p4"); newest == nil {
		t.Error("newest row must survive")
	}
}

func TestEnsureCapacityUnderCap(t *testing.T) {
	posts := repository.NewMemoryPostRepository()
	svc := NewRetentionService(posts, 5)
	ctx := context.Background()

	posts.Create(ctx, &models.ScheduledPost{ID: "only", Status: models.PostStatusDraft, CreatedAt: time.Now()})

	svc.EnsureCapacity(ctx)

	count, _ := posts.Count(ctx)
	if count != 1 {
		t.Errorf("under-cap store must not be touched, got %d rows", count)
	}
}
