package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"postpipe/internal/models"
)

// MemoryPostRepository is an in-process PostRepository used by tests and
// local development. It honors the same conditional-update contract as
// the Postgres implementation.
type MemoryPostRepository struct {
	mu    sync.Mutex
	posts map[string]*models.ScheduledPost
}

func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{posts: make(map[string]*models.ScheduledPost)}
}

func (r *MemoryPostRepository) Create(ctx context.Context, post *models.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[post.ID] = clonePost(post)
	return nil
}

func (r *MemoryPostRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	return clonePost(post), nil
}

func (r *MemoryPostRepository) List(ctx context.Context) ([]*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ScheduledPost, 0, len(r.posts))
	for _, p := range r.posts {
		out = append(out, clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryPostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*models.ScheduledPost
	for _, p := range r.posts {
		if p.Status == models.PostStatusPending && p.ScheduledFor != nil && !p.ScheduledFor.After(now) {
			due = append(due, clonePost(p))
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(*due[j].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *MemoryPostRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts), nil
}

func (r *MemoryPostRepository) DeleteOldest(ctx context.Context, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*models.ScheduledPost, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	for i := 0; i < n && i < len(all); i++ {
		delete(r.posts, all[i].ID)
	}
	return nil
}

func (r *MemoryPostRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

func (r *MemoryPostRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post, ok := r.posts[id]; ok {
		post.Metadata = cloneMeta(metadata)
	}
	return nil
}

func (r *MemoryPostRepository) UpdateStatusIf(ctx context.Context, id, expectedStatus string, patch PostPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.Status != expectedStatus {
		return false, nil
	}

	post.Status = patch.Status
	if patch.ClearScheduledFor {
		post.ScheduledFor = nil
	} else if patch.ScheduledFor != nil {
		t := *patch.ScheduledFor
		post.ScheduledFor = &t
	}
	if patch.DisplayOrder != nil {
		post.DisplayOrder = *patch.DisplayOrder
	}
	if patch.Metadata != nil {
		post.Metadata = cloneMeta(patch.Metadata)
	}
	return true, nil
}

// MemoryAnalyticsRepository collects analytics stubs in memory.
type MemoryAnalyticsRepository struct {
	mu      sync.Mutex
	records []*models.AnalyticsRecord
}

func NewMemoryAnalyticsRepository() *MemoryAnalyticsRepository {
	return &MemoryAnalyticsRepository{}
}

func (r *MemoryAnalyticsRepository) Create(ctx context.Context, record *models.AnalyticsRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := *record
	r.records = append(r.records, &rec)
	return nil
}

func (r *MemoryAnalyticsRepository) ListByPostID(ctx context.Context, postID string) ([]*models.AnalyticsRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AnalyticsRecord
	for _, rec := range r.records {
		if rec.PostID == postID {
			c := *rec
			out = append(out, &c)
		}
	}
	return out, nil
}

// MemorySchedulerRepository keeps the scheduler flag in memory.
type MemorySchedulerRepository struct {
	mu      sync.Mutex
	enabled bool
	set     bool
}

func NewMemorySchedulerRepository() *MemorySchedulerRepository {
	return &MemorySchedulerRepository{}
}

func (r *MemorySchedulerRepository) IsEnabled(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		return true, nil
	}
	return r.enabled, nil
}

func (r *MemorySchedulerRepository) SetEnabled(ctx context.Context, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
	r.set = true
	return nil
}

func clonePost(p *models.ScheduledPost) *models.ScheduledPost {
	c := *p
	if p.ScheduledFor != nil {
		t := *p.ScheduledFor
		c.ScheduledFor = &t
	}
	c.Metadata = cloneMeta(p.Metadata)
	return &c
}

func cloneMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
