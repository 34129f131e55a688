package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	config "postpipe/configs"
	"postpipe/internal/classifier"
	"postpipe/internal/models"
	"postpipe/internal/repository"
	"postpipe/internal/session"
	"postpipe/internal/transfer"
)

func newTestIntake(t *testing.T, maxPosts int) (IntakeService, *repository.MemoryPostRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := session.NewStore(client, 30*time.Minute)

	posts := repository.NewMemoryPostRepository()
	retention := NewRetentionService(posts, maxPosts)
	cfg := config.Config{FrontendURL: "http://localhost:5173", MaxStoredPosts: maxPosts}
	return NewIntakeService(cfg, posts, sessions, retention), posts
}

func TestSubmitSingleDraft(t *testing.T) {
	svc, posts := newTestIntake(t, 500)
	ctx := context.Background()

	content := strings.Repeat("a", 200)
	resp, err := svc.SubmitSingle(ctx, &transfer.IntakeRequest{Content: content}, classifier.GenericBounds, "")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.ContentID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Platform != models.PlatformX {
		t.Errorf("expected x, got %s", resp.Platform)
	}
	if resp.Scheduled {
		t.Error("no scheduling supplied, must be draft")
	}
	if resp.ContentLength != 200 {
		t.Errorf("expected length 200, got %d", resp.ContentLength)
	}
	if !strings.HasSuffix(resp.WebURL, "/posts/"+resp.ContentID) {
		t.Errorf("unexpected web url %q", resp.WebURL)
	}

	post, _ := posts.GetByID(ctx, resp.ContentID)
	if post == nil {
		t.Fatal("post not persisted")
	}
	if post.Status != models.PostStatusDraft {
		t.Errorf("expected draft, got %s", post.Status)
	}
	if post.Content != content {
		t.Error("plain content must be stored verbatim")
	}
}

func TestSubmitSingleScheduled(t *testing.T) {
	svc, posts := newTestIntake(t, 500)
	ctx := context.Background()

	when := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	resp, err := svc.SubmitSingle(ctx, &transfer.IntakeRequest{
		Content:    "scheduled tweet",
		Platform:   models.PlatformX,
		Scheduling: &transfer.IntakeScheduling{ScheduledFor: when.Format(time.RFC3339)},
	}, classifier.GenericBounds, "")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Scheduled {
		t.Fatal("expected scheduled response")
	}

	post, _ := posts.GetByID(ctx, resp.ContentID)
	if post.Status != models.PostStatusPending {
		t.Errorf("expected pending, got %s", post.Status)
	}
	if post.ScheduledFor == nil || !post.ScheduledFor.Equal(when) {
		t.Errorf("expected scheduled_for %v, got %v", when, post.ScheduledFor)
	}
}

func TestSubmitSingleOverMax(t *testing.T) {
	svc, posts := newTestIntake(t, 500)
	ctx := context.Background()

	_, err := svc.SubmitSingle(ctx, &transfer.IntakeRequest{
		Content:  strings.Repeat("a", 281),
		Platform: models.PlatformX,
	}, classifier.GenericBounds, "")

	var ve *classifier.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.MaxLength != 280 || ve.CurrentLength != 281 {
		t.Errorf("expected limit detail, got %+v", ve)
	}

	count, _ := posts.Count(ctx)
	if count != 0 {
		t.Error("rejected intake must not create a row")
	}
}

func TestSubmitSingleMissingContent(t *testing.T) {
	svc, _ := newTestIntake(t, 500)

	_, err := svc.SubmitSingle(context.Background(), &transfer.IntakeRequest{}, classifier.GenericBounds, "")
	var ve *classifier.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSubmitSingleVariantMinimum(t *testing.T) {
	svc, _ := newTestIntake(t, 500)

	_, err := svc.SubmitSingle(context.Background(), &transfer.IntakeRequest{
		Content: "too short",
	}, classifier.VariantBounds, models.PlatformNote)
	var ve *classifier.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected hard minimum rejection, got %v", err)
	}
	if ve.MinLength != 100 {
		t.Errorf("expected min 100, got %d", ve.MinLength)
	}
}

func TestSubmitSingleMarkupTransform(t *testing.T) {
	svc, posts := newTestIntake(t, 500)
	ctx := context.Background()

	src := "# Heading\n\n" + strings.Repeat("body text ", 200)
	resp, err := svc.SubmitSingle(ctx, &transfer.IntakeRequest{
		Content:  src,
		Platform: models.PlatformNote,
	}, classifier.GenericBounds, "")
	if err != nil {
		t.Fatal(err)
	}

	post, _ := posts.GetByID(ctx, resp.ContentID)
	if !strings.Contains(post.Content, "<h1>Heading</h1>") {
		t.Error("markup should be transformed for note content")
	}
	if post.Metadata[models.MetaOriginalContent] != src {
		t.Error("original content must be retained in metadata")
	}
}

func TestSubmitSingleQualityNote(t *testing.T) {
	svc, _ := newTestIntake(t, 500)

	resp, err := svc.SubmitSingle(context.Background(), &transfer.IntakeRequest{
		Content:  "short",
		Platform: models.PlatformX,
	}, classifier.GenericBounds, "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.QualityNote != "too short for ideal engagement" {
		t.Errorf("unexpected quality note %q", resp.QualityNote)
	}
}

func TestSubmitSingleRetention(t *testing.T) {
	svc, posts := newTestIntake(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		posts.Create(ctx, &models.ScheduledPost{
			ID:        "old" + string(rune('a'+i)),
			Content:   "x",
			Platform:  models.PlatformX,
			Status:    models.PostStatusDraft,
			CreatedAt: time.Now().Add(time.Duration(i-10) * time.Minute),
		})
	}

	resp, err := svc.SubmitSingle(ctx, &transfer.IntakeRequest{
		Content:  "fresh generated content",
		Platform: models.PlatformX,
		Metadata: &transfer.IntakeMetadata{GeneratedBy: "generator"},
	}, classifier.GenericBounds, "")
	if err != nil {
		t.Fatal(err)
	}

	count, _ := posts.Count(ctx)
	if count != 3 {
		t.Errorf("expected cap of 3 after insert, got %d", count)
	}
	if oldest, _ := posts.GetByID(ctx, "olda"); oldest != nil {
		t.Error("oldest row should have been evicted")
	}
	if created, _ := posts.GetByID(ctx, resp.ContentID); created == nil {
		t.Error("new row must exist")
	}
}

func TestSubmitChunkProgressAndCompletion(t *testing.T) {
	svc, posts := newTestIntake(t, 500)
	ctx := context.Background()

	first, err := svc.SubmitChunk(ctx, &transfer.ChunkRequest{
		SessionID:  "sess-1",
		PartNumber: 2,
		TotalParts: 2,
		Content:    "world",
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.Progress == nil || first.Complete != nil {
		t.Fatalf("expected progress response, got %+v", first)
	}
	if first.Progress.ReceivedParts != 1 || first.Progress.TotalParts != 2 {
		t.Errorf("unexpected progress: %+v", first.Progress)
	}
	if first.Progress.AllPartsReceived {
		t.Error("allPartsReceived must be false while incomplete")
	}

	second, err := svc.SubmitChunk(ctx, &transfer.ChunkRequest{
		SessionID:  "sess-1",
		PartNumber: 1,
		TotalParts: 2,
		Content:    "hello ",
		Metadata:   &transfer.IntakeMetadata{Title: "greeting"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.Complete == nil {
		t.Fatal("expected completion on final part")
	}
	if !second.Complete.AllPartsReceived {
		t.Error("allPartsReceived must be true on completion")
	}

	post, _ := posts.GetByID(ctx, second.Complete.ContentID)
	if post == nil {
		t.Fatal("reassembled post not persisted")
	}
	if post.Content != "hello world" {
		t.Errorf("expected index-ordered concatenation, got %q", post.Content)
	}
	if post.Metadata[models.MetaTitle] != "greeting" {
		t.Error("metadata from part 1 should carry over")
	}
	if post.Metadata[models.MetaSessionID] != "sess-1" {
		t.Error("source session id should be recorded")
	}
}

func TestSubmitChunkExplicitCompletion(t *testing.T) {
	svc, posts := newTestIntake(t, 500)
	ctx := context.Background()

	res, err := svc.SubmitChunk(ctx, &transfer.ChunkRequest{
		SessionID:  "sparse",
		PartNumber: 1,
		TotalParts: 3,
		Content:    "all there is",
		IsComplete: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Complete == nil {
		t.Fatal("isComplete must finish a sparse session")
	}

	post, _ := posts.GetByID(ctx, res.Complete.ContentID)
	if post.Content != "all there is" {
		t.Errorf("unexpected content %q", post.Content)
	}
}

func TestSubmitChunkValidation(t *testing.T) {
	svc, _ := newTestIntake(t, 500)
	ctx := context.Background()

	cases := []*transfer.ChunkRequest{
		{PartNumber: 1, TotalParts: 1, Content: "x"},
		{SessionID: "s", PartNumber: 0, TotalParts: 1, Content: "x"},
		{SessionID: "s", PartNumber: 1, TotalParts: 0, Content: "x"},
		{SessionID: "s", PartNumber: 1, TotalParts: 1},
	}
	for i, req := range cases {
		_, err := svc.SubmitChunk(ctx, req)
		var ve *classifier.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("case %d: expected ValidationError, got %v", i, err)
		}
	}
}

func TestSubmitChunkConflict(t *testing.T) {
	svc, _ := newTestIntake(t, 500)
	ctx := context.Background()

	if _, err := svc.SubmitChunk(ctx, &transfer.ChunkRequest{
		SessionID: "c1", PartNumber: 1, TotalParts: 2, Content: "original",
	}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.SubmitChunk(ctx, &transfer.ChunkRequest{
		SessionID: "c1", PartNumber: 1, TotalParts: 2, Content: "different",
	})
	if !errors.Is(err, session.ErrPartConflict) {
		t.Errorf("expected ErrPartConflict, got %v", err)
	}
}

func TestSubmitChunkClassifiesByLength(t *testing.T) {
	svc, posts := newTestIntake(t, 500)
	ctx := context.Background()

	half := strings.Repeat("b", 1000)
	if _, err := svc.SubmitChunk(ctx, &transfer.ChunkRequest{
		SessionID: "long", PartNumber: 1, TotalParts: 2, Content: half,
	}); err != nil {
		t.Fatal(err)
	}
	res, err := svc.SubmitChunk(ctx, &transfer.ChunkRequest{
		SessionID: "long", PartNumber: 2, TotalParts: 2, Content: half,
	})
	if err != nil {
		t.Fatal(err)
	}

	post, _ := posts.GetByID(ctx, res.Complete.ContentID)
	if post.Platform != models.PlatformNote {
		t.Errorf("2000 chars should classify as note, got %s", post.Platform)
	}
}
