package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	config "postpipe/configs"
	"postpipe/internal/classifier"
	"postpipe/internal/models"
	"postpipe/internal/repository"
	"postpipe/internal/session"
	"postpipe/internal/transfer"
)

// ChunkResult is either a progress report or, once every part has
// arrived, the persisted post.
type ChunkResult struct {
	Progress *transfer.ChunkProgressResponse
	Complete *transfer.ChunkCompleteResponse
}

type IntakeService interface {
	// SubmitSingle validates, classifies, and persists one document. The
	// bounds select generic or per-platform-variant limits; fixedPlatform
	// pins the destination for the variant endpoints.
	SubmitSingle(ctx context.Context, req *transfer.IntakeRequest, bounds map[string]classifier.Bounds, fixedPlatform string) (*transfer.IntakeResponse, error)
	SubmitChunk(ctx context.Context, req *transfer.ChunkRequest) (*ChunkResult, error)
}

type intakeService struct {
	cfg       config.Config
	posts     repository.PostRepository
	sessions  *session.Store
	retention *RetentionService
}

func NewIntakeService(cfg config.Config, posts repository.PostRepository, sessions *session.Store, retention *RetentionService) IntakeService {
	return &intakeService{
		cfg:       cfg,
		posts:     posts,
		sessions:  sessions,
		retention: retention,
	}
}

func (s *intakeService) SubmitSingle(ctx context.Context, req *transfer.IntakeRequest, bounds map[string]classifier.Bounds, fixedPlatform string) (*transfer.IntakeResponse, error) {
	if req.Content == "" {
		return nil, &classifier.ValidationError{Reason: "content is required"}
	}

	explicit := fixedPlatform
	if explicit == "" {
		explicit = req.Platform
	}

	platform, err := classifier.Classify(req.Content, explicit)
	if err != nil {
		return nil, err
	}
	if err := classifier.Validate(req.Content, platform, bounds); err != nil {
		return nil, err
	}

	metadata := buildMetadata(req.Metadata)
	qualityNote := classifier.QualityNote(len(req.Content), platform)
	if qualityNote != "" {
		metadata[models.MetaQualityNote] = qualityNote
	}

	// The note and wordpress destinations take structural markup; the
	// untouched source stays in metadata so the transform is auditable.
	content := req.Content
	if platform != models.PlatformX && classifier.HasMarkup(content) {
		metadata[models.MetaOriginalContent] = content
		content = classifier.TransformMarkup(content)
	}

	var scheduledFor *time.Time
	status := models.PostStatusDraft
	if req.Scheduling != nil && req.Scheduling.ScheduledFor != "" {
		t, err := parseScheduledFor(req.Scheduling.ScheduledFor)
		if err != nil {
			return nil, &classifier.ValidationError{
				Reason: fmt.Sprintf("invalid scheduledFor timestamp: %v", err),
			}
		}
		scheduledFor = &t
		status = models.PostStatusPending
	}

	if metadata[models.MetaGeneratedBy] != nil {
		// Bound the store before generator-originated inserts; best effort.
		s.retention.EnsureCapacity(ctx)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	post := &models.ScheduledPost{
		ID:           id,
		Content:      content,
		Platform:     platform,
		Status:       status,
		ScheduledFor: scheduledFor,
		Metadata:     metadata,
		CreatedAt:    time.Now(),
	}

	resp := &transfer.IntakeResponse{
		Success:       true,
		ContentID:     id,
		Platform:      platform,
		ContentLength: len(req.Content),
		QualityNote:   qualityNote,
		Scheduled:     scheduledFor != nil,
		WebURL:        s.cfg.FrontendURL + "/posts/" + id,
	}
	if scheduledFor != nil {
		resp.ScheduledFor = scheduledFor.Format(time.RFC3339)
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if errors.Is(err, repository.ErrTableMissing) {
			// The destination table is not provisioned yet; hand back a
			// provisional id rather than failing the generator.
			slog.Warn("posts table missing, returning provisional intake result", "id", id)
			resp.ContentID = "tmp-" + id
			resp.Provisional = true
			resp.WebURL = ""
			return resp, nil
		}
		return nil, fmt.Errorf("persisting post: %w", err)
	}

	return resp, nil
}

func (s *intakeService) SubmitChunk(ctx context.Context, req *transfer.ChunkRequest) (*ChunkResult, error) {
	if req.SessionID == "" {
		return nil, &classifier.ValidationError{Reason: "sessionId is required"}
	}
	if req.PartNumber < 1 || req.TotalParts < 1 {
		return nil, &classifier.ValidationError{Reason: "partNumber and totalParts must be at least 1"}
	}
	if req.Content == "" {
		return nil, &classifier.ValidationError{Reason: "content is required"}
	}

	var metadata map[string]any
	if req.Metadata != nil {
		metadata = buildMetadata(req.Metadata)
	}

	progress, err := s.sessions.AddPart(ctx, req.SessionID, req.PartNumber, req.TotalParts, req.Content, metadata)
	if err != nil {
		return nil, err
	}

	if progress.Received < progress.Total && !req.IsComplete {
		return &ChunkResult{Progress: &transfer.ChunkProgressResponse{
			Success:       true,
			SessionID:     req.SessionID,
			ReceivedParts: progress.Received,
			TotalParts:    progress.Total,
		}}, nil
	}

	doc, meta, err := s.sessions.Assemble(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta[models.MetaSessionID] = req.SessionID

	platform, err := classifier.Classify(doc, "")
	if err != nil {
		return nil, err
	}
	if err := classifier.Validate(doc, platform, classifier.GenericBounds); err != nil {
		return nil, err
	}

	qualityNote := classifier.QualityNote(len(doc), platform)
	if qualityNote != "" {
		meta[models.MetaQualityNote] = qualityNote
	}

	content := doc
	if platform != models.PlatformX && classifier.HasMarkup(content) {
		meta[models.MetaOriginalContent] = content
		content = classifier.TransformMarkup(content)
	}

	if meta[models.MetaGeneratedBy] != nil {
		s.retention.EnsureCapacity(ctx)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	post := &models.ScheduledPost{
		ID:        id,
		Content:   content,
		Platform:  platform,
		Status:    models.PostStatusDraft,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}

	resp := &transfer.ChunkCompleteResponse{
		IntakeResponse: transfer.IntakeResponse{
			Success:       true,
			ContentID:     id,
			Platform:      platform,
			ContentLength: len(doc),
			QualityNote:   qualityNote,
			WebURL:        s.cfg.FrontendURL + "/posts/" + id,
		},
		AllPartsReceived: true,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if errors.Is(err, repository.ErrTableMissing) {
			slog.Warn("posts table missing, returning provisional intake result", "id", id)
			resp.ContentID = "tmp-" + id
			resp.Provisional = true
			resp.WebURL = ""
			return &ChunkResult{Complete: resp}, nil
		}
		return nil, fmt.Errorf("persisting post: %w", err)
	}

	return &ChunkResult{Complete: resp}, nil
}

func buildMetadata(m *transfer.IntakeMetadata) map[string]any {
	metadata := map[string]any{}
	if m == nil {
		return metadata
	}
	if m.Title != "" {
		metadata[models.MetaTitle] = m.Title
	}
	if len(m.Tags) > 0 {
		metadata[models.MetaTags] = m.Tags
	}
	if m.Category != "" {
		metadata[models.MetaCategory] = m.Category
	}
	if m.GeneratedBy != "" {
		metadata[models.MetaGeneratedBy] = m.GeneratedBy
	}
	if m.Model != "" {
		metadata[models.MetaModel] = m.Model
	}
	if m.Prompt != "" {
		metadata[models.MetaPrompt] = m.Prompt
	}
	return metadata
}

func parseScheduledFor(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04", value)
}
