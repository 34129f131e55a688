package models

import "time"

// ScheduledPost is one unit of content targeted at a single platform.
// Platform is fixed at classification time; Status walks the lifecycle
// draft -> pending -> posted/failed.
type ScheduledPost struct {
	ID           string         `db:"id" json:"id"`
	Content      string         `db:"content" json:"content"`
	Platform     string         `db:"platform" json:"platform"`
	Status       string         `db:"status" json:"status"`
	ScheduledFor *time.Time     `db:"scheduled_for" json:"scheduled_for,omitempty"`
	DisplayOrder int            `db:"display_order" json:"display_order,omitempty"`
	Metadata     map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

const (
	PostStatusDraft   = "draft"
	PostStatusPending = "pending"
	PostStatusPosted  = "posted"
	PostStatusFailed  = "failed"
)

const (
	PlatformX         = "x"
	PlatformNote      = "note"
	PlatformWordpress = "wordpress"
)

// Metadata keys written by the intake and dispatch paths.
const (
	MetaTitle           = "title"
	MetaTags            = "tags"
	MetaCategory        = "category"
	MetaGeneratedBy     = "generatedBy"
	MetaModel           = "model"
	MetaPrompt          = "prompt"
	MetaQualityNote     = "qualityNote"
	MetaOriginalContent = "originalContent"
	MetaRetryCount      = "retry_count"
	MetaErrorMessage    = "error_message"
	MetaExternalID      = "external_id"
	MetaPostedAt        = "posted_at"
	MetaSessionID       = "sessionId"
)

// KnownPlatform reports whether p is one of the supported destinations.
func KnownPlatform(p string) bool {
	switch p {
	case PlatformX, PlatformNote, PlatformWordpress:
		return true
	}
	return false
}

// CanTransition reports whether a status change is allowed by the post
// lifecycle. Posted and failed are terminal; deletion is handled outside
// the state machine and is allowed from any state.
func CanTransition(from, to string) bool {
	switch from {
	case PostStatusDraft:
		return to == PostStatusPending || to == PostStatusPosted
	case PostStatusPending:
		return to == PostStatusDraft || to == PostStatusPosted || to == PostStatusFailed
	}
	return false
}

// RetryCount reads the retry counter out of post metadata, tolerating the
// numeric widening JSON round-trips introduce.
func (p *ScheduledPost) RetryCount() int {
	if p.Metadata == nil {
		return 0
	}
	switch v := p.Metadata[MetaRetryCount].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
