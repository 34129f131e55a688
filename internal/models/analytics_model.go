package models

import "time"

// AnalyticsRecord is the stub row emitted when a post is published.
// Counters start at zero; enrichment is done by an external collector.
type AnalyticsRecord struct {
	ID          string    `db:"id" json:"id"`
	PostID      string    `db:"post_id" json:"post_id"`
	Platform    string    `db:"platform" json:"platform"`
	ExternalID  string    `db:"external_id" json:"external_id"`
	Impressions int64     `db:"impressions" json:"impressions"`
	Likes       int64     `db:"likes" json:"likes"`
	Shares      int64     `db:"shares" json:"shares"`
	RecordedAt  time.Time `db:"recorded_at" json:"recorded_at"`
}
