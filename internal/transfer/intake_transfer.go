package transfer

// IntakeMetadata is the optional descriptive block a generator sends with
// content.
type IntakeMetadata struct {
	Title       string   `json:"title,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	GeneratedBy string   `json:"generatedBy,omitempty"`
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
}

type IntakeScheduling struct {
	ScheduledFor string `json:"scheduledFor,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	Repeat       string `json:"repeat,omitempty"`
}

// IntakeRequest is the single-shot submission body. Platform is optional
// on the generic endpoint and fixed by the per-platform variants.
type IntakeRequest struct {
	Content    string            `json:"content"`
	Platform   string            `json:"platform,omitempty"`
	Metadata   *IntakeMetadata   `json:"metadata,omitempty"`
	Scheduling *IntakeScheduling `json:"scheduling,omitempty"`
}

type IntakeResponse struct {
	Success       bool   `json:"success"`
	ContentID     string `json:"contentId"`
	Platform      string `json:"platform"`
	ContentLength int    `json:"contentLength"`
	QualityNote   string `json:"qualityNote,omitempty"`
	Scheduled     bool   `json:"scheduled"`
	ScheduledFor  string `json:"scheduledFor,omitempty"`
	WebURL        string `json:"webUrl"`
	Provisional   bool   `json:"provisional,omitempty"`
}

// ChunkRequest is one fragment of a chunked submission.
type ChunkRequest struct {
	SessionID  string          `json:"sessionId"`
	PartNumber int             `json:"partNumber"`
	TotalParts int             `json:"totalParts"`
	Content    string          `json:"content"`
	Metadata   *IntakeMetadata `json:"metadata,omitempty"`
	IsComplete bool            `json:"isComplete,omitempty"`
}

// ChunkProgressResponse is returned while a session is still incomplete.
type ChunkProgressResponse struct {
	Success          bool   `json:"success"`
	SessionID        string `json:"sessionId"`
	ReceivedParts    int    `json:"receivedParts"`
	TotalParts       int    `json:"totalParts"`
	AllPartsReceived bool   `json:"allPartsReceived"`
}

// ChunkCompleteResponse mirrors the single-shot success once every part
// has arrived.
type ChunkCompleteResponse struct {
	IntakeResponse
	AllPartsReceived bool `json:"allPartsReceived"`
}

// BulkScheduleRequest assigns staggered schedule times to an explicitly
// ordered set of draft posts.
type BulkScheduleRequest struct {
	PostIDs         []string `json:"postIds"`
	StartTime       string   `json:"startTime"`
	IntervalMinutes int      `json:"intervalMinutes"`
}

type BulkScheduleResponse struct {
	Success   bool     `json:"success"`
	Scheduled int      `json:"scheduled"`
	Skipped   []string `json:"skipped,omitempty"`
}
