package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindImage JobKind = "image"
	JobKindVideo JobKind = "video"
)

// JobStatus enumerates job lifecycle states. Created is always the first
// persisted state; Completed and Failed are terminal. Queued and Running are
// advanced later by the webhook/poll path, never by the orchestrator.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "created"
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job encapsulates one user-initiated generation request and its lifecycle.
// ResolvedParams is persisted verbatim for audit and replay.
type Job struct {
	ID              string
	JobID           string
	ProviderJobID   string
	UserID          string
	Kind            JobKind
	ModelSlug       string
	VersionTag      string
	PresetID        string
	ResolvedParams  ParamDoc
	Status          JobStatus
	ResultURL       string
	ErrorMessage    string
	TokenConsumed   bool
	DurationSeconds int
	Locale          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JobSummary is the caller-facing shape returned after job creation.
type JobSummary struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ModelSlug  string    `json:"model_slug"`
	VersionTag string    `json:"version_tag"`
	PresetID   string    `json:"preset_id,omitempty"`
}

// Summary projects the job onto its caller-facing shape.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		JobID:      j.JobID,
		Status:     j.Status,
		CreatedAt:  j.CreatedAt,
		ModelSlug:  j.ModelSlug,
		VersionTag: j.VersionTag,
		PresetID:   j.PresetID,
	}
}
