package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Version is a stored resume variant. Content and Score hold the JSON of a
// ResumeRecord and a ScoreReport.
type Version struct {
	ID             string          `json:"id"`
	OwnerID        *uuid.UUID      `json:"owner_id,omitempty"`
	Name           string          `json:"name"`
	ParentID       *string         `json:"parent_id,omitempty"`
	TargetCompany  string          `json:"target_company"`
	TargetPosition string          `json:"target_position"`
	JDHash         string          `json:"jd_hash"`
	Content        json.RawMessage `json:"content"`
	Score          json.RawMessage `json:"score,omitempty"`
	Notes          string          `json:"notes"`
	IsActive       bool            `json:"is_active"`
	ArchivedAt     *time.Time      `json:"archived_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// VersionFilters holds optional filters for listing versions
type VersionFilters struct {
	OwnerID         *uuid.UUID // owner's versions plus guest versions; nil lists guest versions only
	IncludeArchived bool
	Company         string
	Limit           int
}

// VersionUpdate holds the mutable fields of a version. Nil fields are left
// unchanged.
type VersionUpdate struct {
	Name           *string
	TargetCompany  *string
	TargetPosition *string
	Notes          *string
	Content        json.RawMessage
	Score          json.RawMessage
}

// IsEmpty reports whether the update changes nothing.
func (u VersionUpdate) IsEmpty() bool {
	return u.Name == nil && u.TargetCompany == nil && u.TargetPosition == nil &&
		u.Notes == nil && u.Content == nil && u.Score == nil
}

// Comparison is a cached diff between two versions.
type Comparison struct {
	ID             uuid.UUID       `json:"id"`
	VersionA       string          `json:"version_a"`
	VersionB       string          `json:"version_b"`
	Differences    json.RawMessage `json:"differences"`
	Similarity     float64         `json:"similarity"`
	Recommendation string          `json:"recommendation"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PerformanceDelta is added to a version's performance counters.
type PerformanceDelta struct {
	Applications int
	Interviews   int
	ATSScore     *int
	Feedback     string
}

// Performance aggregates application outcomes for one version.
type Performance struct {
	VersionID        string          `json:"version_id"`
	ApplicationsSent int             `json:"applications_sent"`
	Interviews       int             `json:"interviews"`
	ATSScoreSum      int64           `json:"ats_score_sum"`
	ATSScoreCount    int             `json:"ats_score_count"`
	Feedback         json.RawMessage `json:"feedback"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// User represents a user account
type User struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	PasswordHash  string    `json:"-" db:"password_hash"` // Never serialize to JSON
	PasswordSet   bool      `json:"password_set" db:"password_set"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Feedback is a message submitted through the feedback form.
type Feedback struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Subject   string     `json:"subject"`
	Message   string     `json:"message"`
	Delivered bool       `json:"delivered"`
	CreatedAt time.Time  `json:"created_at"`
}

// Analysis job statuses.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// AnalysisJob tracks an asynchronous resume analysis.
type AnalysisJob struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     *uuid.UUID      `json:"owner_id,omitempty"`
	Filename    string          `json:"filename"`
	StorageKey  string          `json:"storage_key"`
	Status      string          `json:"status"`
	Options     json.RawMessage `json:"options"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
