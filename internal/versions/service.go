// Package versions manages saved resume versions: creation, activation,
// comparison and application performance tracking.
package versions

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// Store is the persistence the service needs. *db.DB implements it.
type Store interface {
	CreateVersion(ctx context.Context, v *db.Version) error
	GetVersion(ctx context.Context, id string) (*db.Version, error)
	ListVersions(ctx context.Context, filters db.VersionFilters) ([]db.Version, error)
	UpdateVersion(ctx context.Context, id string, u db.VersionUpdate) error
	SetActiveVersion(ctx context.Context, id string) error
	GetActiveVersion(ctx context.Context, owner *uuid.UUID) (*db.Version, error)
	ArchiveVersion(ctx context.Context, id string) error
	DeleteVersion(ctx context.Context, id string) error
	ClaimGuestVersions(ctx context.Context, owner uuid.UUID, ids []string) (int64, error)

	SaveComparison(ctx context.Context, c *db.Comparison) error
	GetComparison(ctx context.Context, a, b string, since time.Time) (*db.Comparison, error)
	CleanupComparisons(ctx context.Context, before time.Time) (int64, error)

	AddPerformance(ctx context.Context, versionID string, delta db.PerformanceDelta) error
	GetPerformance(ctx context.Context, versionID string) (*db.Performance, error)
	ListPerformance(ctx context.Context, owner *uuid.UUID) ([]db.Performance, error)
}

const (
	// ComparisonTTL is how long a cached comparison is reused.
	ComparisonTTL = 24 * time.Hour
	// DefaultComparisonRetention is the age after which cached comparisons are deleted.
	DefaultComparisonRetention = 7 * 24 * time.Hour
)

// Service implements version management on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
	rand  io.Reader
	log   *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom replaces the random source used for version IDs.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.rand = r }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a version service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		rand:  rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log)
	return s
}

// CreateInput describes a new version.
type CreateInput struct {
	Owner          *uuid.UUID
	Name           string
	Content        *types.ResumeRecord
	Score          *types.ScoreReport
	TargetCompany  string
	TargetPosition string
	JobDescription string
	ParentID       *string
	Notes          string
}

// UpdateInput holds the fields to change. Nil fields are left as they are.
type UpdateInput struct {
	Name           *string
	TargetCompany  *string
	TargetPosition *string
	Notes          *string
	Content        *types.ResumeRecord
	Score          *types.ScoreReport
}

// ListOptions filters List.
type ListOptions struct {
	IncludeArchived bool
	Company         string
	Limit           int
}

// Create stores a new version and returns its ID.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	if in.Content == nil {
		return "", &InputError{Field: "content", Message: "resume content is required"}
	}
	if in.ParentID != nil && *in.ParentID != "" {
		parent, err := s.store.GetVersion(ctx, *in.ParentID)
		if err != nil {
			return "", err
		}
		if parent == nil {
			return "", fmt.Errorf("parent %s: %w", *in.ParentID, ErrVersionNotFound)
		}
	} else {
		in.ParentID = nil
	}

	content, err := json.Marshal(in.Content)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}
	var score json.RawMessage
	if in.Score != nil {
		if score, err = json.Marshal(in.Score); err != nil {
			return "", fmt.Errorf("failed to marshal score: %w", err)
		}
	}

	now := s.now().UTC()
	id, err := s.newID(now)
	if err != nil {
		return "", err
	}

	name := in.Name
	if name == "" {
		name = in.TargetCompany + "_" + in.TargetPosition
	}

	v := &db.Version{
		ID:             id,
		OwnerID:        in.Owner,
		Name:           name,
		ParentID:       in.ParentID,
		TargetCompany:  in.TargetCompany,
		TargetPosition: in.TargetPosition,
		JDHash:         HashJobDescription(in.JobDescription),
		Content:        content,
		Score:          score,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateVersion(ctx, v); err != nil {
		return "", err
	}

	s.log.Info("version created", "version_id", id, "user_id", ownerString(in.Owner))
	return id, nil
}

// Get returns a version, or nil if it does not exist.
func (s *Service) Get(ctx context.Context, id string) (*db.Version, error) {
	return s.store.GetVersion(ctx, id)
}

// List returns the versions visible to owner, newest first. A nil owner sees
// guest versions only.
func (s *Service) List(ctx context.Context, owner *uuid.UUID, opts ListOptions) ([]db.Version, error) {
	return s.store.ListVersions(ctx, db.VersionFilters{
		OwnerID:         owner,
		IncludeArchived: opts.IncludeArchived,
		Company:         opts.Company,
		Limit:           opts.Limit,
	})
}

// Update changes the given fields and bumps updated_at.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) error {
	u := db.VersionUpdate{
		Name:           in.Name,
		TargetCompany:  in.TargetCompany,
		TargetPosition: in.TargetPosition,
		Notes:          in.Notes,
	}
	if in.Name != nil && *in.Name == "" {
		return &InputError{Field: "name", Message: "must not be empty"}
	}
	if in.Content != nil {
		content, err := json.Marshal(in.Content)
		if err != nil {
			return fmt.Errorf("failed to marshal content: %w", err)
		}
		u.Content = content
	}
	if in.Score != nil {
		score, err := json.Marshal(in.Score)
		if err != nil {
			return fmt.Errorf("failed to marshal score: %w", err)
		}
		u.Score = score
	}
	return notFound(s.store.UpdateVersion(ctx, id, u))
}

// SetActive makes id the active version of its scope. Guests may only
// activate guest versions.
func (s *Service) SetActive(ctx context.Context, owner *uuid.UUID, id string) error {
	v, err := s.store.GetVersion(ctx, id)
	if err != nil {
		return err
	}
	if v == nil || v.ArchivedAt != nil {
		return ErrVersionNotFound
	}
	if !Visible(v, owner) {
		return ErrForbidden
	}
	if err := notFound(s.store.SetActiveVersion(ctx, id)); err != nil {
		return err
	}
	s.log.Info("version activated", "version_id", id, "user_id", ownerString(owner))
	return nil
}

// Active returns the active version of owner's scope, or nil.
func (s *Service) Active(ctx context.Context, owner *uuid.UUID) (*db.Version, error) {
	return s.store.GetActiveVersion(ctx, owner)
}

// Archive soft-deletes a version.
func (s *Service) Archive(ctx context.Context, id string) error {
	return notFound(s.store.ArchiveVersion(ctx, id))
}

// Delete removes a version and its cached comparisons.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := notFound(s.store.DeleteVersion(ctx, id)); err != nil {
		return err
	}
	s.log.Info("version deleted", "version_id", id)
	return nil
}

// ClaimGuestVersions moves guest versions into owner's account.
func (s *Service) ClaimGuestVersions(ctx context.Context, owner uuid.UUID, ids []string) (int, error) {
	n, err := s.store.ClaimGuestVersions(ctx, owner, ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("guest versions claimed", "user_id", owner.String(), "count", n)
	}
	return int(n), nil
}

// CleanupComparisons deletes cached comparisons older than olderThan
// (DefaultComparisonRetention when zero).
func (s *Service) CleanupComparisons(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = DefaultComparisonRetention
	}
	n, err := s.store.CleanupComparisons(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	s.log.Info("comparisons cleaned up", "deleted", n)
	return n, nil
}

// Visible reports whether owner may see v. Guest versions are visible to
// everyone.
func Visible(v *db.Version, owner *uuid.UUID) bool {
	if v.OwnerID == nil {
		return true
	}
	return owner != nil && *v.OwnerID == *owner
}

// HashJobDescription returns the sha256 hex digest of a job description, or
// "" when there is none.
func HashJobDescription(jd string) string {
	if jd == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(jd))
	return hex.EncodeToString(sum[:])
}

// DecodeContent unmarshals the resume record stored in a version.
func DecodeContent(v *db.Version) (*types.ResumeRecord, error) {
	record := types.NewEmptyRecord()
	if len(v.Content) > 0 {
		if err := json.Unmarshal(v.Content, record); err != nil {
			return nil, fmt.Errorf("failed to decode version %s: %w", v.ID, err)
		}
	}
	record.Normalize()
	return record, nil
}

func (s *Service) newID(now time.Time) (string, error) {
	b := make([]byte, 4)
	if _, err := io.ReadFull(s.rand, b); err != nil {
		return "", fmt.Errorf("failed to generate version id: %w", err)
	}
	return fmt.Sprintf("v_%s_%s", now.Format("20060102_150405"), hex.EncodeToString(b)), nil
}

func notFound(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrVersionNotFound
	}
	return err
}

func ownerString(owner *uuid.UUID) string {
	if owner == nil {
		return "guest"
	}
	return owner.String()
}
