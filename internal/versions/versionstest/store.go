// Package versionstest provides an in-memory versions.Store for tests.
package versionstest

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/db"
)

// Store is an in-memory version store with the same scoping rules as the
// Postgres implementation. Fields are exported for assertions; hold no
// reference across concurrent calls.
type Store struct {
	mu          sync.Mutex
	Versions    map[string]*db.Version
	Comparisons []db.Comparison
	Perf        map[string]*db.Performance
	// SaveErr, when set, fails SaveComparison.
	SaveErr error
}

// New returns an empty store.
func New() *Store {
	return &Store{Versions: map[string]*db.Version{}, Perf: map[string]*db.Performance{}}
}

func visibleTo(v *db.Version, owner *uuid.UUID) bool {
	if owner == nil {
		return v.OwnerID == nil
	}
	return v.OwnerID == nil || *v.OwnerID == *owner
}

func sameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *Store) CreateVersion(_ context.Context, v *db.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *v
	m.Versions[v.ID] = &c
	return nil
}

func (m *Store) GetVersion(_ context.Context, id string) (*db.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Versions[id]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (m *Store) ListVersions(_ context.Context, f db.VersionFilters) ([]db.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []db.Version{}
	for _, v := range m.Versions {
		if !visibleTo(v, f.OwnerID) || (!f.IncludeArchived && v.ArchivedAt != nil) {
			continue
		}
		if f.Company != "" && !strings.Contains(strings.ToLower(v.TargetCompany), strings.ToLower(f.Company)) {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit := f.Limit
	if limit == 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Store) UpdateVersion(_ context.Context, id string, u db.VersionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Versions[id]
	if !ok {
		return db.ErrNotFound
	}
	if u.Name != nil {
		v.Name = *u.Name
	}
	if u.Notes != nil {
		v.Notes = *u.Notes
	}
	if u.TargetCompany != nil {
		v.TargetCompany = *u.TargetCompany
	}
	if u.TargetPosition != nil {
		v.TargetPosition = *u.TargetPosition
	}
	if u.Content != nil {
		v.Content = u.Content
	}
	if u.Score != nil {
		v.Score = u.Score
	}
	v.UpdatedAt = v.UpdatedAt.Add(time.Second)
	return nil
}

func (m *Store) SetActiveVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.Versions[id]
	if !ok || target.ArchivedAt != nil {
		return db.ErrNotFound
	}
	for _, v := range m.Versions {
		if sameScope(v.OwnerID, target.OwnerID) {
			v.IsActive = false
		}
	}
	target.IsActive = true
	return nil
}

func (m *Store) GetActiveVersion(_ context.Context, owner *uuid.UUID) (*db.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.Versions {
		if v.IsActive && v.ArchivedAt == nil && sameScope(v.OwnerID, owner) {
			c := *v
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Store) ArchiveVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Versions[id]
	if !ok || v.ArchivedAt != nil {
		return db.ErrNotFound
	}
	now := time.Now()
	v.ArchivedAt = &now
	v.IsActive = false
	return nil
}

func (m *Store) DeleteVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Versions[id]; !ok {
		return db.ErrNotFound
	}
	kept := m.Comparisons[:0]
	for _, c := range m.Comparisons {
		if c.VersionA != id && c.VersionB != id {
			kept = append(kept, c)
		}
	}
	m.Comparisons = kept
	delete(m.Versions, id)
	delete(m.Perf, id)
	return nil
}

func (m *Store) ClaimGuestVersions(_ context.Context, owner uuid.UUID, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if v, ok := m.Versions[id]; ok && v.OwnerID == nil {
			o := owner
			v.OwnerID = &o
			v.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *Store) SaveComparison(_ context.Context, c *db.Comparison) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	c.ID = uuid.New()
	m.Comparisons = append(m.Comparisons, *c)
	return nil
}

func (m *Store) GetComparison(_ context.Context, a, b string, since time.Time) (*db.Comparison, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Comparisons) - 1; i >= 0; i-- {
		c := m.Comparisons[i]
		pair := (c.VersionA == a && c.VersionB == b) || (c.VersionA == b && c.VersionB == a)
		if pair && c.CreatedAt.After(since) {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Store) CleanupComparisons(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Comparisons[:0]
	var n int64
	for _, c := range m.Comparisons {
		if c.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.Comparisons = kept
	return n, nil
}

func (m *Store) AddPerformance(_ context.Context, id string, d db.PerformanceDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Perf[id]
	if !ok {
		p = &db.Performance{VersionID: id, Feedback: json.RawMessage(`[]`)}
		m.Perf[id] = p
	}
	p.ApplicationsSent += d.Applications
	p.Interviews += d.Interviews
	if d.ATSScore != nil {
		p.ATSScoreSum += int64(*d.ATSScore)
		p.ATSScoreCount++
	}
	if d.Feedback != "" {
		var fb []string
		_ = json.Unmarshal(p.Feedback, &fb)
		p.Feedback, _ = json.Marshal(append(fb, d.Feedback))
	}
	return nil
}

func (m *Store) GetPerformance(_ context.Context, id string) (*db.Performance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Perf[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (m *Store) ListPerformance(_ context.Context, owner *uuid.UUID) ([]db.Performance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []db.Performance{}
	for id, p := range m.Perf {
		if v, ok := m.Versions[id]; ok && v.ArchivedAt == nil && visibleTo(v, owner) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionID < out[j].VersionID })
	return out, nil
}
