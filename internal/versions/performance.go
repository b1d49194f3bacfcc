package versions

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/db"
)

// Metrics are the application outcomes of one version.
type Metrics struct {
	VersionID        string   `json:"version_id"`
	ApplicationsSent int      `json:"applications_sent"`
	Interviews       int      `json:"interviews_received"`
	ResponseRate     float64  `json:"response_rate"`
	AvgATSScore      float64  `json:"avg_ats_score"`
	ATSScoreCount    int      `json:"ats_score_count"`
	Feedback         []string `json:"feedback"`
}

// RankScore weighs response rate and ATS score (on 0..1) 70/30.
func (m Metrics) RankScore() float64 {
	return m.ResponseRate*0.7 + (m.AvgATSScore/100)*0.3
}

// VersionReport summarizes one version and its performance.
type VersionReport struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	TargetCompany   string   `json:"target_company"`
	TargetPosition  string   `json:"target_position"`
	ATSScore        *int     `json:"ats_score,omitempty"`
	IsActive        bool     `json:"is_active"`
	CreatedAt       string   `json:"created_at"`
	Performance     *Metrics `json:"performance,omitempty"`
	Recommendations []string `json:"recommendations"`
}

// Report covers every unarchived version visible to an owner.
type Report struct {
	Versions      []VersionReport `json:"versions"`
	BestVersionID string          `json:"best_version_id,omitempty"`
}

// RecordApplication counts one application sent with a version, optionally
// with the ATS score the application received.
func (s *Service) RecordApplication(ctx context.Context, id string, atsScore *int) error {
	if atsScore != nil && (*atsScore < 0 || *atsScore > 100) {
		return &InputError{Field: "ats_score", Message: "must be between 0 and 100"}
	}
	return s.addPerformance(ctx, id, db.PerformanceDelta{Applications: 1, ATSScore: atsScore})
}

// RecordInterview counts one interview invitation.
func (s *Service) RecordInterview(ctx context.Context, id string) error {
	return s.addPerformance(ctx, id, db.PerformanceDelta{Interviews: 1})
}

// AddFeedback stores recruiter feedback for a version.
func (s *Service) AddFeedback(ctx context.Context, id, feedback string) error {
	if feedback == "" {
		return &InputError{Field: "feedback", Message: "must not be empty"}
	}
	return s.addPerformance(ctx, id, db.PerformanceDelta{Feedback: feedback})
}

func (s *Service) addPerformance(ctx context.Context, id string, delta db.PerformanceDelta) error {
	v, err := s.store.GetVersion(ctx, id)
	if err != nil {
		return err
	}
	if v == nil {
		return ErrVersionNotFound
	}
	return s.store.AddPerformance(ctx, id, delta)
}

// Performance returns the metrics of a version. Versions without recorded
// activity get zero metrics.
func (s *Service) Performance(ctx context.Context, id string) (*Metrics, error) {
	v, err := s.store.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVersionNotFound
	}
	p, err := s.store.GetPerformance(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &Metrics{VersionID: id, Feedback: []string{}}, nil
	}
	return toMetrics(p), nil
}

// BestPerforming returns the visible version with the highest RankScore
// among those with at least one application, or "" if there is none.
func (s *Service) BestPerforming(ctx context.Context, owner *uuid.UUID) (string, error) {
	perf, err := s.store.ListPerformance(ctx, owner)
	if err != nil {
		return "", err
	}
	return bestOf(perf), nil
}

// Report builds a report of every visible version with recommendations
// derived from its performance.
func (s *Service) Report(ctx context.Context, owner *uuid.UUID) (*Report, error) {
	versions, err := s.store.ListVersions(ctx, db.VersionFilters{OwnerID: owner})
	if err != nil {
		return nil, err
	}
	perf, err := s.store.ListPerformance(ctx, owner)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*db.Performance, len(perf))
	for i := range perf {
		byID[perf[i].VersionID] = &perf[i]
	}

	report := &Report{Versions: []VersionReport{}, BestVersionID: bestOf(perf)}
	for _, v := range versions {
		vr := VersionReport{
			ID:              v.ID,
			Name:            v.Name,
			TargetCompany:   v.TargetCompany,
			TargetPosition:  v.TargetPosition,
			ATSScore:        overallScore(v.Score),
			IsActive:        v.IsActive,
			CreatedAt:       v.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Recommendations: []string{},
		}
		if p, ok := byID[v.ID]; ok {
			vr.Performance = toMetrics(p)
			vr.Recommendations = Recommendations(*vr.Performance)
		}
		report.Versions = append(report.Versions, vr)
	}
	return report, nil
}

// Recommendations derives advice from a version's metrics.
func Recommendations(m Metrics) []string {
	recs := []string{}
	if m.ApplicationsSent > 0 && m.ResponseRate < 0.1 {
		recs = append(recs, "Low response rate; revise the resume content or the application strategy.")
	}
	if m.ATSScoreCount > 0 && m.AvgATSScore < 70 {
		recs = append(recs, "ATS scores are low; add job keywords and tighten the format.")
	}
	if m.ApplicationsSent > 10 && m.Interviews == 0 {
		recs = append(recs, "Many applications without an interview; consider rebuilding the resume.")
	}
	return recs
}

func toMetrics(p *db.Performance) *Metrics {
	m := &Metrics{
		VersionID:        p.VersionID,
		ApplicationsSent: p.ApplicationsSent,
		Interviews:       p.Interviews,
		ATSScoreCount:    p.ATSScoreCount,
		Feedback:         []string{},
	}
	if p.ApplicationsSent > 0 {
		m.ResponseRate = float64(p.Interviews) / float64(p.ApplicationsSent)
	}
	if p.ATSScoreCount > 0 {
		m.AvgATSScore = float64(p.ATSScoreSum) / float64(p.ATSScoreCount)
	}
	if len(p.Feedback) > 0 {
		_ = json.Unmarshal(p.Feedback, &m.Feedback)
	}
	return m
}

func bestOf(perf []db.Performance) string {
	best, bestScore := "", -1.0
	for i := range perf {
		if perf[i].ApplicationsSent == 0 {
			continue
		}
		if score := toMetrics(&perf[i]).RankScore(); score > bestScore {
			best, bestScore = perf[i].VersionID, score
		}
	}
	return best
}

func overallScore(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var score struct {
		OverallScore *int `json:"overall_score"`
	}
	if err := json.Unmarshal(raw, &score); err != nil {
		return nil
	}
	return score.OverallScore
}
