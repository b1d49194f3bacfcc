package versions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// FieldChange is a personal-info field that differs between two versions.
type FieldChange struct {
	A string `json:"a"`
	B string `json:"b"`
}

// SectionChange summarizes a list section that differs.
type SectionChange struct {
	CountDiff      int  `json:"count_diff"`
	ContentChanged bool `json:"content_changed"`
}

// SkillChange lists skills present in only one of the versions.
type SkillChange struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Differences is the diff of version B relative to version A. Sections that
// are equal are omitted.
type Differences struct {
	PersonalInfo   map[string]FieldChange `json:"personal_info,omitempty"`
	WorkExperience *SectionChange         `json:"work_experience,omitempty"`
	Education      *SectionChange         `json:"education,omitempty"`
	Projects       *SectionChange         `json:"projects,omitempty"`
	Skills         *SkillChange           `json:"skills,omitempty"`
}

// Comparison is the result of Compare.
type Comparison struct {
	VersionA       string      `json:"version_a"`
	VersionB       string      `json:"version_b"`
	Differences    Differences `json:"differences"`
	Similarity     float64     `json:"similarity"`
	Recommendation string      `json:"recommendation"`
	// Cached reports a cache hit. It is not serialized so a cached result
	// encodes exactly like the fresh one.
	Cached         bool        `json:"-"`
}

// Compare diffs two versions. A comparison of the same pair (in either order)
// computed within ComparisonTTL is returned from the cache.
func (s *Service) Compare(ctx context.Context, a, b string) (*Comparison, error) {
	va, err := s.store.GetVersion(ctx, a)
	if err != nil {
		return nil, err
	}
	vb, err := s.store.GetVersion(ctx, b)
	if err != nil {
		return nil, err
	}
	if va == nil || vb == nil {
		return nil, ErrVersionNotFound
	}

	now := s.now()
	cached, err := s.store.GetComparison(ctx, a, b, now.Add(-ComparisonTTL))
	if err != nil {
		return nil, err
	}
	if cached != nil {
		c := &Comparison{
			VersionA:       cached.VersionA,
			VersionB:       cached.VersionB,
			Similarity:     cached.Similarity,
			Recommendation: cached.Recommendation,
			Cached:         true,
		}
		if err := json.Unmarshal(cached.Differences, &c.Differences); err != nil {
			return nil, fmt.Errorf("failed to decode cached comparison: %w", err)
		}
		return c, nil
	}

	ra, err := DecodeContent(va)
	if err != nil {
		return nil, err
	}
	rb, err := DecodeContent(vb)
	if err != nil {
		return nil, err
	}

	c := &Comparison{
		VersionA:    a,
		VersionB:    b,
		Differences: Diff(ra, rb),
		Similarity:  Similarity(ra, rb),
	}
	c.Recommendation = Recommend(c.Similarity)

	diffJSON, err := json.Marshal(c.Differences)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal differences: %w", err)
	}
	if err := s.store.SaveComparison(ctx, &db.Comparison{
		VersionA:       a,
		VersionB:       b,
		Differences:    diffJSON,
		Similarity:     c.Similarity,
		Recommendation: c.Recommendation,
		CreatedAt:      now,
	}); err != nil {
		// The comparison is still valid without the cache entry.
		s.log.Warn("failed to cache comparison", "version_a", a, "version_b", b, "error", err)
	}
	return c, nil
}

// Diff computes the differences of b relative to a.
func Diff(a, b *types.ResumeRecord) Differences {
	var d Differences

	pa, pb := personalFields(a.PersonalInfo), personalFields(b.PersonalInfo)
	for i, f := range pa {
		other := pb[i].value
		if f.value != other {
			if d.PersonalInfo == nil {
				d.PersonalInfo = map[string]FieldChange{}
			}
			d.PersonalInfo[f.name] = FieldChange{A: f.value, B: other}
		}
	}

	if !jsonEqual(a.WorkExperience, b.WorkExperience) {
		d.WorkExperience = &SectionChange{CountDiff: len(b.WorkExperience) - len(a.WorkExperience), ContentChanged: true}
	}
	if !jsonEqual(a.Education, b.Education) {
		d.Education = &SectionChange{CountDiff: len(b.Education) - len(a.Education), ContentChanged: true}
	}
	if !jsonEqual(a.Projects, b.Projects) {
		d.Projects = &SectionChange{CountDiff: len(b.Projects) - len(a.Projects), ContentChanged: true}
	}

	skillsA, skillsB := a.TechnicalSkills.All(), b.TechnicalSkills.All()
	added, removed := setDiff(skillsB, skillsA), setDiff(skillsA, skillsB)
	if len(added) > 0 || len(removed) > 0 {
		d.Skills = &SkillChange{Added: added, Removed: removed}
	}
	return d
}

// Similarity is the fraction of top-level sections that are exactly equal.
func Similarity(a, b *types.ResumeRecord) float64 {
	pairs := [][2]any{
		{a.PersonalInfo, b.PersonalInfo},
		{a.WorkExperience, b.WorkExperience},
		{a.Education, b.Education},
		{a.Projects, b.Projects},
		{a.TechnicalSkills, b.TechnicalSkills},
		{a.Certifications, b.Certifications},
		{a.Languages, b.Languages},
		{a.NotableAchievements, b.NotableAchievements},
	}
	same := 0
	for _, p := range pairs {
		if jsonEqual(p[0], p[1]) {
			same++
		}
	}
	return float64(same) / float64(len(pairs))
}

// Recommend turns a similarity into advice.
func Recommend(similarity float64) string {
	switch {
	case similarity > 0.9:
		return "The versions are nearly identical; differentiate them further for their target roles."
	case similarity > 0.7:
		return "The versions differ moderately and suit different kinds of positions."
	case similarity > 0.5:
		return "The versions differ substantially; make sure each change targets its position."
	default:
		return "The versions differ heavily; re-evaluate the optimization strategy."
	}
}

type namedField struct {
	name  string
	value string
}

func personalFields(p types.PersonalInfo) []namedField {
	return []namedField{
		{"full_name", p.FullName},
		{"email", p.Email},
		{"phone", p.Phone},
		{"location", p.Location},
		{"linkedin", p.LinkedIn},
		{"github", p.GitHub},
		{"portfolio", p.Portfolio},
		{"years_of_experience", p.YearsOfExperience},
	}
}

// setDiff returns the items of a missing from b, in a's order.
func setDiff(a, b []string) []string {
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		seen[s] = true
	}
	out := []string{}
	for _, s := range a {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}

func jsonEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
