// Package types provides type definitions for structured data used throughout the resume-analyzer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"slices"
	"strings"
)

// Resume languages detected from the source text.
const (
	LanguageEnglish = "en"
	LanguageChinese = "zh"
)

// ResumeRecord is the structured form of a resume document.
// Once attached to a version it is treated as immutable; use Clone before editing.
type ResumeRecord struct {
	PersonalInfo        PersonalInfo     `json:"personal_info"`
	WorkExperience      []WorkExperience `json:"work_experience"`
	Education           []Education      `json:"education"`
	Projects            []Project        `json:"projects"`
	TechnicalSkills     TechnicalSkills  `json:"technical_skills"`
	Certifications      []string         `json:"certifications"`
	Languages           []string         `json:"languages"`
	NotableAchievements []string         `json:"notable_achievements"`
	RawText             string           `json:"raw_text,omitempty"`
	Confidence          float64          `json:"confidence"`
	Language            string           `json:"language,omitempty"`
}

// PersonalInfo holds the candidate's identity and contact fields.
type PersonalInfo struct {
	FullName          string `json:"full_name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Location          string `json:"location"`
	LinkedIn          string `json:"linkedin"`
	GitHub            string `json:"github"`
	Portfolio         string `json:"portfolio"`
	YearsOfExperience string `json:"years_of_experience"`
}

// WorkExperience is a single employment entry.
type WorkExperience struct {
	JobTitle         string   `json:"job_title"`
	Company          string   `json:"company"`
	Location         string   `json:"location"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	Duration         string   `json:"duration"`
	Responsibilities []string `json:"responsibilities"`
	Achievements     []string `json:"achievements"`
	Technologies     []string `json:"technologies_used"`
}

// Education is a single education entry.
type Education struct {
	School          string   `json:"school"`
	Degree          string   `json:"degree"`
	Major           string   `json:"major"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	GPA             string   `json:"gpa"`
	Honors          string   `json:"honors"`
	RelevantCourses []string `json:"relevant_courses"`
}

// Project is a single project entry.
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Role         string   `json:"role"`
	Duration     string   `json:"duration"`
	TeamSize     string   `json:"team_size"`
	Technologies []string `json:"technologies"`
	Achievements []string `json:"achievements"`
	GitHubURL    string   `json:"github_url"`
	DemoURL      string   `json:"demo_url"`
}

// Skill taxonomy categories, in display order.
const (
	SkillProgrammingLanguages = "programming_languages"
	SkillFrameworksLibraries  = "frameworks_libraries"
	SkillDatabases            = "databases"
	SkillCloudPlatforms       = "cloud_platforms"
	SkillToolsSoftware        = "tools_software"
	SkillMethodologies        = "methodologies"
	SkillSoftSkills           = "soft_skills"
)

// SkillCategories lists every category of TechnicalSkills in display order.
var SkillCategories = []string{
	SkillProgrammingLanguages,
	SkillFrameworksLibraries,
	SkillDatabases,
	SkillCloudPlatforms,
	SkillToolsSoftware,
	SkillMethodologies,
	SkillSoftSkills,
}

// TechnicalSkills is the skill taxonomy of a resume.
type TechnicalSkills struct {
	ProgrammingLanguages []string `json:"programming_languages"`
	FrameworksLibraries  []string `json:"frameworks_libraries"`
	Databases            []string `json:"databases"`
	CloudPlatforms       []string `json:"cloud_platforms"`
	ToolsSoftware        []string `json:"tools_software"`
	Methodologies        []string `json:"methodologies"`
	SoftSkills           []string `json:"soft_skills"`
}

func (s *TechnicalSkills) slot(category string) *[]string {
	switch category {
	case SkillProgrammingLanguages:
		return &s.ProgrammingLanguages
	case SkillFrameworksLibraries:
		return &s.FrameworksLibraries
	case SkillDatabases:
		return &s.Databases
	case SkillCloudPlatforms:
		return &s.CloudPlatforms
	case SkillToolsSoftware:
		return &s.ToolsSoftware
	case SkillMethodologies:
		return &s.Methodologies
	case SkillSoftSkills:
		return &s.SoftSkills
	}
	return nil
}

// Category returns the skills of one category, or nil for an unknown category.
func (s TechnicalSkills) Category(category string) []string {
	if p := s.slot(category); p != nil {
		return *p
	}
	return nil
}

// SetCategory replaces the skills of one category. Unknown categories are ignored.
func (s *TechnicalSkills) SetCategory(category string, skills []string) {
	if p := s.slot(category); p != nil {
		*p = skills
	}
}

// All returns every skill across categories in category order.
func (s TechnicalSkills) All() []string {
	var all []string
	for _, c := range SkillCategories {
		all = append(all, s.Category(c)...)
	}
	return all
}

// Count returns the total number of skills.
func (s TechnicalSkills) Count() int {
	return len(s.All())
}

// IsEmpty reports whether every field of the personal info is blank.
func (p PersonalInfo) IsEmpty() bool {
	return strings.TrimSpace(p.FullName) == "" &&
		strings.TrimSpace(p.Email) == "" &&
		strings.TrimSpace(p.Phone) == "" &&
		strings.TrimSpace(p.Location) == "" &&
		strings.TrimSpace(p.LinkedIn) == "" &&
		strings.TrimSpace(p.GitHub) == "" &&
		strings.TrimSpace(p.Portfolio) == "" &&
		strings.TrimSpace(p.YearsOfExperience) == ""
}

// Clone returns a deep copy of the record.
func (r *ResumeRecord) Clone() *ResumeRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.WorkExperience = make([]WorkExperience, len(r.WorkExperience))
	for i, w := range r.WorkExperience {
		w.Responsibilities = slices.Clone(w.Responsibilities)
		w.Achievements = slices.Clone(w.Achievements)
		w.Technologies = slices.Clone(w.Technologies)
		c.WorkExperience[i] = w
	}
	c.Education = make([]Education, len(r.Education))
	for i, e := range r.Education {
		e.RelevantCourses = slices.Clone(e.RelevantCourses)
		c.Education[i] = e
	}
	c.Projects = make([]Project, len(r.Projects))
	for i, p := range r.Projects {
		p.Technologies = slices.Clone(p.Technologies)
		p.Achievements = slices.Clone(p.Achievements)
		c.Projects[i] = p
	}
	for _, cat := range SkillCategories {
		c.TechnicalSkills.SetCategory(cat, slices.Clone(r.TechnicalSkills.Category(cat)))
	}
	c.Certifications = slices.Clone(r.Certifications)
	c.Languages = slices.Clone(r.Languages)
	c.NotableAchievements = slices.Clone(r.NotableAchievements)
	return &c
}

// Normalize replaces nil slices with empty ones so the record always
// serializes with every section present.
func (r *ResumeRecord) Normalize() {
	if r.WorkExperience == nil {
		r.WorkExperience = []WorkExperience{}
	}
	for i := range r.WorkExperience {
		w := &r.WorkExperience[i]
		w.Responsibilities = nonNil(w.Responsibilities)
		w.Achievements = nonNil(w.Achievements)
		w.Technologies = nonNil(w.Technologies)
	}
	if r.Education == nil {
		r.Education = []Education{}
	}
	for i := range r.Education {
		r.Education[i].RelevantCourses = nonNil(r.Education[i].RelevantCourses)
	}
	if r.Projects == nil {
		r.Projects = []Project{}
	}
	for i := range r.Projects {
		p := &r.Projects[i]
		p.Technologies = nonNil(p.Technologies)
		p.Achievements = nonNil(p.Achievements)
	}
	for _, cat := range SkillCategories {
		r.TechnicalSkills.SetCategory(cat, nonNil(r.TechnicalSkills.Category(cat)))
	}
	r.Certifications = nonNil(r.Certifications)
	r.Languages = nonNil(r.Languages)
	r.NotableAchievements = nonNil(r.NotableAchievements)
}

// NewEmptyRecord returns the canonical empty-but-well-formed record.
func NewEmptyRecord() *ResumeRecord {
	r := &ResumeRecord{}
	r.Normalize()
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
