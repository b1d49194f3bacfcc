// Package scoring computes ATS compatibility scores for structured resumes.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/keywords"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// NeutralKeywordScore is the keyword sub-score used when no job description
// is given.
const NeutralKeywordScore = 50

// Feedback thresholds. A sub-score below its threshold adds one issue and one
// paired improvement.
const (
	KeywordThreshold        = 70
	FormatThreshold         = 80
	StructureThreshold      = 80
	QuantificationThreshold = 60
)

// Engine scores resumes. It is stateless apart from its keyword matcher and
// safe for concurrent use.
type Engine struct {
	matcher *keywords.Matcher
}

// NewEngine creates a scoring engine. The matcher derives keywords from job
// description text when no explicit keywords are given; nil uses the
// built-in dictionary.
func NewEngine(matcher *keywords.Matcher) *Engine {
	if matcher == nil {
		matcher = keywords.DefaultMatcher()
	}
	return &Engine{matcher: matcher}
}

// Score computes the full report. The result depends only on its inputs.
func (e *Engine) Score(record *types.ResumeRecord, jd *types.JobDescription) types.ScoreReport {
	if record == nil {
		record = types.NewEmptyRecord()
	}

	report := types.ScoreReport{
		FormatScore:         FormatScore(record),
		StructureScore:      StructureScore(record),
		QuantificationScore: QuantificationScore(record),
		MatchedKeywords:     []string{},
		MissingKeywords:     []string{},
	}

	if jd.IsZero() {
		report.KeywordScore = NeutralKeywordScore
	} else {
		report.KeywordMatchApplied = true
		report.KeywordScore, report.MatchedKeywords, report.MissingKeywords = KeywordScore(ResumeKeywords(record), e.JobKeywords(jd))
	}

	report.OverallScore = overall(report)
	report.Issues, report.Improvements = feedback(report)
	return report
}

// JobKeywords returns the lowercased, deduplicated keywords of jd, taken from
// its explicit keyword list or, failing that, matched in its text.
func (e *Engine) JobKeywords(jd *types.JobDescription) []string {
	if jd == nil {
		return []string{}
	}
	source := jd.Keywords
	if len(source) == 0 {
		source = e.matcher.MatchAll(jd.Text)
	}
	return lowerUnique(source)
}

// ResumeKeywords collects the lowercased skills, responsibilities,
// achievements and technologies of a record.
func ResumeKeywords(record *types.ResumeRecord) []string {
	var all []string
	all = append(all, record.TechnicalSkills.All()...)
	for _, w := range record.WorkExperience {
		all = append(all, w.Responsibilities...)
		all = append(all, w.Achievements...)
		all = append(all, w.Technologies...)
	}
	for _, p := range record.Projects {
		all = append(all, p.Technologies...)
		all = append(all, p.Achievements...)
	}
	return lowerUnique(all)
}

// KeywordScore matches each job keyword against the resume keywords. A job
// keyword matches when either string contains the other.
func KeywordScore(resumeKeywords, jobKeywords []string) (score int, matched, missing []string) {
	matched, missing = []string{}, []string{}
	if len(jobKeywords) == 0 {
		return 0, matched, missing
	}
	for _, jk := range jobKeywords {
		found := false
		for _, rk := range resumeKeywords {
			if strings.Contains(rk, jk) || strings.Contains(jk, rk) {
				found = true
				break
			}
		}
		if found {
			matched = append(matched, jk)
		} else {
			missing = append(missing, jk)
		}
	}
	return len(matched) * 100 / len(jobKeywords), matched, missing
}

// FormatScore checks that the main sections and contact fields are present.
func FormatScore(record *types.ResumeRecord) int {
	score := 100
	if record.PersonalInfo.IsEmpty() {
		score -= 20
	}
	if len(record.WorkExperience) == 0 {
		score -= 20
	}
	if len(record.Education) == 0 {
		score -= 20
	}
	if blank(record.PersonalInfo.Email) {
		score -= 15
	}
	if blank(record.PersonalInfo.Phone) {
		score -= 10
	}
	return max(0, score)
}

// StructureScore checks that work entries are complete and skills are listed.
func StructureScore(record *types.ResumeRecord) int {
	score := 100
	if len(record.WorkExperience) == 0 {
		score -= 30
	}
	for _, w := range record.WorkExperience {
		if blank(w.Company) {
			score -= 10
		}
		if blank(w.JobTitle) {
			score -= 10
		}
		if len(w.Responsibilities) == 0 && len(w.Achievements) == 0 {
			score -= 15
		}
	}
	if record.TechnicalSkills.Count() == 0 {
		score -= 20
	}
	return max(0, score)
}

// QuantificationScore is the percentage of work and project achievements
// that contain numbers or quantifying words.
func QuantificationScore(record *types.ResumeRecord) int {
	total, quantified := 0, 0
	count := func(achievements []string) {
		for _, a := range achievements {
			total++
			if keywords.HasQuantification(a) {
				quantified++
			}
		}
	}
	for _, w := range record.WorkExperience {
		count(w.Achievements)
	}
	for _, p := range record.Projects {
		count(p.Achievements)
	}
	if total == 0 {
		return 0
	}
	return quantified * 100 / total
}

// overall weights the sub-scores in tenths so that truncation is exact.
func overall(r types.ScoreReport) int {
	tenths := func(w float64) int { return int(math.Round(w * 10)) }
	sum := r.KeywordScore*tenths(types.WeightKeyword) +
		r.FormatScore*tenths(types.WeightFormat) +
		r.StructureScore*tenths(types.WeightStructure) +
		r.QuantificationScore*tenths(types.WeightQuantification)
	return min(100, max(0, sum/10))
}

func feedback(r types.ScoreReport) (issues, improvements []string) {
	issues, improvements = []string{}, []string{}
	add := func(issue, improvement string) {
		issues = append(issues, issue)
		improvements = append(improvements, improvement)
	}

	if r.KeywordScore < KeywordThreshold {
		if r.KeywordMatchApplied {
			add(fmt.Sprintf("Low keyword match with the job description (%d%%)", r.KeywordScore),
				"Add skills and keywords from the target job description")
		} else {
			add("No job description given; keyword match was not evaluated",
				"Score the resume against a target job description")
		}
	}
	if r.FormatScore < FormatThreshold {
		add(fmt.Sprintf("Resume format needs work (%d%%)", r.FormatScore),
			"Complete your personal information and make sure email and phone are present")
	}
	if r.StructureScore < StructureThreshold {
		add(fmt.Sprintf("Resume structure is incomplete (%d%%)", r.StructureScore),
			"Fill in missing work experience details, responsibilities and skills")
	}
	if r.QuantificationScore < QuantificationThreshold {
		add(fmt.Sprintf("Achievements lack quantified results (%d%%)", r.QuantificationScore),
			"Add concrete numbers and percentages to your achievements")
	}
	return issues, improvements
}

func lowerUnique(values []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
