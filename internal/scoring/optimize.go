package scoring

import (
	"fmt"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/keywords"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// Optimize proposes concrete edits: one per missing job keyword in report,
// then one per work achievement without quantification.
func (e *Engine) Optimize(record *types.ResumeRecord, report types.ScoreReport) []types.OptimizationSuggestion {
	suggestions := []types.OptimizationSuggestion{}

	for _, kw := range report.MissingKeywords {
		suggestions = append(suggestions, types.OptimizationSuggestion{
			Section:       "technical_skills",
			Priority:      types.PriorityHigh,
			Type:          types.SuggestionKeywordMissing,
			SuggestedText: fmt.Sprintf("Mention %q in your skills or experience if it reflects your background", kw),
			Reason:        "The job description asks for this keyword",
		})
	}

	if record == nil {
		return suggestions
	}
	for i, w := range record.WorkExperience {
		for j, a := range w.Achievements {
			if strings.TrimSpace(a) == "" || keywords.HasQuantification(a) {
				continue
			}
			suggestions = append(suggestions, types.OptimizationSuggestion{
				Section:       fmt.Sprintf("work_experience[%d].achievements[%d]", i, j),
				Priority:      types.PriorityMedium,
				Type:          types.SuggestionQuantificationNeeded,
				CurrentText:   a,
				SuggestedText: a + " (add a number: percentage, count, time or money saved)",
				Reason:        "Achievements without numbers are less convincing",
			})
		}
	}
	return suggestions
}

// FromSTAR converts a STAR rewrite into a suggestion for section. It reports
// false when the entry is already complete or the rewrite is empty.
func FromSTAR(section, current string, s types.STARSuggestion) (types.OptimizationSuggestion, bool) {
	if len(s.MissingElements) == 0 || strings.TrimSpace(s.ImprovedDescription) == "" {
		return types.OptimizationSuggestion{}, false
	}
	return types.OptimizationSuggestion{
		Section:       section,
		Priority:      types.PriorityMedium,
		Type:          types.SuggestionSTARIncomplete,
		CurrentText:   current,
		SuggestedText: s.ImprovedDescription,
		Reason:        "Incomplete STAR description, missing: " + strings.Join(s.MissingElements, ", "),
	}, true
}
