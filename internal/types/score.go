package types

// Score weights for the overall ATS score.
const (
	WeightKeyword        = 0.4
	WeightFormat         = 0.2
	WeightStructure      = 0.2
	WeightQuantification = 0.2
)

// ScoreReport is the ATS compatibility score of a resume.
// Reports are recomputed and replaced wholesale, never patched.
type ScoreReport struct {
	OverallScore        int      `json:"overall_score"`
	KeywordScore        int      `json:"keyword_score"`
	FormatScore         int      `json:"format_score"`
	StructureScore      int      `json:"structure_score"`
	QuantificationScore int      `json:"quantification_score"`
	KeywordMatchApplied bool     `json:"keyword_match_applied"`
	MatchedKeywords     []string `json:"matched_keywords"`
	MissingKeywords     []string `json:"missing_keywords"`
	Issues              []string `json:"issues"`
	Improvements        []string `json:"improvements"`
}

// JobDescription is a scoring target. Keywords, when set, take precedence
// over keywords derived from Text.
type JobDescription struct {
	Text     string   `json:"text"`
	Keywords []string `json:"keywords,omitempty"`
}

// IsZero reports whether the job description carries no information.
func (j *JobDescription) IsZero() bool {
	return j == nil || (len(j.Keywords) == 0 && j.Text == "")
}

// Optimization suggestion priorities and types.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"

	SuggestionKeywordMissing       = "keyword_missing"
	SuggestionSTARIncomplete       = "star_incomplete"
	SuggestionQuantificationNeeded = "quantification_needed"
)

// OptimizationSuggestion is one concrete edit proposed for a resume.
type OptimizationSuggestion struct {
	Section       string `json:"section"`
	Priority      string `json:"priority"`
	Type          string `json:"type"`
	CurrentText   string `json:"current_text"`
	SuggestedText string `json:"suggested_text"`
	Reason        string `json:"reason"`
}
