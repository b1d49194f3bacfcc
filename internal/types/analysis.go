package types

// STARAnalysis is the Situation/Task/Action/Result breakdown of one experience entry.
type STARAnalysis struct {
	Title                  string   `json:"title"`
	Situation              string   `json:"situation"`
	Task                   string   `json:"task"`
	Action                 string   `json:"action"`
	Result                 string   `json:"result"`
	STARCompleteness       float64  `json:"star_completeness"`
	MissingElements        []string `json:"missing_elements"`
	QuantifiedMetrics      []string `json:"quantified_metrics"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
}

// STARSuggestion is a rewrite proposal for an experience entry.
type STARSuggestion struct {
	Key                 string            `json:"key,omitempty"`
	MissingElements     []string          `json:"missing_elements"`
	Suggestions         map[string]string `json:"suggestions"`
	ImprovedDescription string            `json:"improved_description"`
	QuantificationTips  []string          `json:"quantification_tips"`
}

// JobKeywords are the keywords extracted from a job description.
type JobKeywords struct {
	Technical       []string `json:"technical"`
	Soft            []string `json:"soft"`
	Industry        []string `json:"industry"`
	ExperienceLevel string   `json:"experience_level"`
	Certifications  []string `json:"certifications"`
	Tools           []string `json:"tools"`
}

// All returns the flat keyword list used for matching.
func (k JobKeywords) All() []string {
	var all []string
	all = append(all, k.Technical...)
	all = append(all, k.Tools...)
	all = append(all, k.Soft...)
	all = append(all, k.Industry...)
	all = append(all, k.Certifications...)
	return all
}

// QuantifiedAchievement is a numeric phrase found in resume text.
type QuantifiedAchievement struct {
	Text       string `json:"text"`
	Metric     string `json:"metric"`
	Kind       string `json:"kind"`
	ImpactType string `json:"impact_type"`
}

// AnalysisResult is the response of a full resume analysis.
// MissingKeywords and JobSuggestions come from the model and are only set
// when a job description was given; STARAnalysis only when requested.
type AnalysisResult struct {
	Record          *ResumeRecord            `json:"record"`
	Score           ScoreReport              `json:"score"`
	Outcome         string                   `json:"outcome"`
	Warnings        []string                 `json:"warnings,omitempty"`
	Suggestions     []OptimizationSuggestion `json:"suggestions"`
	Quantified      []QuantifiedAchievement  `json:"quantified_achievements"`
	JobKeywords     *JobKeywords             `json:"job_keywords,omitempty"`
	MissingKeywords []string                 `json:"missing_keywords,omitempty"`
	JobSuggestions  []string                 `json:"job_suggestions,omitempty"`
	STARAnalysis    []STARAnalysis           `json:"star_analysis,omitempty"`
	VersionID       string                   `json:"version_id,omitempty"`
	ExtractionMode  string                   `json:"extraction_method"`
}
