package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/keywords"
	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/prompts"
	"github.com/jonathan/resume-analyzer/internal/schemas"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// maxResumeChars bounds the resume excerpt sent with job-description prompts.
const maxResumeChars = 2000

var starElements = []string{"situation", "task", "action", "result"}

// SoftSkills asks the model for the soft skills shown in text.
// Returns an empty list on any failure.
func (c *Client) SoftSkills(ctx context.Context, text string) []string {
	prompt := prompts.Format(prompts.MustGet(prompts.ExtractionFile, "soft-skills"), map[string]string{
		"Text": text,
	})

	var out struct {
		SoftSkills []string `json:"soft_skills"`
	}
	if err := c.completeJSON(ctx, "soft-skills", prompt, llm.TierLite, &out); err != nil {
		return []string{}
	}
	return keywords.MergeUnique(out.SoftSkills, nil)
}

// AnalyzeSTAR rates every experience and project entry of record against the
// STAR method. Returns an empty list on any failure.
func (c *Client) AnalyzeSTAR(ctx context.Context, record *types.ResumeRecord) []types.STARAnalysis {
	if record == nil || (len(record.WorkExperience) == 0 && len(record.Projects) == 0) {
		return []types.STARAnalysis{}
	}
	prompt := prompts.Format(prompts.MustGet(prompts.AnalysisFile, "star-analysis"), map[string]string{
		"Resume": recordJSON(record),
	})

	var out struct {
		Experiences []types.STARAnalysis `json:"experiences"`
	}
	if err := c.completeJSON(ctx, "star-analysis", prompt, llm.TierAdvanced, &out); err != nil {
		return []types.STARAnalysis{}
	}

	analyses := make([]types.STARAnalysis, 0, len(out.Experiences))
	for _, a := range out.Experiences {
		a.STARCompleteness = max(0, min(1, a.STARCompleteness))
		a.MissingElements = normalizeElements(a.MissingElements)
		if a.QuantifiedMetrics == nil {
			a.QuantifiedMetrics = []string{}
		}
		if a.ImprovementSuggestions == nil {
			a.ImprovementSuggestions = []string{}
		}
		analyses = append(analyses, a)
	}
	return analyses
}

// MissingKeywords lists important job description keywords absent from the
// resume. Returns an empty list without a job description or on failure.
func (c *Client) MissingKeywords(ctx context.Context, record *types.ResumeRecord, jobDescription string) []string {
	if strings.TrimSpace(jobDescription) == "" || record == nil {
		return []string{}
	}
	prompt := prompts.Format(prompts.MustGet(prompts.AnalysisFile, "missing-keywords"), map[string]string{
		"JobDescription": jobDescription,
		"Resume":         resumeExcerpt(record),
	})

	var out struct {
		MissingKeywords []string `json:"missing_keywords"`
	}
	if err := c.completeJSON(ctx, "missing-keywords", prompt, llm.TierLite, &out); err != nil {
		return []string{}
	}
	return keywords.MergeUnique(out.MissingKeywords, nil)
}

// Suggestions generates free-text improvement suggestions for the target job.
// Returns an empty list without a job description or on failure.
func (c *Client) Suggestions(ctx context.Context, record *types.ResumeRecord, jobDescription string) []string {
	if strings.TrimSpace(jobDescription) == "" || record == nil {
		return []string{}
	}
	prompt := prompts.Format(prompts.MustGet(prompts.AnalysisFile, "jd-suggestions"), map[string]string{
		"JobDescription": jobDescription,
		"Resume":         resumeExcerpt(record),
	})

	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := c.completeJSON(ctx, "jd-suggestions", prompt, llm.TierLite, &out); err != nil {
		return []string{}
	}
	return keywords.MergeUnique(out.Suggestions, nil)
}

// JobKeywords extracts ATS keywords from a job description. When the model
// is unavailable the dictionary matcher is used instead.
func (c *Client) JobKeywords(ctx context.Context, jobDescription string) types.JobKeywords {
	if strings.TrimSpace(jobDescription) == "" {
		return emptyJobKeywords()
	}
	prompt := llm.BuildExtractionPrompt(llm.JobKeywordsSchema(), jobDescription)

	var out types.JobKeywords
	if err := c.completeDocument(ctx, "jd-keywords", prompt, llm.TierLite, schemas.JobKeywords, &out); err != nil {
		return c.matchJobKeywords(jobDescription)
	}
	out.Technical = keywords.MergeUnique(out.Technical, nil)
	out.Soft = keywords.MergeUnique(out.Soft, nil)
	out.Industry = keywords.MergeUnique(out.Industry, nil)
	out.Certifications = keywords.MergeUnique(out.Certifications, nil)
	out.Tools = keywords.MergeUnique(out.Tools, nil)
	return out
}

// RewriteSTAR proposes a STAR rewrite of one experience entry, optionally
// tailored to a job description. Returns the zero value on failure.
func (c *Client) RewriteSTAR(ctx context.Context, experience types.WorkExperience, jobDescription string) types.STARSuggestion {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at %s\n", experience.JobTitle, experience.Company)
	for _, line := range experience.Responsibilities {
		sb.WriteString("- " + line + "\n")
	}
	for _, line := range experience.Achievements {
		sb.WriteString("- " + line + "\n")
	}
	if strings.TrimSpace(jobDescription) != "" {
		sb.WriteString("\nTarget job description:\n")
		sb.WriteString(jobDescription)
	}
	prompt := llm.BuildExtractionPrompt(llm.STARSuggestionSchema(), sb.String())

	var out types.STARSuggestion
	if err := c.completeDocument(ctx, "star-rewrite", prompt, llm.TierAdvanced, schemas.STARSuggestion, &out); err != nil {
		return types.STARSuggestion{}
	}
	out.MissingElements = normalizeElements(out.MissingElements)
	if out.QuantificationTips == nil {
		out.QuantificationTips = []string{}
	}
	return out
}

func (c *Client) completeJSON(ctx context.Context, name, prompt string, tier llm.ModelTier, out any) error {
	if c.llm == nil {
		return ErrNoModel
	}
	raw, err := c.llm.GenerateJSON(ctx, prompt, tier)
	if err == nil {
		err = json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), out)
		if err != nil {
			err = &DecodeError{Stage: "decode", Cause: err}
		}
	}
	if err != nil {
		c.log.Warn("completion fell back", "prompt", name, "error", err)
	}
	return err
}

// completeDocument decodes a JSON completion and validates it against an
// embedded schema before binding it to out.
func (c *Client) completeDocument(ctx context.Context, name, prompt string, tier llm.ModelTier, schema string, out any) error {
	if c.llm == nil {
		return ErrNoModel
	}
	raw, err := c.llm.GenerateJSON(ctx, prompt, tier)
	if err == nil {
		var doc map[string]any
		doc, err = decodeDocument(raw, true)
		if err == nil {
			err = bindDocument(schema, doc, out)
		}
	}
	if err != nil {
		c.log.Warn("completion fell back", "prompt", name, "error", err)
	}
	return err
}

func (c *Client) matchJobKeywords(jobDescription string) types.JobKeywords {
	matched := c.matcher.Match(jobDescription)
	kw := emptyJobKeywords()
	for _, cat := range []string{
		types.SkillProgrammingLanguages,
		types.SkillFrameworksLibraries,
		types.SkillDatabases,
		types.SkillCloudPlatforms,
		types.SkillMethodologies,
	} {
		kw.Technical = keywords.MergeUnique(kw.Technical, matched[cat])
	}
	kw.Tools = keywords.MergeUnique(kw.Tools, matched[types.SkillToolsSoftware])
	kw.Soft = keywords.MergeUnique(kw.Soft, matched[types.SkillSoftSkills])
	kw.Certifications = keywords.MergeUnique(kw.Certifications, keywords.ExtractCertifications(jobDescription))
	return kw
}

func emptyJobKeywords() types.JobKeywords {
	return types.JobKeywords{
		Technical:      []string{},
		Soft:           []string{},
		Industry:       []string{},
		Certifications: []string{},
		Tools:          []string{},
	}
}

// normalizeElements lowercases STAR element names and drops unknown ones.
func normalizeElements(elements []string) []string {
	out := []string{}
	for _, want := range starElements {
		for _, e := range elements {
			if strings.EqualFold(strings.TrimSpace(e), want) {
				out = append(out, want)
				break
			}
		}
	}
	return out
}

func recordJSON(record *types.ResumeRecord) string {
	c := record.Clone()
	c.RawText = ""
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func resumeExcerpt(record *types.ResumeRecord) string {
	text := record.RawText
	if strings.TrimSpace(text) == "" {
		text = recordJSON(record)
	}
	runes := []rune(text)
	if len(runes) > maxResumeChars {
		return string(runes[:maxResumeChars])
	}
	return text
}
