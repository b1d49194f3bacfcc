// Package analysis turns raw resume text into structured records with a
// language model, cross-checked by dictionary keyword matching.
package analysis

import (
	"context"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-analyzer/internal/keywords"
	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/prompts"
	"github.com/jonathan/resume-analyzer/internal/schemas"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// Result is the tagged outcome of Extract. Record is always set. Err is
// informational only: it explains a fallback, or with OutcomeOK lists the
// sections that failed validation and were left empty.
type Result struct {
	Record  *types.ResumeRecord
	Outcome Outcome
	Err     error
}

// Client is the resume extraction client.
type Client struct {
	llm     llm.Client
	matcher *keywords.Matcher
	log     *logger.Logger
}

// NewClient creates an extraction client. A nil matcher uses the built-in
// resume dictionary.
func NewClient(llmClient llm.Client, matcher *keywords.Matcher, log *logger.Logger) *Client {
	if matcher == nil {
		matcher = keywords.DefaultMatcher()
	}
	return &Client{
		llm:     llmClient,
		matcher: matcher,
		log:     logger.OrNop(log),
	}
}

// Matcher returns the keyword matcher used by the client.
func (c *Client) Matcher() *keywords.Matcher {
	return c.matcher
}

// DetectLanguage returns "zh" when text contains a CJK unified ideograph.
func DetectLanguage(text string) string {
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			return types.LanguageChinese
		}
	}
	return types.LanguageEnglish
}

// Extract asks the model for a structured record while matching dictionary
// keywords concurrently, then merges both. It never returns an error; model
// or decode failures produce the fallback outcome.
func (c *Client) Extract(ctx context.Context, text string) Result {
	lang := DetectLanguage(text)

	var (
		matched  map[string][]string
		certs    []string
		record   *types.ResumeRecord
		dropped  *schemas.ValidationError
		modelErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		matched = c.matcher.Match(text)
		certs = keywords.ExtractCertifications(text)
		return nil
	})
	g.Go(func() error {
		record, dropped, modelErr = c.extractWithModel(ctx, text, lang)
		return nil
	})
	_ = g.Wait()

	outcome := OutcomeOK
	resultErr := modelErr
	if modelErr != nil {
		c.log.Warn("resume extraction fell back", "language", lang, "error", modelErr)
		outcome = OutcomeFallback
		record = types.NewEmptyRecord()
	} else if dropped != nil {
		c.log.Warn("resume sections dropped", "language", lang, "error", dropped)
		resultErr = &DecodeError{Stage: "schema", Cause: dropped}
	}

	mergeMatches(record, matched, certs)
	record.RawText = text
	record.Language = lang
	if outcome == OutcomeOK {
		record.Confidence = Confidence(record, text)
	} else {
		record.Confidence = 0
	}

	c.log.Debug("resume extracted",
		"language", lang,
		"outcome", string(outcome),
		"skills", record.TechnicalSkills.Count(),
		"work_entries", len(record.WorkExperience),
		"confidence", record.Confidence,
	)
	return Result{Record: record, Outcome: outcome, Err: resultErr}
}

// extractWithModel returns the decoded record, the validation errors of
// sections that were dropped, and a fatal error when nothing usable came back.
func (c *Client) extractWithModel(ctx context.Context, text, lang string) (*types.ResumeRecord, *schemas.ValidationError, error) {
	if c.llm == nil {
		return nil, nil, ErrNoModel
	}
	template, err := prompts.GetLocalized(prompts.ExtractionFile, "extract-resume", lang)
	if err != nil {
		return nil, nil, err
	}
	prompt := prompts.Format(template, map[string]string{"Text": text})

	var raw string
	preferJSON := lang != types.LanguageChinese
	if preferJSON {
		raw, err = c.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
	} else {
		raw, err = c.llm.GenerateContent(ctx, prompt, llm.TierStandard)
	}
	if err != nil {
		return nil, nil, err
	}

	doc, err := decodeDocument(raw, preferJSON)
	if err != nil {
		return nil, nil, err
	}
	// raw_text, confidence and language are set locally; bindRecord reads
	// only the resume sections.
	record := &types.ResumeRecord{}
	dropped, err := bindRecord(doc, record)
	if err != nil {
		return nil, nil, err
	}
	record.Normalize()
	return record, dropped, nil
}

// mergeMatches adds dictionary matches the model missed. Model values keep
// their order and casing; matched values follow.
func mergeMatches(record *types.ResumeRecord, matched map[string][]string, certs []string) {
	for _, cat := range types.SkillCategories {
		merged := keywords.MergeUnique(record.TechnicalSkills.Category(cat), matched[cat])
		record.TechnicalSkills.SetCategory(cat, merged)
	}
	record.Certifications = keywords.MergeUnique(record.Certifications, certs)
}

// Confidence scores how complete an extracted record is, in [0, 1].
func Confidence(record *types.ResumeRecord, rawText string) float64 {
	score := 0
	if notBlank(record.PersonalInfo.FullName) {
		score += 10
	}
	if notBlank(record.PersonalInfo.Email) {
		score += 10
	}
	if notBlank(record.PersonalInfo.Phone) {
		score += 10
	}
	score += min(30, 2*record.TechnicalSkills.Count())
	score += min(25, 8*len(record.WorkExperience))
	score += min(15, 7*len(record.Education))
	if utf8.RuneCountInString(rawText) > 200 {
		score += 10
	}
	return min(float64(score)/100, 1.0)
}

func notBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
