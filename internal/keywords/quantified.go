package keywords

import (
	"regexp"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/types"
)

// Quantified pattern kinds.
const (
	KindPercentage = "percentage"
	KindUsers      = "users"
	KindCurrency   = "currency"
	KindDuration   = "duration"
	KindCount      = "count"
)

// Impact types of a quantified achievement.
const (
	ImpactPerformance = "performance"
	ImpactCost        = "cost"
	ImpactRevenue     = "revenue"
	ImpactEfficiency  = "efficiency"
)

type quantPattern struct {
	kind string
	re   *regexp.Regexp
}

var quantPatterns = []quantPattern{
	{KindPercentage, regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%`)},
	{KindUsers, regexp.MustCompile(`(?i)(\d+(?:,\d+)*)\s*(?:users?|customers?|clients?)`)},
	{KindCurrency, regexp.MustCompile(`(?i)\$(\d+(?:,\d+)*(?:\.\d+)?)\s*(?:million|k|thousand)?`)},
	{KindDuration, regexp.MustCompile(`(?i)(\d+(?:,\d+)*)\s*(?:hours?|days?|weeks?|months?)`)},
	{KindCount, regexp.MustCompile(`(?i)(\d+(?:,\d+)*)\s*(?:projects?|tasks?|features?)`)},
}

// impactRules are checked in order; the first rule with a matching term wins.
var impactRules = []struct {
	impact string
	terms  []string
}{
	{ImpactCost, []string{"cost", "save", "reduce", "成本", "节省"}},
	{ImpactRevenue, []string{"revenue", "sales", "profit", "收入", "销售", "利润"}},
	{ImpactEfficiency, []string{"efficiency", "speed", "time", "效率", "速度"}},
}

// ClassifyImpact assigns an impact type to text by keyword overlap.
func ClassifyImpact(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range impactRules {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				return rule.impact
			}
		}
	}
	return ImpactPerformance
}

// ExtractQuantified returns every numeric achievement phrase in text, in
// pattern order. The impact type is judged over the whole text.
func ExtractQuantified(text string) []types.QuantifiedAchievement {
	var out []types.QuantifiedAchievement
	impact := ""
	for _, p := range quantPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if impact == "" {
				impact = ClassifyImpact(text)
			}
			out = append(out, types.QuantifiedAchievement{
				Text:       strings.TrimSpace(m[0]),
				Metric:     m[1],
				Kind:       p.kind,
				ImpactType: impact,
			})
		}
	}
	return out
}

var (
	numberPattern          = regexp.MustCompile(`\d+%|\d+\w*|\d+\.\d+`)
	quantificationKeywords = []string{
		"increased", "improved", "grew", "reduced", "saved", "optimized",
		"提升", "提高", "增长", "减少", "节省", "优化",
	}
)

// HasQuantification reports whether text contains a number, a percentage or
// a quantification verb such as "increased" or "reduced".
func HasQuantification(text string) bool {
	if numberPattern.MatchString(text) {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range quantificationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var certificationPattern = regexp.MustCompile(`(?i)(?:certified|certification|certificate)\s+(?:in\s+)?([A-Za-z ]+)`)

// ExtractCertifications finds phrases like "Certified in Cloud Security".
func ExtractCertifications(text string) []string {
	var out []string
	for _, m := range certificationPattern.FindAllStringSubmatch(text, -1) {
		if name := strings.TrimSpace(m[1]); name != "" {
			out = append(out, name)
		}
	}
	return MergeUnique(nil, out)
}
