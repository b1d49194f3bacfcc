package keywords

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type compiledKeyword struct {
	keyword string
	re      *regexp.Regexp
}

type compiledCategory struct {
	name     string
	keywords []compiledKeyword
}

// Matcher finds dictionary keywords in free text. It is safe for concurrent use.
type Matcher struct {
	categories []compiledCategory
}

// NewMatcher compiles the dictionary. Empty keywords are skipped.
func NewMatcher(dict Dictionary) *Matcher {
	m := &Matcher{categories: make([]compiledCategory, 0, len(dict))}
	for _, c := range dict {
		cc := compiledCategory{name: c.Name}
		for _, kw := range c.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			cc.keywords = append(cc.keywords, compiledKeyword{keyword: kw, re: keywordPattern(kw)})
		}
		m.categories = append(m.categories, cc)
	}
	return m
}

// DefaultMatcher returns a matcher over ResumeDictionary.
func DefaultMatcher() *Matcher {
	return NewMatcher(ResumeDictionary())
}

// keywordPattern builds a case-insensitive pattern with word boundaries on
// the edges of the keyword that are word characters, so "C++" and ".NET"
// still match next to punctuation.
func keywordPattern(kw string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)")
	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)
	if isASCIIWord(first) {
		b.WriteString(`\b`)
	}
	b.WriteString(regexp.QuoteMeta(kw))
	if isASCIIWord(last) {
		b.WriteString(`\b`)
	}
	return regexp.MustCompile(b.String())
}

// isASCIIWord mirrors the RE2 definition of \w.
func isASCIIWord(r rune) bool {
	return r < unicode.MaxASCII && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Match returns, for every category of the dictionary, the keywords found in
// text with the casing of their first occurrence in text. Each category list
// is deduplicated case-insensitively and never nil.
func (m *Matcher) Match(text string) map[string][]string {
	out := make(map[string][]string, len(m.categories))
	for _, c := range m.categories {
		found := []string{}
		seen := make(map[string]bool)
		for _, kw := range c.keywords {
			loc := kw.re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			original := text[loc[0]:loc[1]]
			key := strings.ToLower(original)
			if seen[key] {
				continue
			}
			seen[key] = true
			found = append(found, original)
		}
		out[c.name] = found
	}
	return out
}

// MatchAll returns every matched keyword across categories in dictionary order.
func (m *Matcher) MatchAll(text string) []string {
	matches := m.Match(text)
	var all []string
	seen := make(map[string]bool)
	for _, c := range m.categories {
		for _, kw := range matches[c.name] {
			key := strings.ToLower(kw)
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, kw)
		}
	}
	return all
}

// Categories returns the category names in dictionary order.
func (m *Matcher) Categories() []string {
	names := make([]string, len(m.categories))
	for i, c := range m.categories {
		names[i] = c.name
	}
	return names
}

// MergeUnique appends the values of extra that are not already present in
// base, comparing case-insensitively after trimming. Values of base keep
// their position and casing.
func MergeUnique(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}
