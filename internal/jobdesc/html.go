package jobdesc

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Board is a recognised job board.
type Board string

const (
	BoardGreenhouse Board = "greenhouse"
	BoardLever      Board = "lever"
	BoardWorkday    Board = "workday"
	BoardLinkedIn   Board = "linkedin"
	BoardGeneric    Board = "generic"
)

// DetectBoard classifies a posting URL by host.
func DetectBoard(host string) Board {
	host = strings.ToLower(host)
	switch {
	case strings.Contains(host, "greenhouse.io"):
		return BoardGreenhouse
	case strings.Contains(host, "lever.co"):
		return BoardLever
	case strings.Contains(host, "workday.com"), strings.Contains(host, "myworkdayjobs.com"):
		return BoardWorkday
	case strings.Contains(host, "linkedin.com"):
		return BoardLinkedIn
	default:
		return BoardGeneric
	}
}

var genericContent = []string{
	".job-description",
	".job-content",
	"#job-description",
	"#job-content",
	".posting-content",
	".job-details",
	"[data-testid='job-description']",
	"main",
	"article",
	".content",
	"#content",
}

// contentSelectors lists the elements that usually hold the posting body,
// most specific first.
func contentSelectors(b Board) []string {
	switch b {
	case BoardGreenhouse:
		return append([]string{".job__description.body", ".job__description", ".job-post-container"}, genericContent...)
	case BoardLever:
		return append([]string{".posting-page", ".section-wrapper.page-full-width", ".posting-description"}, genericContent...)
	case BoardWorkday:
		return append([]string{"[data-automation-id='jobDescription']", ".gwt-HTML"}, genericContent...)
	case BoardLinkedIn:
		return append([]string{".show-more-less-html__markup", ".description__text"}, genericContent...)
	default:
		return genericContent
	}
}

// noiseSelectors are removed before text extraction: page chrome,
// application forms and EEO boilerplate.
var noiseSelectors = []string{
	"nav", "footer", "header", "script", "style", "noscript", "svg",
	".ad", ".ads", ".advertisement", ".sidebar", ".popup",
	"form", "#application-form", ".application-form", ".apply-button-container",
	".voluntary-disclosure", ".eeo-statement", ".eeo-section", ".self-identification",
	".social-share", ".share-buttons",
	".cookie-banner", ".cookie-consent", ".gdpr-notice",
}

// MainText returns the readable text of a posting page. It strips page
// chrome, picks the first matching content element and falls back to body.
func MainText(html string, board Board) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(strings.Join(noiseSelectors, ", ")).Remove()

	// Block elements get a trailing newline so paragraphs and list items do
	// not run together.
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, br, div, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var content *goquery.Selection
	for _, sel := range contentSelectors(board) {
		if found := doc.Find(sel); found.Length() > 0 {
			content = found.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}
	return cleanLines(content.Text()), nil
}

// Title returns the page <title>, trimmed.
func Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func cleanLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
