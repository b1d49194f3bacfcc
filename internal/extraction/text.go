package extraction

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// readPlainText reads a text file, dropping byte sequences that are not valid UTF-8.
func readPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	text := strings.ToValidUTF8(string(data), "")
	return strings.TrimPrefix(text, "\ufeff"), nil
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	// Letters, digits, whitespace and the punctuation that carries meaning in
	// resumes (emails, phone numbers, C++/C#, percentages, money) survive.
	noiseChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-@.(),/+#%$:&'_]`)
)

// Preprocess normalizes extracted text before it is sent to the model:
// noise symbols are removed and whitespace runs collapse to single spaces.
func Preprocess(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = noiseChars.ReplaceAllString(text, " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
