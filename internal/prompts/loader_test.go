package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get(ExtractionFile, "extract-resume-en")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.Text}}")
	assert.Contains(t, prompt, "technologies_used")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(AnalysisFile, "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestGetLocalized(t *testing.T) {
	zh, err := GetLocalized(ExtractionFile, "extract-resume", "zh")
	require.NoError(t, err)
	assert.Contains(t, zh, "YAML")
	assert.Contains(t, zh, "简历文本")

	en, err := GetLocalized(ExtractionFile, "extract-resume", "en")
	require.NoError(t, err)
	assert.Contains(t, en, "JSON")

	// no language-specific variant falls back to the plain key
	soft, err := GetLocalized(ExtractionFile, "soft-skills", "zh")
	require.NoError(t, err)
	assert.Contains(t, soft, "soft_skills")

	_, err = GetLocalized(ExtractionFile, "extract-resume", "")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	out := Format("JD: {{.JobDescription}}\nResume: {{.Resume}} {{.Resume}}", map[string]string{
		"JobDescription": "Go engineer",
		"Resume":         "{{.JobDescription}}",
	})
	// values are not re-expanded
	assert.Equal(t, "JD: Go engineer\nResume: {{.JobDescription}} {{.JobDescription}}", out)

	assert.Equal(t, "unchanged {{.X}}", Format("unchanged {{.X}}", nil))
}

func TestAllPrompts_HavePlaceholders(t *testing.T) {
	for _, file := range []string{ExtractionFile, AnalysisFile} {
		keys, err := List(file)
		require.NoError(t, err)
		require.NotEmpty(t, keys)

		for _, key := range keys {
			prompt := MustGet(file, key)
			assert.True(t, strings.Contains(prompt, "{{."), "%s/%s should take input", file, key)
		}
	}
}

func TestList_Sorted(t *testing.T) {
	keys, err := List(AnalysisFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"jd-suggestions", "missing-keywords", "star-analysis"}, keys)
}
