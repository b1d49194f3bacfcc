package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemas_ValidJSON(t *testing.T) {
	names := Names()
	assert.ElementsMatch(t, []string{ResumeRecord, JobKeywords, STARSuggestion, ScoreReport}, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			src, err := Source(name)
			require.NoError(t, err)

			var v any
			assert.NoError(t, json.Unmarshal([]byte(src), &v), "schema should be valid JSON")

			_, err = load(name)
			assert.NoError(t, err, "schema should compile")
		})
	}
}

func TestValidate_ResumeRecord(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		wantError bool
	}{
		{
			name:     "full record",
			document: `{"personal_info": {"full_name": "Ada Lovelace", "email": "ada@example.com"}, "work_experience": [{"job_title": "Engineer", "company": "Analytical", "achievements": ["Cut costs 20%"]}], "technical_skills": {"programming_languages": ["Go"]}}`,
		},
		{
			name:     "only skills",
			document: `{"technical_skills": {"databases": []}}`,
		},
		{
			name:     "only list sections",
			document: `{"certifications": ["AWS Solutions Architect"], "languages": ["English"]}`,
		},
		{
			name:     "every section is optional",
			document: `{}`,
		},
		{
			name:      "string where list expected",
			document:  `{"languages": "English"}`,
			wantError: true,
		},
		{
			name:      "number where string expected",
			document:  `{"personal_info": {"full_name": 42}}`,
			wantError: true,
		},
		{
			name:      "object list items",
			document:  `{"work_experience": [{"achievements": [{"text": "x"}]}]}`,
			wantError: true,
		},
		{
			name:      "confidence out of range",
			document:  `{"personal_info": {}, "confidence": 1.5}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(ResumeRecord, []byte(tt.document))
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			validationErr, ok := err.(*ValidationError)
			require.True(t, ok, "error should be ValidationError, got %T", err)
			assert.Equal(t, ResumeRecord, validationErr.Schema)
			assert.NotEmpty(t, validationErr.Errors)
		})
	}
}

func TestValidate_ScoreReportAllowsNullLists(t *testing.T) {
	doc := `{"overall_score": 72, "keyword_score": 50, "format_score": 100, "structure_score": 80, "quantification_score": 50, "issues": null}`
	assert.NoError(t, Validate(ScoreReport, []byte(doc)))

	doc = `{"overall_score": 120, "keyword_score": 50, "format_score": 100, "structure_score": 80, "quantification_score": 50}`
	assert.Error(t, Validate(ScoreReport, []byte(doc)))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("missing", []byte(`{}`))
	require.Error(t, err)

	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "failed to load schema missing")
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(JobKeywords, []byte("{ invalid json }"))
	assert.Error(t, err)
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	assert.NoError(t, ValidateJSONString(schemaContent, `{"name": "test"}`))
}

func TestValidateJSONString_NestedField(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["person"],
		"properties": {
			"person": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string"}
				}
			}
		}
	}`

	err := ValidateJSONString(schemaContent, `{"person": {}}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	require.NotEmpty(t, validationErr.Errors)
	assert.Contains(t, validationErr.Errors[0].Field, "person")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Schema: JobKeywords,
		Errors: []FieldError{
			{Field: "technical", Message: "is required"},
			{Field: "tools", Message: "must be an array"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "validation failed against job_keywords")
	assert.Contains(t, msg, "1. technical: is required")
	assert.Contains(t, msg, "2. tools")
}
