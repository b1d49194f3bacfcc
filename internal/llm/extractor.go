// Package llm - extractor.go builds JSON extraction prompts from a field schema.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "JobKeywords")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// JobKeywordsSchema returns the extraction schema for job description keywords.
func JobKeywordsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "JobKeywords",
		Description: `You are an expert ATS (applicant tracking system) analyst.
Extract the keywords a recruiter's ATS would search for in resumes for this job description.
Use the exact wording of the job description; keep each keyword short (1-4 words).`,
		Fields: []SchemaField{
			{Name: "technical", Type: "[\"string\"]", Description: "Programming languages, frameworks, platforms, technical concepts", Required: true},
			{Name: "soft", Type: "[\"string\"]", Description: "Soft skills such as communication or leadership", Required: true},
			{Name: "industry", Type: "[\"string\"]", Description: "Domain and industry terms", Required: true},
			{Name: "experience_level", Type: "\"string\"", Description: "junior, mid, senior, staff, or empty"},
			{Name: "certifications", Type: "[\"string\"]", Description: "Named certifications"},
			{Name: "tools", Type: "[\"string\"]", Description: "Tools and software products"},
		},
	}
}

// STARSuggestionSchema returns the schema for rewriting one experience entry
// with the Situation/Task/Action/Result method.
func STARSuggestionSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "STARSuggestion",
		Description: `You are an expert resume coach. Rewrite the experience entry below using the STAR method
(Situation, Task, Action, Result). Keep facts from the entry; never invent employers, dates or numbers.
Where a result lacks numbers, suggest what the candidate could measure instead.`,
		Fields: []SchemaField{
			{Name: "missing_elements", Type: "[\"string\"]", Description: "STAR elements absent from the entry: situation, task, action, result", Required: true},
			{Name: "suggestions", Type: "{\"situation\": \"string\", \"task\": \"string\", \"action\": \"string\", \"result\": \"string\"}", Description: "How to strengthen each element", Required: true},
			{Name: "improved_description", Type: "\"string\"", Description: "The rewritten entry", Required: true},
			{Name: "quantification_tips", Type: "[\"string\"]", Description: "Metrics the candidate could add"},
		},
	}
}
