package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/schemas"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// decodeDocument turns a model response into a JSON object. JSON is tried
// first when the response looks like JSON or JSON was requested, then YAML.
func decodeDocument(raw string, preferJSON bool) (map[string]any, error) {
	body := llm.StripCodeFence(raw)
	if body == "" {
		return nil, &DecodeError{Stage: "decode", Cause: ErrEmptyResponse}
	}

	jsonFirst := preferJSON || strings.HasPrefix(body, "{")
	if jsonFirst {
		if doc, err := decodeJSONObject(body); err == nil {
			return doc, nil
		}
	}

	doc, yamlErr := decodeYAMLObject(body)
	if yamlErr == nil {
		return doc, nil
	}

	if !jsonFirst {
		if doc, err := decodeJSONObject(body); err == nil {
			return doc, nil
		}
	}
	return nil, &DecodeError{Stage: "decode", Cause: yamlErr}
}

func decodeJSONObject(body string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(body)), &v); err != nil {
		return nil, err
	}
	doc, ok := normalizeValue(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	return doc, nil
}

func decodeYAMLObject(body string) (map[string]any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(body), &v); err != nil {
		return nil, err
	}
	doc, ok := normalizeValue(v).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", v)
	}
	return doc, nil
}

// normalizeValue converts a decoded document to JSON-compatible values:
// scalars become trimmed strings and nulls are dropped.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if n := normalizeValue(val); n != nil {
				out[k] = n
			}
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if n := normalizeValue(val); n != nil {
				out[fmt.Sprint(k)] = n
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if n := normalizeValue(val); n != nil {
				out = append(out, n)
			}
		}
		return out
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

// bindDocument validates doc against the named schema and decodes it into out.
func bindDocument(schema string, doc map[string]any, out any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return &DecodeError{Stage: "bind", Cause: err}
	}
	if err := schemas.Validate(schema, data); err != nil {
		return &DecodeError{Stage: "schema", Cause: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Stage: "bind", Cause: err}
	}
	return nil
}

// recordSections are the top-level resume sections a model may return.
var recordSections = []string{
	"personal_info",
	"work_experience",
	"education",
	"projects",
	"technical_skills",
	"certifications",
	"languages",
	"notable_achievements",
}

// entryListFields are the string-list fields of list-section entries.
var entryListFields = map[string][]string{
	"work_experience": {"responsibilities", "achievements", "technologies_used"},
	"education":       {"relevant_courses"},
	"projects":        {"technologies", "achievements"},
}

// bindRecord validates each section of doc on its own and decodes the valid
// ones into record. Invalid sections keep their zero value and are reported
// in dropped. err is set only when no section survived.
func bindRecord(doc map[string]any, record *types.ResumeRecord) (dropped *schemas.ValidationError, err error) {
	coerceRecordLists(doc)

	valid := make(map[string]any, len(recordSections))
	invalid := &schemas.ValidationError{Schema: schemas.ResumeRecord}
	for _, section := range recordSections {
		value, ok := doc[section]
		if !ok {
			continue
		}
		data, err := json.Marshal(map[string]any{section: value})
		if err != nil {
			return nil, &DecodeError{Stage: "bind", Cause: err}
		}
		if err := schemas.Validate(schemas.ResumeRecord, data); err != nil {
			var ve *schemas.ValidationError
			if !errors.As(err, &ve) {
				return nil, &DecodeError{Stage: "schema", Cause: err}
			}
			invalid.Errors = append(invalid.Errors, ve.Errors...)
			continue
		}
		valid[section] = value
	}

	if len(valid) == 0 {
		if len(invalid.Errors) > 0 {
			return nil, &DecodeError{Stage: "schema", Cause: invalid}
		}
		return nil, &DecodeError{Stage: "schema", Cause: ErrNoSections}
	}

	data, err := json.Marshal(valid)
	if err != nil {
		return nil, &DecodeError{Stage: "bind", Cause: err}
	}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, &DecodeError{Stage: "bind", Cause: err}
	}
	if len(invalid.Errors) > 0 {
		return invalid, nil
	}
	return nil, nil
}

// coerceRecordLists repairs common shape slips in model output: a single
// string where a list is expected, and a single object where a list of
// entries is expected.
func coerceRecordLists(doc map[string]any) {
	for _, key := range []string{"certifications", "languages", "notable_achievements"} {
		coerceStringList(doc, key)
	}
	if skills, ok := doc["technical_skills"].(map[string]any); ok {
		for _, cat := range types.SkillCategories {
			coerceStringList(skills, cat)
		}
	}
	for section, fields := range entryListFields {
		if entry, ok := doc[section].(map[string]any); ok {
			doc[section] = []any{entry}
		}
		entries, ok := doc[section].([]any)
		if !ok {
			continue
		}
		for _, e := range entries {
			if entry, ok := e.(map[string]any); ok {
				for _, f := range fields {
					coerceStringList(entry, f)
				}
			}
		}
	}
}

func coerceStringList(m map[string]any, key string) {
	s, ok := m[key].(string)
	if !ok {
		return
	}
	if s == "" {
		m[key] = []any{}
		return
	}
	m[key] = []any{s}
}
