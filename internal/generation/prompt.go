package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

const defaultPromptTemplate = `You are helping a Japanese learner build a vocabulary list.
For the word below, return a JSON object with exactly two string fields:
"reading" (the hiragana reading) and "meaning" (a short English gloss).
Return only the JSON object.

Word: {{.Text}}`

var promptTemplate = template.Must(template.New("fields").Parse(defaultPromptTemplate))

// BuildPrompt renders the field-generation prompt for text.
func BuildPrompt(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// ParseFields decodes a model response into GeneratedFields. Markdown code
// fences around the JSON are tolerated.
func ParseFields(raw string) (*GeneratedFields, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	if body == "" {
		return nil, fmt.Errorf("%w: empty response body", ErrInvalidResponse)
	}

	var fields GeneratedFields
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	fields.Reading = strings.TrimSpace(fields.Reading)
	fields.Meaning = strings.TrimSpace(fields.Meaning)
	if !fields.Complete() {
		return nil, fmt.Errorf("%w: reading and meaning are required", ErrInvalidResponse)
	}
	return &fields, nil
}
