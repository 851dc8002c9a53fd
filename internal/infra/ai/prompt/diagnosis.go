package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are an expert plant pathologist. You will be given a photo of a plant and optionally a short description from the grower. Identify any diseases, pests or deficiencies visible in the photo.

Requirements:
- Output must be a single JSON object (no markdown, no commentary, no code fences).
- "diagnoses" lists candidate diseases, most likely first.
- "disease" is the common name of the disease; never empty.
- "confidence" is a number between 0 and 1.
- If the plant looks healthy, return an empty "diagnoses" array.

Schema (example with empty values):
{
  "diagnoses": [
    {"disease": "<string>", "confidence": 0.0}
  ]
}`
}

// GetUserPrompt builds the text part sent alongside the photo.
func GetUserPrompt(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return "Analyze this plant photo and respond with the JSON per schema."
	}
	return fmt.Sprintf("Analyze this plant photo and respond with the JSON per schema. Grower notes: %s", description)
}

// ParseResult decodes the model answer into a validated Result.
func ParseResult(raw string) (*diagnosis.Result, error) {
	raw = stripFences(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty model response")
	}
	var out struct {
		Diagnoses []diagnosis.Diagnosis `json:"diagnoses"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	res := &diagnosis.Result{Diagnoses: out.Diagnoses}
	if res.Diagnoses == nil {
		res.Diagnoses = []diagnosis.Diagnosis{}
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("model response rejected: %w", err)
	}
	return res, nil
}

// stripFences removes ```json fences some models add despite the instructions
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
