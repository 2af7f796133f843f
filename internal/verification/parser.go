package verification

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ReviewResult struct {
	SelectedChoice string `json:"selected_choice"`
	Confidence     string `json:"confidence"`
	Reasoning      string `json:"reasoning"`
}

var validChoices = map[string]bool{"A": true, "B": true, "C": true, "D": true}
var validConfidences = map[string]bool{"high": true, "medium": true, "low": true}

func ParseReview(responseBody string) (*ReviewResult, error) {
	cleaned := stripCodeFences(responseBody)

	var result ReviewResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	result.SelectedChoice = strings.ToUpper(strings.TrimSpace(result.SelectedChoice))
	if !validChoices[result.SelectedChoice] {
		return nil, fmt.Errorf("invalid selected_choice %q", result.SelectedChoice)
	}

	result.Confidence = strings.ToLower(strings.TrimSpace(result.Confidence))
	if !validConfidences[result.Confidence] {
		result.Confidence = "low"
	}

	return &result, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
