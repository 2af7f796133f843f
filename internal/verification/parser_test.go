package verification

import (
	"testing"
)

func TestParseReviewValid(t *testing.T) {
	body := `{"selected_choice": "B", "confidence": "high", "reasoning": "The section states it directly."}`

	got, err := ParseReview(body)
	if err != nil {
		t.Fatalf("ParseReview: %v", err)
	}
	if got.SelectedChoice != "B" {
		t.Errorf("SelectedChoice = %q, want B", got.SelectedChoice)
	}
	if got.Confidence != "high" {
		t.Errorf("Confidence = %q, want high", got.Confidence)
	}
}

func TestParseReviewCodeFences(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"json fence", "```json\n{\"selected_choice\": \"C\", \"confidence\": \"medium\", \"reasoning\": \"x\"}\n```"},
		{"bare fence", "```\n{\"selected_choice\": \"C\", \"confidence\": \"medium\", \"reasoning\": \"x\"}\n```"},
		{"surrounding whitespace", "  \n{\"selected_choice\": \"C\", \"confidence\": \"medium\", \"reasoning\": \"x\"}\n  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReview(tt.body)
			if err != nil {
				t.Fatalf("ParseReview: %v", err)
			}
			if got.SelectedChoice != "C" {
				t.Errorf("SelectedChoice = %q, want C", got.SelectedChoice)
			}
		})
	}
}

func TestParseReviewNormalizesChoice(t *testing.T) {
	got, err := ParseReview(`{"selected_choice": " d ", "confidence": "LOW", "reasoning": ""}`)
	if err != nil {
		t.Fatalf("ParseReview: %v", err)
	}
	if got.SelectedChoice != "D" {
		t.Errorf("SelectedChoice = %q, want D", got.SelectedChoice)
	}
	if got.Confidence != "low" {
		t.Errorf("Confidence = %q, want low", got.Confidence)
	}
}

func TestParseReviewUnknownConfidenceDefaultsLow(t *testing.T) {
	got, err := ParseReview(`{"selected_choice": "A", "confidence": "certain", "reasoning": ""}`)
	if err != nil {
		t.Fatalf("ParseReview: %v", err)
	}
	if got.Confidence != "low" {
		t.Errorf("Confidence = %q, want low", got.Confidence)
	}
}

func TestParseReviewRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "the answer is A"},
		{"invalid choice", `{"selected_choice": "E", "confidence": "high", "reasoning": ""}`},
		{"empty choice", `{"selected_choice": "", "confidence": "high", "reasoning": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseReview(tt.body); err == nil {
				t.Errorf("ParseReview(%q) succeeded, want error", tt.body)
			}
		})
	}
}
