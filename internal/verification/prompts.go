package verification

import (
	"fmt"

	"github.com/examforge/backend/internal/models"
)

func ReviewSystemPrompt() string {
	return `You are an exam question reviewer. You are given a single-choice practice question with four choices labeled A through D. Answer the question yourself, independently, without being told which choice is recorded as correct.

Respond with ONLY a JSON object in this exact format:
{"selected_choice": "A", "confidence": "high", "reasoning": "one or two sentences"}

"selected_choice" must be one of A, B, C, D. "confidence" must be one of high, medium, low.`
}

func BuildReviewPrompt(q models.Question) string {
	return fmt.Sprintf(`Question (from document %d, section %s):

%s

A. %s
B. %s
C. %s
D. %s

Which choice is correct?`,
		q.SourceDocumentID, q.SectionNumber, q.Prompt,
		q.ChoiceA, q.ChoiceB, q.ChoiceC, q.ChoiceD)
}
