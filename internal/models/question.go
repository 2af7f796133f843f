package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

type VerificationStatus string

const (
	VerificationUnchecked VerificationStatus = "unchecked"
	VerificationPassed    VerificationStatus = "passed"
	VerificationFlagged   VerificationStatus = "flagged"
)

// Question is a single-choice practice question sourced from one section of
// a source document. Immutable once created except for soft deactivation and
// the verification fields, which belong to the verification worker.
type Question struct {
	ID                 int64              `json:"id"`
	SourceDocumentID   int64              `json:"source_document_id"`
	SectionNumber      string             `json:"section_number"`
	Difficulty         Difficulty         `json:"difficulty"`
	IsOfficial         bool               `json:"is_official"`
	IsActive           bool               `json:"is_active"`
	Prompt             string             `json:"prompt"`
	ChoiceA            string             `json:"choice_a"`
	ChoiceB            string             `json:"choice_b"`
	ChoiceC            string             `json:"choice_c"`
	ChoiceD            string             `json:"choice_d"`
	CorrectChoice      string             `json:"-"`
	Explanation        string             `json:"-"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// ServedQuestion is the answer-free view handed to a client during a session.
type ServedQuestion struct {
	ID            int64      `json:"id"`
	SectionNumber string     `json:"section_number"`
	Difficulty    Difficulty `json:"difficulty"`
	IsOfficial    bool       `json:"is_official"`
	Prompt        string     `json:"prompt"`
	ChoiceA       string     `json:"choice_a"`
	ChoiceB       string     `json:"choice_b"`
	ChoiceC       string     `json:"choice_c"`
	ChoiceD       string     `json:"choice_d"`
}

func (q Question) Served() ServedQuestion {
	return ServedQuestion{
		ID:            q.ID,
		SectionNumber: q.SectionNumber,
		Difficulty:    q.Difficulty,
		IsOfficial:    q.IsOfficial,
		Prompt:        q.Prompt,
		ChoiceA:       q.ChoiceA,
		ChoiceB:       q.ChoiceB,
		ChoiceC:       q.ChoiceC,
		ChoiceD:       q.ChoiceD,
	}
}
