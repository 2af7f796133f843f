package models

import "time"

// QuestionHistory is the aggregate ledger row for one (user, question) pair.
// It is a materialized view over session answers: only session completion
// writes it, and TotalAttempts >= CorrectAttempts >= 0 always holds.
type QuestionHistory struct {
	UserID          int64     `json:"user_id"`
	QuestionID      int64     `json:"question_id"`
	TotalAttempts   int       `json:"total_attempts"`
	CorrectAttempts int       `json:"correct_attempts"`
	SuccessRate     float64   `json:"success_rate"`
	FirstAttemptAt  time.Time `json:"first_attempt_at"`
	LastAttemptAt   time.Time `json:"last_attempt_at"`
}

type HistorySummary struct {
	QuestionsAttempted int     `json:"questions_attempted"`
	TotalAttempts      int     `json:"total_attempts"`
	CorrectAttempts    int     `json:"correct_attempts"`
	OverallAccuracy    float64 `json:"overall_accuracy"`
	SessionsCompleted  int     `json:"sessions_completed"`
}
