package models

import "time"

// Session is one practice attempt. It transitions exactly once from open to
// completed; RecordedScore and TotalQuestionsAnswered are set on completion.
type Session struct {
	ID                     string     `json:"id"`
	UserID                 int64      `json:"user_id"`
	TopicID                int64      `json:"topic_id"`
	CreatedAt              time.Time  `json:"created_at"`
	IsCompleted            bool       `json:"is_completed"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	RecordedScore          int        `json:"recorded_score"`
	TotalQuestionsAnswered int        `json:"total_questions_answered"`
}

// SessionAnswer is one row of the per-attempt ledger. Rows are created as
// placeholders when the session starts and filled in exactly once when the
// user answers; UNIQUE(session_id, question_order) makes the two phases an
// upsert rather than an insert-then-update race.
type SessionAnswer struct {
	ID            int64      `json:"id"`
	SessionID     string     `json:"session_id"`
	QuestionOrder int        `json:"question_order"`
	QuestionID    int64      `json:"question_id"`
	UserAnswer    string     `json:"user_answer"`
	IsCorrect     bool       `json:"is_correct"`
	AnsweredAt    *time.Time `json:"answered_at,omitempty"`
}

// UnansweredSentinel is the placeholder answer value written at session
// start. A submitted answer equal to it (or empty) counts as unanswered.
const UnansweredSentinel = "-"

// ── Request Types ────────────────────────────────────────

// SelectOptions are the recognized knobs on question selection. Everything
// a request can tune is enumerated here; unknown options are a client error.
type SelectOptions struct {
	DifficultyPreference *Difficulty `json:"difficulty_preference,omitempty" validate:"omitempty,oneof=easy medium hard"`
	ExcludeRecentDays    int         `json:"exclude_recent_days,omitempty" validate:"gte=0,lte=365"`
	OfficialOnly         bool        `json:"official_only,omitempty"`
}

type SelectQuestionsRequest struct {
	TopicNumber   int           `json:"topic_number" validate:"required,gte=1"`
	PositionTrack string        `json:"position_track" validate:"required"`
	Count         int           `json:"count" validate:"required,gte=1,lte=50"`
	Options       SelectOptions `json:"options"`
}

type StartSessionRequest struct {
	TopicNumber   int     `json:"topic_number" validate:"required,gte=1"`
	PositionTrack string  `json:"position_track" validate:"required"`
	QuestionIDs   []int64 `json:"question_ids" validate:"required,min=1,max=50"`
}

type SubmittedAnswer struct {
	QuestionOrder int    `json:"question_order"`
	UserAnswer    string `json:"user_answer"`
}

type CompleteSessionRequest struct {
	Answers []SubmittedAnswer `json:"answers"`
}

// ── Response Types ────────────────────────────────────────

type SelectQuestionsResponse struct {
	Questions []ServedQuestion `json:"questions"`
	Requested int              `json:"requested"`
	Returned  int              `json:"returned"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CompletionResult is the outcome of completing a session. Score is always a
// percentage in [0,100], never a raw correct count.
type CompletionResult struct {
	Score         int `json:"score"`
	CorrectCount  int `json:"correct_count"`
	AnsweredCount int `json:"answered_count"`
}
