package practice

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/examforge/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Scope Resolution ────────────────────────────────────

func (s *Store) GetTopic(topicNumber int, positionTrack string) (*models.Topic, error) {
	var t models.Topic
	err := s.db.QueryRow(
		`SELECT id, topic_number, position_track, title, is_active, created_at
		 FROM topics
		 WHERE topic_number = $1 AND position_track = $2 AND is_active`,
		topicNumber, positionTrack,
	).Scan(&t.ID, &t.TopicNumber, &t.PositionTrack, &t.Title, &t.IsActive, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return &t, nil
}

func (s *Store) GetScopeEntries(topicID int64) ([]models.ScopeEntry, error) {
	rows, err := s.db.Query(
		`SELECT e.id, e.topic_id, e.source_document_id, sec.section_number
		 FROM topic_scope_entries e
		 LEFT JOIN scope_entry_sections sec ON sec.scope_entry_id = e.id
		 WHERE e.topic_id = $1 AND e.is_active
		 ORDER BY e.id, sec.section_number`,
		topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("get scope entries: %w", err)
	}
	defer rows.Close()

	entryMap := make(map[int64]*models.ScopeEntry)
	var entryOrder []int64

	for rows.Next() {
		var id, tid, docID int64
		var sectionNumber *string
		if err := rows.Scan(&id, &tid, &docID, &sectionNumber); err != nil {
			return nil, fmt.Errorf("scan scope entry: %w", err)
		}

		e, ok := entryMap[id]
		if !ok {
			e = &models.ScopeEntry{ID: id, TopicID: tid, SourceDocumentID: docID}
			entryMap[id] = e
			entryOrder = append(entryOrder, id)
		}
		if sectionNumber != nil {
			e.SectionNumbers = append(e.SectionNumbers, *sectionNumber)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]models.ScopeEntry, 0, len(entryOrder))
	for _, id := range entryOrder {
		entries = append(entries, *entryMap[id])
	}
	return entries, nil
}

// ── Catalog ─────────────────────────────────────────────

const questionCols = `id, source_document_id, section_number, difficulty, is_official, is_active,
	prompt, choice_a, choice_b, choice_c, choice_d, correct_choice, explanation,
	verification_status, verified_at, created_at`

func scanQuestion(rows *sql.Rows) (models.Question, error) {
	var q models.Question
	err := rows.Scan(&q.ID, &q.SourceDocumentID, &q.SectionNumber, &q.Difficulty,
		&q.IsOfficial, &q.IsActive, &q.Prompt,
		&q.ChoiceA, &q.ChoiceB, &q.ChoiceC, &q.ChoiceD,
		&q.CorrectChoice, &q.Explanation,
		&q.VerificationStatus, &q.VerifiedAt, &q.CreatedAt)
	return q, err
}

// GetQuestionsForEntry fetches the active, servable questions for one scope
// entry. An entry with no section restriction covers the whole document.
// Questions the verification worker flagged are withheld from serving.
func (s *Store) GetQuestionsForEntry(entry models.ScopeEntry, officialOnly bool) ([]models.Question, error) {
	args := []interface{}{entry.SourceDocumentID}
	paramIdx := 2

	var filters []string
	if officialOnly {
		filters = append(filters, "AND q.is_official")
	}
	if len(entry.SectionNumbers) > 0 {
		placeholders := make([]string, len(entry.SectionNumbers))
		for i, sec := range entry.SectionNumbers {
			placeholders[i] = fmt.Sprintf("$%d", paramIdx)
			args = append(args, sec)
			paramIdx++
		}
		filters = append(filters, fmt.Sprintf("AND q.section_number IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s
		 FROM questions q
		 WHERE q.source_document_id = $1
		   AND q.is_active
		   AND q.verification_status != 'flagged'
		   %s
		 ORDER BY q.id`,
		prefixCols(questionCols, "q"), strings.Join(filters, " "))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get questions for entry: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) GetQuestionsByIDs(ids []int64) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM questions q
		 WHERE q.id IN (%s) AND q.is_active
		 ORDER BY q.id`,
		prefixCols(questionCols, "q"), strings.Join(placeholders, ","))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get questions by ids: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ── Answer Ledger (per-attempt) ─────────────────────────

// GetAnswerEvents reads the user's answered questions within one topic.
// The join goes through practice_sessions to the topic so history from other
// topics never leaks into this one's never-seen pool.
func (s *Store) GetAnswerEvents(userID int64, topicNumber int) ([]AnswerEvent, error) {
	rows, err := s.db.Query(
		`SELECT sa.question_id, sa.answered_at
		 FROM session_answers sa
		 JOIN practice_sessions ps ON ps.id = sa.session_id
		 JOIN topics t ON t.id = ps.topic_id
		 WHERE ps.user_id = $1 AND t.topic_number = $2 AND sa.answered_at IS NOT NULL`,
		userID, topicNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("get answer events: %w", err)
	}
	defer rows.Close()

	var events []AnswerEvent
	for rows.Next() {
		var ev AnswerEvent
		if err := rows.Scan(&ev.QuestionID, &ev.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ── Sessions ────────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session models.Session, questionIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO practice_sessions (id, user_id, topic_id) VALUES ($1, $2, $3)`,
		session.ID, session.UserID, session.TopicID,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	// One placeholder row per expected question. The answer save path upserts
	// on (session_id, question_order), so arrival order doesn't matter.
	for i, qid := range questionIDs {
		_, err := tx.Exec(
			`INSERT INTO session_answers (session_id, question_order, question_id, user_answer)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (session_id, question_order) DO NOTHING`,
			session.ID, i+1, qid, models.UnansweredSentinel,
		)
		if err != nil {
			return fmt.Errorf("insert placeholder answer: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetSession(sessionID string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRow(
		`SELECT id, user_id, topic_id, created_at, is_completed, completed_at,
		        recorded_score, total_questions_answered
		 FROM practice_sessions WHERE id = $1`,
		sessionID,
	).Scan(&sess.ID, &sess.UserID, &sess.TopicID, &sess.CreatedAt,
		&sess.IsCompleted, &sess.CompletedAt, &sess.RecordedScore, &sess.TotalQuestionsAnswered)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// ExpectedAnswer is one expected question of a session, with the correct
// choice attached for scoring.
type ExpectedAnswer struct {
	QuestionOrder int
	QuestionID    int64
	CorrectChoice string
}

func (s *Store) GetExpectedAnswers(sessionID string) ([]ExpectedAnswer, error) {
	rows, err := s.db.Query(
		`SELECT sa.question_order, sa.question_id, q.correct_choice
		 FROM session_answers sa
		 JOIN questions q ON q.id = sa.question_id
		 WHERE sa.session_id = $1
		 ORDER BY sa.question_order`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get expected answers: %w", err)
	}
	defer rows.Close()

	var expected []ExpectedAnswer
	for rows.Next() {
		var ea ExpectedAnswer
		if err := rows.Scan(&ea.QuestionOrder, &ea.QuestionID, &ea.CorrectChoice); err != nil {
			return nil, fmt.Errorf("scan expected answer: %w", err)
		}
		expected = append(expected, ea)
	}
	return expected, rows.Err()
}

// UpsertAnswer records an in-progress answer. Insert-or-update on the
// natural key, so a late placeholder insert and an early answer save can
// arrive in either order without duplicating or losing the answer.
func (s *Store) UpsertAnswer(sessionID string, questionOrder int, questionID int64, userAnswer string, isCorrect bool) error {
	_, err := s.db.Exec(
		`INSERT INTO session_answers (session_id, question_order, question_id, user_answer, is_correct, answered_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (session_id, question_order)
		 DO UPDATE SET user_answer = EXCLUDED.user_answer,
		               is_correct = EXCLUDED.is_correct,
		               answered_at = NOW()`,
		sessionID, questionOrder, questionID, userAnswer, isCorrect,
	)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

// ── Completion ──────────────────────────────────────────

// AnswerFinal is the settled state of one session answer at completion time.
type AnswerFinal struct {
	QuestionOrder int
	QuestionID    int64
	UserAnswer    string
	IsCorrect     bool
	Answered      bool
}

// HistoryDelta is one aggregate-ledger increment produced by a completion.
type HistoryDelta struct {
	UserID     int64
	QuestionID int64
	Correct    bool
}

// CompleteSession performs the one-way open→completed transition and all
// ledger writes in a single transaction. The session update is conditional on
// the session still being open; a concurrent completion losing that race gets
// ErrAlreadyCompleted and must not be blindly retried.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, score, answeredCount int, finals []AnswerFinal, deltas []HistoryDelta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE practice_sessions
		 SET is_completed = TRUE, completed_at = NOW(),
		     recorded_score = $2, total_questions_answered = $3
		 WHERE id = $1 AND NOT is_completed`,
		sessionID, score, answeredCount,
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete session rows: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyCompleted
	}

	for _, f := range finals {
		if f.Answered {
			_, err = tx.Exec(
				`UPDATE session_answers
				 SET user_answer = $3, is_correct = $4, answered_at = COALESCE(answered_at, NOW())
				 WHERE session_id = $1 AND question_order = $2`,
				sessionID, f.QuestionOrder, f.UserAnswer, f.IsCorrect,
			)
		} else {
			_, err = tx.Exec(
				`UPDATE session_answers
				 SET user_answer = $3, is_correct = FALSE
				 WHERE session_id = $1 AND question_order = $2`,
				sessionID, f.QuestionOrder, models.UnansweredSentinel,
			)
		}
		if err != nil {
			return fmt.Errorf("finalize answer %d: %w", f.QuestionOrder, err)
		}
	}

	for _, d := range deltas {
		correctInc := 0
		if d.Correct {
			correctInc = 1
		}
		_, err := tx.Exec(
			`INSERT INTO user_question_history
			   (user_id, question_id, total_attempts, correct_attempts, success_rate, first_attempt_at, last_attempt_at)
			 VALUES ($1, $2, 1, $3, $3 * 100, NOW(), NOW())
			 ON CONFLICT (user_id, question_id)
			 DO UPDATE SET
			   total_attempts = user_question_history.total_attempts + 1,
			   correct_attempts = user_question_history.correct_attempts + $3,
			   success_rate = ROUND((user_question_history.correct_attempts + $3) * 100.0 / (user_question_history.total_attempts + 1), 2),
			   last_attempt_at = NOW()`,
			d.UserID, d.QuestionID, correctInc,
		)
		if err != nil {
			return fmt.Errorf("upsert history for question %d: %w", d.QuestionID, err)
		}
	}

	return tx.Commit()
}

// ── Aggregate Ledger Reads ──────────────────────────────

func (s *Store) GetHistory(userID, questionID int64) (*models.QuestionHistory, error) {
	var h models.QuestionHistory
	err := s.db.QueryRow(
		`SELECT user_id, question_id, total_attempts, correct_attempts, success_rate,
		        first_attempt_at, last_attempt_at
		 FROM user_question_history
		 WHERE user_id = $1 AND question_id = $2`,
		userID, questionID,
	).Scan(&h.UserID, &h.QuestionID, &h.TotalAttempts, &h.CorrectAttempts,
		&h.SuccessRate, &h.FirstAttemptAt, &h.LastAttemptAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return &h, nil
}

func (s *Store) GetHistorySummary(userID int64) (*models.HistorySummary, error) {
	var summary models.HistorySummary
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(total_attempts), 0), COALESCE(SUM(correct_attempts), 0)
		 FROM user_question_history WHERE user_id = $1`,
		userID,
	).Scan(&summary.QuestionsAttempted, &summary.TotalAttempts, &summary.CorrectAttempts)
	if err != nil {
		return nil, fmt.Errorf("history summary: %w", err)
	}

	if summary.TotalAttempts > 0 {
		summary.OverallAccuracy = float64(summary.CorrectAttempts) / float64(summary.TotalAttempts)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM practice_sessions WHERE user_id = $1 AND is_completed`,
		userID,
	).Scan(&summary.SessionsCompleted)
	if err != nil {
		return nil, fmt.Errorf("history summary sessions: %w", err)
	}

	return &summary, nil
}

// prefixCols qualifies each column in a comma-separated list with a table alias.
func prefixCols(cols, alias string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
