package verification

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/examforge/backend/internal/models"
)

// Run is one unit of verification work. Its cursor (LastQuestionID) makes an
// interrupted run resumable instead of starting over.
type Run struct {
	ID             int64      `json:"id"`
	Status         string     `json:"status"`
	LastQuestionID int64      `json:"last_question_id"`
	CheckedCount   int        `json:"checked_count"`
	FlaggedCount   int        `json:"flagged_count"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const runCols = `id, status, last_question_id, checked_count, flagged_count,
	error_message, started_at, finished_at`

func scanRun(row interface {
	Scan(dest ...interface{}) error
}) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Status, &r.LastQuestionID, &r.CheckedCount,
		&r.FlaggedCount, &r.ErrorMessage, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRun enqueues a run unless one is already pending or running. The
// WHERE NOT EXISTS check races under concurrent calls; the partial unique
// index on open runs settles it, so a duplicate-key error here means another
// caller won.
func (s *Store) CreateRun() (*Run, error) {
	row := s.db.QueryRow(
		fmt.Sprintf(`INSERT INTO verification_runs (status)
		 SELECT 'pending'
		 WHERE NOT EXISTS (
		     SELECT 1 FROM verification_runs WHERE status IN ('pending', 'running')
		 )
		 RETURNING %s`, runCols),
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, nil
		}
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// ClaimPendingRun atomically moves the oldest pending run to running.
func (s *Store) ClaimPendingRun() (*Run, error) {
	row := s.db.QueryRow(
		fmt.Sprintf(`UPDATE verification_runs SET status = 'running'
		 WHERE id = (
		     SELECT id FROM verification_runs
		     WHERE status = 'pending'
		     ORDER BY id
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING %s`, runCols),
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim run: %w", err)
	}
	return run, nil
}

func (s *Store) GetLatestRun() (*Run, error) {
	row := s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM verification_runs ORDER BY id DESC LIMIT 1`, runCols),
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	return run, nil
}

// GetUncheckedQuestionsAfter pages through unchecked questions by id.
func (s *Store) GetUncheckedQuestionsAfter(cursor int64, limit int) ([]models.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, source_document_id, section_number, difficulty, is_official, is_active,
		        prompt, choice_a, choice_b, choice_c, choice_d, correct_choice, explanation,
		        verification_status, verified_at, created_at
		 FROM questions
		 WHERE id > $1 AND is_active AND verification_status = 'unchecked'
		 ORDER BY id
		 LIMIT $2`,
		cursor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get unchecked questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.SourceDocumentID, &q.SectionNumber, &q.Difficulty,
			&q.IsOfficial, &q.IsActive, &q.Prompt,
			&q.ChoiceA, &q.ChoiceB, &q.ChoiceC, &q.ChoiceD,
			&q.CorrectChoice, &q.Explanation,
			&q.VerificationStatus, &q.VerifiedAt, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) SetQuestionVerification(questionID int64, status models.VerificationStatus) error {
	_, err := s.db.Exec(
		`UPDATE questions SET verification_status = $1, verified_at = NOW() WHERE id = $2`,
		status, questionID,
	)
	return err
}

func (s *Store) UpdateRunProgress(runID, cursor int64, checkedDelta, flaggedDelta int) error {
	_, err := s.db.Exec(
		`UPDATE verification_runs
		 SET last_question_id = $2,
		     checked_count = checked_count + $3,
		     flagged_count = flagged_count + $4
		 WHERE id = $1`,
		runID, cursor, checkedDelta, flaggedDelta,
	)
	return err
}

// ReleaseRun puts an in-budget-exhausted run back to pending with its cursor
// intact so the next invocation resumes instead of restarting.
func (s *Store) ReleaseRun(runID int64) error {
	_, err := s.db.Exec(
		`UPDATE verification_runs SET status = 'pending' WHERE id = $1`,
		runID,
	)
	return err
}

func (s *Store) CompleteRun(runID int64) error {
	_, err := s.db.Exec(
		`UPDATE verification_runs SET status = 'completed', finished_at = NOW() WHERE id = $1`,
		runID,
	)
	return err
}

func (s *Store) FailRun(runID int64, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE verification_runs SET status = 'failed', error_message = $2, finished_at = NOW() WHERE id = $1`,
		runID, errMsg,
	)
	return err
}
