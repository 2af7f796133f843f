package practice

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/examforge/backend/internal/models"
	"github.com/google/uuid"
)

// Storage is the persistence surface the service needs. *Store implements
// it; tests substitute a fake.
type Storage interface {
	GetTopic(topicNumber int, positionTrack string) (*models.Topic, error)
	GetScopeEntries(topicID int64) ([]models.ScopeEntry, error)
	GetQuestionsForEntry(entry models.ScopeEntry, officialOnly bool) ([]models.Question, error)
	GetQuestionsByIDs(ids []int64) ([]models.Question, error)
	GetAnswerEvents(userID int64, topicNumber int) ([]AnswerEvent, error)
	CreateSession(ctx context.Context, session models.Session, questionIDs []int64) error
	GetSession(sessionID string) (*models.Session, error)
	GetExpectedAnswers(sessionID string) ([]ExpectedAnswer, error)
	UpsertAnswer(sessionID string, questionOrder int, questionID int64, userAnswer string, isCorrect bool) error
	CompleteSession(ctx context.Context, sessionID string, score, answeredCount int, finals []AnswerFinal, deltas []HistoryDelta) error
	GetHistory(userID, questionID int64) (*models.QuestionHistory, error)
	GetHistorySummary(userID int64) (*models.HistorySummary, error)
}

type Service struct {
	store Storage
	dedup *DedupCache
}

func NewService(store Storage, dedup *DedupCache) *Service {
	return &Service{store: store, dedup: dedup}
}

// ── Question Selection ──────────────────────────────────

// SelectQuestions resolves the topic's scope, builds the eligible catalog,
// classifies it against the user's topic-scoped history, and picks up to
// req.Count questions. Fewer than requested is a normal outcome when the
// catalog is small.
func (s *Service) SelectQuestions(userID int64, req models.SelectQuestionsRequest) (*models.SelectQuestionsResponse, error) {
	topic, err := s.store.GetTopic(req.TopicNumber, req.PositionTrack)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, fmt.Errorf("topic %d/%s: %w", req.TopicNumber, req.PositionTrack, ErrNotFound)
	}

	entries, err := s.store.GetScopeEntries(topic.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no scope entries for topic %d/%s: %w", req.TopicNumber, req.PositionTrack, ErrNotFound)
	}

	catalog, err := s.buildCatalog(entries, req.Options.OfficialOnly)
	if err != nil {
		return nil, err
	}

	// Drop questions already served to this user/topic in the current
	// sitting but not yet visible in the ledger.
	key := SessionKey(userID, topic.ID)
	catalog = s.filterServed(key, catalog)

	events, err := s.store.GetAnswerEvents(userID, req.TopicNumber)
	if err != nil {
		return nil, err
	}

	classified := Classify(catalog, events)

	if req.Options.ExcludeRecentDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -req.Options.ExcludeRecentDays)
		var eligible []AnsweredQuestion
		for _, aq := range classified.Answered {
			if aq.LastAnsweredAt.Before(cutoff) {
				eligible = append(eligible, aq)
			}
		}
		classified.Answered = eligible
	}

	selected := Select(classified.NeverSeen, classified.Answered, req.Count, req.Options.DifficultyPreference)

	ids := make([]int64, len(selected))
	served := make([]models.ServedQuestion, len(selected))
	for i, q := range selected {
		ids[i] = q.ID
		served[i] = q.Served()
	}
	s.dedup.Reserve(key, ids)

	if len(served) < req.Count {
		log.Printf("[select] under-fill for user=%d topic=%d/%s: requested=%d returned=%d",
			userID, req.TopicNumber, req.PositionTrack, req.Count, len(served))
	}

	return &models.SelectQuestionsResponse{
		Questions: served,
		Requested: req.Count,
		Returned:  len(served),
	}, nil
}

// buildCatalog expands scope entries into the deduplicated union of their
// questions. Entries that yield nothing are fine; the catalog may simply end
// up smaller than a request.
func (s *Service) buildCatalog(entries []models.ScopeEntry, officialOnly bool) ([]models.Question, error) {
	seen := make(map[int64]bool)
	var catalog []models.Question

	for _, entry := range entries {
		questions, err := s.store.GetQuestionsForEntry(entry, officialOnly)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			if seen[q.ID] {
				continue
			}
			seen[q.ID] = true
			catalog = append(catalog, q)
		}
	}

	return catalog, nil
}

func (s *Service) filterServed(key string, catalog []models.Question) []models.Question {
	ids := make([]int64, len(catalog))
	byID := make(map[int64]models.Question, len(catalog))
	for i, q := range catalog {
		ids[i] = q.ID
		byID[q.ID] = q
	}

	kept := s.dedup.FilterUnserved(key, ids)
	if len(kept) == len(catalog) {
		return catalog
	}

	out := make([]models.Question, 0, len(kept))
	for _, id := range kept {
		out = append(out, byID[id])
	}
	return out
}

// ── Sessions ────────────────────────────────────────────

func (s *Service) StartSession(ctx context.Context, userID int64, req models.StartSessionRequest) (string, error) {
	topic, err := s.store.GetTopic(req.TopicNumber, req.PositionTrack)
	if err != nil {
		return "", err
	}
	if topic == nil {
		return "", fmt.Errorf("topic %d/%s: %w", req.TopicNumber, req.PositionTrack, ErrNotFound)
	}

	questions, err := s.store.GetQuestionsByIDs(req.QuestionIDs)
	if err != nil {
		return "", err
	}
	if len(questions) != len(req.QuestionIDs) {
		return "", fmt.Errorf("one or more questions: %w", ErrNotFound)
	}

	session := models.Session{
		ID:      uuid.NewString(),
		UserID:  userID,
		TopicID: topic.ID,
	}
	if err := s.store.CreateSession(ctx, session, req.QuestionIDs); err != nil {
		return "", err
	}

	// Belt and braces: selection already reserved these, but a session can
	// also be started from a client-side cached list.
	s.dedup.Reserve(SessionKey(userID, topic.ID), req.QuestionIDs)

	return session.ID, nil
}

// SaveAnswer records one in-progress answer. Correctness is settled here so
// the completion path only has to aggregate.
func (s *Service) SaveAnswer(userID int64, sessionID string, ans models.SubmittedAnswer) error {
	session, err := s.store.GetSession(sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if session.UserID != userID {
		return fmt.Errorf("session %s: %w", sessionID, ErrForbidden)
	}
	if session.IsCompleted {
		return fmt.Errorf("session %s: %w", sessionID, ErrAlreadyCompleted)
	}

	expected, err := s.store.GetExpectedAnswers(sessionID)
	if err != nil {
		return err
	}

	var target *ExpectedAnswer
	for i := range expected {
		if expected[i].QuestionOrder == ans.QuestionOrder {
			target = &expected[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("question order %d: %w", ans.QuestionOrder, ErrNotFound)
	}

	answer := normalizeAnswer(ans.UserAnswer)
	correct := isAnswered(answer) && answer == target.CorrectChoice

	return s.store.UpsertAnswer(sessionID, ans.QuestionOrder, target.QuestionID, answer, correct)
}

// ── Completion & Scoring ────────────────────────────────

// CompleteSession validates the submitted answers, computes the percentage
// score, and reconciles both ledgers in one transaction. The transition is
// one-way: a second call returns ErrAlreadyCompleted and leaves every ledger
// untouched.
func (s *Service) CompleteSession(ctx context.Context, userID int64, sessionID string, req models.CompleteSessionRequest) (*models.CompletionResult, error) {
	session, err := s.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrForbidden)
	}
	if session.IsCompleted {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrAlreadyCompleted)
	}

	expected, err := s.store.GetExpectedAnswers(sessionID)
	if err != nil {
		return nil, err
	}
	if len(expected) == 0 {
		return nil, fmt.Errorf("session %s has no questions: %w", sessionID, ErrNotFound)
	}

	submitted := make(map[int]string, len(req.Answers))
	for _, a := range req.Answers {
		submitted[a.QuestionOrder] = normalizeAnswer(a.UserAnswer)
	}

	answeredCount := 0
	correctCount := 0
	finals := make([]AnswerFinal, 0, len(expected))
	deltas := make([]HistoryDelta, 0, len(expected))

	for _, ea := range expected {
		answer := submitted[ea.QuestionOrder]
		answered := isAnswered(answer)

		// Unanswered questions count as incorrect for the session score but
		// leave the aggregate ledger alone: no attempt, no evidence.
		correct := answered && answer == ea.CorrectChoice

		finals = append(finals, AnswerFinal{
			QuestionOrder: ea.QuestionOrder,
			QuestionID:    ea.QuestionID,
			UserAnswer:    answer,
			IsCorrect:     correct,
			Answered:      answered,
		})

		if answered {
			answeredCount++
			if correct {
				correctCount++
			}
			deltas = append(deltas, HistoryDelta{
				UserID:     userID,
				QuestionID: ea.QuestionID,
				Correct:    correct,
			})
		}
	}

	score := 0
	if answeredCount > 0 {
		score = int(math.Round(float64(correctCount) / float64(answeredCount) * 100))
	}
	// The score is a percentage, never a raw correct count. A 6/6 session
	// records 100, not 6. Refuse to persist anything outside [0,100].
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("computed score %d for session %s: %w", score, sessionID, ErrInvariantViolation)
	}

	if err := s.store.CompleteSession(ctx, sessionID, score, answeredCount, finals, deltas); err != nil {
		return nil, err
	}

	log.Printf("[complete] session=%s user=%d score=%d answered=%d correct=%d",
		sessionID, userID, score, answeredCount, correctCount)

	return &models.CompletionResult{
		Score:         score,
		CorrectCount:  correctCount,
		AnsweredCount: answeredCount,
	}, nil
}

// ── History ─────────────────────────────────────────────

func (s *Service) GetHistory(userID, questionID int64) (*models.QuestionHistory, error) {
	return s.store.GetHistory(userID, questionID)
}

func (s *Service) GetHistorySummary(userID int64) (*models.HistorySummary, error) {
	return s.store.GetHistorySummary(userID)
}

func normalizeAnswer(answer string) string {
	answer = strings.ToUpper(strings.TrimSpace(answer))
	if answer == "" {
		return models.UnansweredSentinel
	}
	return answer
}

func isAnswered(answer string) bool {
	return answer != "" && answer != models.UnansweredSentinel
}
