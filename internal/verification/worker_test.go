package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/examforge/backend/internal/models"
)

// fakeRunStore implements RunStorage in memory against a fixed question set.
type fakeRunStore struct {
	run       *Run
	questions []models.Question
	statuses  map[int64]models.VerificationStatus
	released  int
}

func newFakeRunStore(questions ...models.Question) *fakeRunStore {
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return &fakeRunStore{
		run:       &Run{ID: 1, Status: RunPending},
		questions: questions,
		statuses:  make(map[int64]models.VerificationStatus),
	}
}

func (f *fakeRunStore) ClaimPendingRun() (*Run, error) {
	if f.run == nil || f.run.Status != RunPending {
		return nil, nil
	}
	f.run.Status = RunRunning
	copied := *f.run
	return &copied, nil
}

func (f *fakeRunStore) GetUncheckedQuestionsAfter(cursor int64, limit int) ([]models.Question, error) {
	var out []models.Question
	for _, q := range f.questions {
		if q.ID <= cursor {
			continue
		}
		if _, checked := f.statuses[q.ID]; checked {
			continue
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRunStore) SetQuestionVerification(questionID int64, status models.VerificationStatus) error {
	f.statuses[questionID] = status
	return nil
}

func (f *fakeRunStore) UpdateRunProgress(runID, cursor int64, checkedDelta, flaggedDelta int) error {
	f.run.LastQuestionID = cursor
	f.run.CheckedCount += checkedDelta
	f.run.FlaggedCount += flaggedDelta
	return nil
}

func (f *fakeRunStore) ReleaseRun(runID int64) error {
	f.run.Status = RunPending
	f.released++
	return nil
}

func (f *fakeRunStore) CompleteRun(runID int64) error {
	f.run.Status = RunCompleted
	return nil
}

func (f *fakeRunStore) FailRun(runID int64, errMsg string) error {
	f.run.Status = RunFailed
	f.run.ErrorMessage = &errMsg
	return nil
}

// scriptClient answers every question with a fixed choice, or fails.
type scriptClient struct {
	choice string
	err    error
	calls  int
}

func (c *scriptClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &LLMResponse{
		Content: fmt.Sprintf(`{"selected_choice": %q, "confidence": "high", "reasoning": "test"}`, c.choice),
	}, nil
}

func question(id int64, correct string) models.Question {
	return models.Question{
		ID:                 id,
		CorrectChoice:      correct,
		IsActive:           true,
		VerificationStatus: models.VerificationUnchecked,
	}
}

func TestRunOncePassesAndFlags(t *testing.T) {
	store := newFakeRunStore(
		question(1, "A"),
		question(2, "B"),
		question(3, "A"),
	)
	client := &scriptClient{choice: "A"}
	w := NewWorker(store, client, 2, time.Minute, time.Minute)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if store.run.Status != RunCompleted {
		t.Errorf("run status = %s, want completed", store.run.Status)
	}
	if store.statuses[1] != models.VerificationPassed {
		t.Errorf("question 1 = %s, want passed", store.statuses[1])
	}
	if store.statuses[2] != models.VerificationFlagged {
		t.Errorf("question 2 = %s, want flagged (model disagreed)", store.statuses[2])
	}
	if store.statuses[3] != models.VerificationPassed {
		t.Errorf("question 3 = %s, want passed", store.statuses[3])
	}
	if store.run.CheckedCount != 3 || store.run.FlaggedCount != 1 {
		t.Errorf("counts = %d checked / %d flagged, want 3 / 1", store.run.CheckedCount, store.run.FlaggedCount)
	}
}

func TestRunOnceNoPendingRun(t *testing.T) {
	store := newFakeRunStore(question(1, "A"))
	store.run.Status = RunCompleted
	client := &scriptClient{choice: "A"}
	w := NewWorker(store, client, 2, time.Minute, time.Minute)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times with no pending run, want 0", client.calls)
	}
}

func TestRunOnceBudgetExhaustedReleasesWithCursor(t *testing.T) {
	store := newFakeRunStore(question(1, "A"), question(2, "A"))
	store.run.LastQuestionID = 1
	client := &scriptClient{choice: "A"}

	// Budget already expired: the run must go back to pending untouched.
	w := NewWorker(store, client, 2, -time.Second, time.Minute)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if store.run.Status != RunPending {
		t.Fatalf("run status = %s, want pending after budget exhaustion", store.run.Status)
	}
	if store.run.LastQuestionID != 1 {
		t.Errorf("cursor = %d, want 1 retained across the pause", store.run.LastQuestionID)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times inside an expired budget, want 0", client.calls)
	}

	// Next invocation resumes from the cursor and finishes the backlog.
	w = NewWorker(store, client, 2, time.Minute, time.Minute)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("resumed RunOnce: %v", err)
	}
	if store.run.Status != RunCompleted {
		t.Errorf("run status = %s, want completed after resume", store.run.Status)
	}
	if _, checked := store.statuses[1]; checked {
		t.Errorf("question 1 re-checked after resume, cursor should have skipped it")
	}
	if store.statuses[2] != models.VerificationPassed {
		t.Errorf("question 2 = %s, want passed", store.statuses[2])
	}
}

func TestRunOnceBillingErrorAbortsRun(t *testing.T) {
	store := newFakeRunStore(question(1, "A"), question(2, "A"))
	client := &scriptClient{err: errors.New("your credit balance is too low")}
	w := NewWorker(store, client, 2, time.Minute, time.Minute)

	err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatal("RunOnce succeeded, want billing error")
	}
	if !strings.Contains(err.Error(), "billing") {
		t.Errorf("err = %v, want a billing abort", err)
	}

	if store.run.Status != RunFailed {
		t.Errorf("run status = %s, want failed", store.run.Status)
	}
	if store.run.ErrorMessage == nil {
		t.Error("ErrorMessage not recorded on billing failure")
	}
	if client.calls != 1 {
		t.Errorf("client called %d times, want 1 (abort on first billing error)", client.calls)
	}
	if len(store.statuses) != 0 {
		t.Errorf("question statuses written during aborted run: %v", store.statuses)
	}
}

func TestRunOnceTransientErrorSkipsQuestion(t *testing.T) {
	store := newFakeRunStore(question(1, "A"))
	client := &scriptClient{err: errors.New("upstream timeout")}
	w := NewWorker(store, client, 2, time.Minute, time.Minute)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	// A transient failure leaves the question unchecked for a later run but
	// does not fail this one.
	if store.run.Status != RunCompleted {
		t.Errorf("run status = %s, want completed", store.run.Status)
	}
	if _, checked := store.statuses[1]; checked {
		t.Errorf("question 1 got a status despite the review failing")
	}
}
