package verification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/examforge/backend/internal/models"
)

// RunStorage is the slice of run persistence the worker needs.
type RunStorage interface {
	ClaimPendingRun() (*Run, error)
	GetUncheckedQuestionsAfter(cursor int64, limit int) ([]models.Question, error)
	SetQuestionVerification(questionID int64, status models.VerificationStatus) error
	UpdateRunProgress(runID, cursor int64, checkedDelta, flaggedDelta int) error
	ReleaseRun(runID int64) error
	CompleteRun(runID int64) error
	FailRun(runID int64, errMsg string) error
}

// Worker sweeps unchecked questions through the review model. Each run is
// bounded by a wall-clock budget; a run that exhausts its budget is released
// back to pending with its cursor intact and picked up again on the next tick.
type Worker struct {
	store     RunStorage
	client    LLMClient
	batchSize int
	runBudget time.Duration
	interval  time.Duration
}

func NewWorker(store RunStorage, client LLMClient, batchSize int, runBudget, interval time.Duration) *Worker {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &Worker{
		store:     store,
		client:    client,
		batchSize: batchSize,
		runBudget: runBudget,
		interval:  interval,
	}
}

// Start runs the worker loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	log.Printf("[verification] worker started (interval %s, budget %s)", w.interval, w.runBudget)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[verification] worker stopped")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				log.Printf("[verification] WARN: run failed: %v", err)
			}
		}
	}
}

// RunOnce claims a pending run, if any, and works it until the question
// backlog is drained, the budget expires, or a billing error aborts it.
func (w *Worker) RunOnce(ctx context.Context) error {
	run, err := w.store.ClaimPendingRun()
	if err != nil {
		return err
	}
	if run == nil {
		return nil
	}

	log.Printf("[verification] run %d claimed (cursor %d)", run.ID, run.LastQuestionID)
	deadline := time.Now().Add(w.runBudget)
	cursor := run.LastQuestionID

	for {
		if ctx.Err() != nil {
			return w.store.ReleaseRun(run.ID)
		}
		if time.Now().After(deadline) {
			log.Printf("[verification] run %d budget exhausted, releasing at cursor %d", run.ID, cursor)
			return w.store.ReleaseRun(run.ID)
		}

		batch, err := w.store.GetUncheckedQuestionsAfter(cursor, w.batchSize)
		if err != nil {
			w.failRun(run.ID, err)
			return err
		}
		if len(batch) == 0 {
			log.Printf("[verification] run %d complete (checked %d, flagged %d)",
				run.ID, run.CheckedCount, run.FlaggedCount)
			return w.store.CompleteRun(run.ID)
		}

		checked, flagged := 0, 0
		for _, q := range batch {
			if time.Now().After(deadline) {
				break
			}
			status, err := w.reviewQuestion(ctx, q)
			if err != nil {
				if IsBillingError(err) {
					// Billing failures abort the whole run. Progress already
					// written stays; the run itself is marked failed so an
					// operator has to look at it before more spend happens.
					if pErr := w.store.UpdateRunProgress(run.ID, cursor, checked, flagged); pErr != nil {
						log.Printf("[verification] WARN: progress save failed: %v", pErr)
					}
					w.failRun(run.ID, err)
					return fmt.Errorf("billing error, run %d aborted: %w", run.ID, err)
				}
				// Transient model error: leave the question unchecked and
				// move on, it will be revisited by a later run.
				log.Printf("[verification] WARN: question %d review failed: %v", q.ID, err)
				cursor = q.ID
				continue
			}
			if err := w.store.SetQuestionVerification(q.ID, status); err != nil {
				w.failRun(run.ID, err)
				return err
			}
			cursor = q.ID
			checked++
			if status == models.VerificationFlagged {
				flagged++
			}
		}

		if err := w.store.UpdateRunProgress(run.ID, cursor, checked, flagged); err != nil {
			return fmt.Errorf("run %d progress: %w", run.ID, err)
		}
		run.CheckedCount += checked
		run.FlaggedCount += flagged
	}
}

// reviewQuestion asks the model to answer the question blind and compares its
// pick against the stored correct choice.
func (w *Worker) reviewQuestion(ctx context.Context, q models.Question) (models.VerificationStatus, error) {
	resp, err := w.client.Generate(ctx, ReviewSystemPrompt(), BuildReviewPrompt(q))
	if err != nil {
		return "", err
	}
	result, err := ParseReview(resp.Content)
	if err != nil {
		return "", fmt.Errorf("question %d: %w", q.ID, err)
	}
	if result.SelectedChoice == q.CorrectChoice {
		return models.VerificationPassed, nil
	}
	log.Printf("[verification] question %d flagged: model chose %s (confidence %s), stored answer %s",
		q.ID, result.SelectedChoice, result.Confidence, q.CorrectChoice)
	return models.VerificationFlagged, nil
}

func (w *Worker) failRun(runID int64, cause error) {
	if err := w.store.FailRun(runID, cause.Error()); err != nil {
		log.Printf("[verification] WARN: could not mark run %d failed: %v", runID, err)
	}
}
