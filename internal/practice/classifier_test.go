package practice

import (
	"testing"
	"time"

	"github.com/examforge/backend/internal/models"
)

func q(id int64) models.Question {
	return models.Question{ID: id, Difficulty: models.DifficultyMedium, IsActive: true}
}

func TestClassifyPartitionsCatalog(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	catalog := []models.Question{q(1), q(2), q(3), q(4)}
	events := []AnswerEvent{
		{QuestionID: 2, AnsweredAt: base},
		{QuestionID: 4, AnsweredAt: base.Add(time.Hour)},
	}

	c := Classify(catalog, events)

	if len(c.NeverSeen) != 2 {
		t.Fatalf("NeverSeen = %d questions, want 2", len(c.NeverSeen))
	}
	if c.NeverSeen[0].ID != 1 || c.NeverSeen[1].ID != 3 {
		t.Errorf("NeverSeen ids = %d, %d, want 1, 3", c.NeverSeen[0].ID, c.NeverSeen[1].ID)
	}
	if len(c.Answered) != 2 {
		t.Fatalf("Answered = %d questions, want 2", len(c.Answered))
	}
}

func TestClassifyAnsweredSortedOldestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	catalog := []models.Question{q(1), q(2), q(3)}
	events := []AnswerEvent{
		{QuestionID: 1, AnsweredAt: base.Add(2 * time.Hour)},
		{QuestionID: 2, AnsweredAt: base},
		{QuestionID: 3, AnsweredAt: base.Add(time.Hour)},
	}

	c := Classify(catalog, events)

	want := []int64{2, 3, 1}
	for i, aq := range c.Answered {
		if aq.Question.ID != want[i] {
			t.Errorf("Answered[%d] = question %d, want %d", i, aq.Question.ID, want[i])
		}
	}
}

func TestClassifyLatestTimestampWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	catalog := []models.Question{q(1), q(2)}
	// Question 1 answered twice; its most recent attempt is after question 2's.
	events := []AnswerEvent{
		{QuestionID: 1, AnsweredAt: base},
		{QuestionID: 2, AnsweredAt: base.Add(time.Hour)},
		{QuestionID: 1, AnsweredAt: base.Add(2 * time.Hour)},
	}

	c := Classify(catalog, events)

	if len(c.Answered) != 2 {
		t.Fatalf("Answered = %d questions, want 2", len(c.Answered))
	}
	if c.Answered[0].Question.ID != 2 {
		t.Errorf("oldest answered = question %d, want 2", c.Answered[0].Question.ID)
	}
	if !c.Answered[1].LastAnsweredAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("question 1 LastAnsweredAt = %v, want the later attempt", c.Answered[1].LastAnsweredAt)
	}
}

func TestClassifyIgnoresEventsOutsideCatalog(t *testing.T) {
	catalog := []models.Question{q(1)}
	events := []AnswerEvent{
		{QuestionID: 99, AnsweredAt: time.Now()},
	}

	c := Classify(catalog, events)

	if len(c.NeverSeen) != 1 || len(c.Answered) != 0 {
		t.Errorf("got NeverSeen=%d Answered=%d, want 1 and 0", len(c.NeverSeen), len(c.Answered))
	}
}

func TestClassifyEmptyHistory(t *testing.T) {
	catalog := []models.Question{q(1), q(2)}

	c := Classify(catalog, nil)

	if len(c.NeverSeen) != 2 || len(c.Answered) != 0 {
		t.Errorf("got NeverSeen=%d Answered=%d, want 2 and 0", len(c.NeverSeen), len(c.Answered))
	}
}
