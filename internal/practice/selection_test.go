package practice

import (
	"testing"
	"time"

	"github.com/examforge/backend/internal/models"
)

func makeQuestions(ids ...int64) []models.Question {
	out := make([]models.Question, len(ids))
	for i, id := range ids {
		out[i] = models.Question{ID: id, Difficulty: models.DifficultyMedium, IsActive: true}
	}
	return out
}

func makeAnswered(ids ...int64) []AnsweredQuestion {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	out := make([]AnsweredQuestion, len(ids))
	for i, id := range ids {
		out[i] = AnsweredQuestion{
			Question:       models.Question{ID: id, Difficulty: models.DifficultyMedium, IsActive: true},
			LastAnsweredAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func idSet(questions []models.Question) map[int64]bool {
	s := make(map[int64]bool, len(questions))
	for _, q := range questions {
		s[q.ID] = true
	}
	return s
}

func TestSelectEnoughNeverSeen(t *testing.T) {
	// 7 unseen, 5 requested → all 5 come from the unseen pool.
	neverSeen := makeQuestions(1, 2, 3, 4, 5, 6, 7)
	answered := makeAnswered(8, 9, 10)

	got := Select(neverSeen, answered, 5, nil)

	if len(got) != 5 {
		t.Fatalf("Select returned %d questions, want 5", len(got))
	}
	unseen := idSet(neverSeen)
	for _, q := range got {
		if !unseen[q.ID] {
			t.Errorf("question %d is not in the never-seen pool", q.ID)
		}
	}
}

func TestSelectBackfillsOldestFirst(t *testing.T) {
	// 2 unseen, 5 requested → both unseen plus the 3 oldest-answered.
	neverSeen := makeQuestions(9, 10)
	answered := makeAnswered(1, 2, 3, 4, 5, 6, 7, 8)

	got := Select(neverSeen, answered, 5, nil)

	if len(got) != 5 {
		t.Fatalf("Select returned %d questions, want 5", len(got))
	}
	ids := idSet(got)
	if !ids[9] || !ids[10] {
		t.Errorf("selection missing never-seen questions 9 and 10: %v", ids)
	}
	// Backfill takes the front of the oldest-first list: questions 1, 2, 3.
	for _, want := range []int64{1, 2, 3} {
		if !ids[want] {
			t.Errorf("selection missing oldest review question %d: %v", want, ids)
		}
	}
}

func TestSelectUnderFill(t *testing.T) {
	got := Select(makeQuestions(1, 2), makeAnswered(3), 10, nil)
	if len(got) != 3 {
		t.Errorf("Select returned %d questions, want 3 (pool exhausted)", len(got))
	}
}

func TestSelectEmptyPools(t *testing.T) {
	got := Select(nil, nil, 5, nil)
	if len(got) != 0 {
		t.Errorf("Select returned %d questions from empty pools, want 0", len(got))
	}
}

func TestSelectZeroCount(t *testing.T) {
	got := Select(makeQuestions(1, 2), nil, 0, nil)
	if len(got) != 0 {
		t.Errorf("Select(count=0) returned %d questions, want 0", len(got))
	}
}

func TestSelectNoDuplicates(t *testing.T) {
	neverSeen := makeQuestions(1, 2, 3)
	answered := makeAnswered(4, 5, 6)

	got := Select(neverSeen, answered, 6, nil)

	if len(got) != 6 {
		t.Fatalf("Select returned %d questions, want 6", len(got))
	}
	if len(idSet(got)) != 6 {
		t.Errorf("selection contains duplicate question ids: %v", got)
	}
}

func TestSelectDifficultyPreferenceFirst(t *testing.T) {
	hard := models.DifficultyHard
	neverSeen := []models.Question{
		{ID: 1, Difficulty: models.DifficultyEasy},
		{ID: 2, Difficulty: models.DifficultyHard},
		{ID: 3, Difficulty: models.DifficultyHard},
		{ID: 4, Difficulty: models.DifficultyEasy},
	}

	got := Select(neverSeen, nil, 2, &hard)

	if len(got) != 2 {
		t.Fatalf("Select returned %d questions, want 2", len(got))
	}
	for _, q := range got {
		if q.Difficulty != models.DifficultyHard {
			t.Errorf("question %d has difficulty %s, want hard", q.ID, q.Difficulty)
		}
	}
}

func TestSelectDifficultyPreferenceFallsBack(t *testing.T) {
	// Only one hard question exists; the rest of the request is filled from
	// other difficulties rather than coming up short.
	hard := models.DifficultyHard
	neverSeen := []models.Question{
		{ID: 1, Difficulty: models.DifficultyEasy},
		{ID: 2, Difficulty: models.DifficultyHard},
		{ID: 3, Difficulty: models.DifficultyEasy},
	}

	got := Select(neverSeen, nil, 3, &hard)

	if len(got) != 3 {
		t.Fatalf("Select returned %d questions, want 3", len(got))
	}
	if len(idSet(got)) != 3 {
		t.Errorf("fallback re-picked a preferred question: %v", got)
	}
}
