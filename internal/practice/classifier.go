package practice

import (
	"sort"
	"time"

	"github.com/examforge/backend/internal/models"
)

// AnswerEvent is one answered question from the user's ledger, restricted to
// sessions of a single topic. The classifier never sees cross-topic events;
// scoping happens in the query that produces these.
type AnswerEvent struct {
	QuestionID int64
	AnsweredAt time.Time
}

// AnsweredQuestion is a catalog question annotated with the most recent time
// the user answered it.
type AnsweredQuestion struct {
	Question       models.Question
	LastAnsweredAt time.Time
}

// Classification partitions a catalog by the user's topic-scoped history.
// Answered is sorted ascending by LastAnsweredAt, so the question the user
// has not reviewed for the longest time comes first.
type Classification struct {
	NeverSeen []models.Question
	Answered  []AnsweredQuestion
}

// Classify splits the catalog into never-seen and previously-answered
// questions. When a question was answered more than once, the latest
// timestamp wins.
func Classify(catalog []models.Question, events []AnswerEvent) Classification {
	lastAnswered := make(map[int64]time.Time, len(events))
	for _, ev := range events {
		if ts, ok := lastAnswered[ev.QuestionID]; !ok || ev.AnsweredAt.After(ts) {
			lastAnswered[ev.QuestionID] = ev.AnsweredAt
		}
	}

	var c Classification
	for _, q := range catalog {
		ts, seen := lastAnswered[q.ID]
		if !seen {
			c.NeverSeen = append(c.NeverSeen, q)
			continue
		}
		c.Answered = append(c.Answered, AnsweredQuestion{Question: q, LastAnsweredAt: ts})
	}

	sort.SliceStable(c.Answered, func(i, j int) bool {
		return c.Answered[i].LastAnsweredAt.Before(c.Answered[j].LastAnsweredAt)
	})

	return c
}
