package practice

import (
	"math/rand"

	"github.com/examforge/backend/internal/models"
)

// Select picks up to count questions, never-seen material first. Unseen
// questions are shuffled; review backfill keeps the classifier's
// oldest-answered-first order, which is what spaces repetition out. Returning
// fewer than count is normal when the pools run dry.
//
// With a difficulty preference, the preferred subset is drained first and the
// remainder comes from the rest of the pools. A question picked from the
// preferred subset can never be picked again by the fallback.
func Select(neverSeen []models.Question, answered []AnsweredQuestion, count int, pref *models.Difficulty) []models.Question {
	if count <= 0 {
		return nil
	}

	if pref == nil {
		return pick(neverSeen, answered, count)
	}

	result := pick(
		filterByDifficulty(neverSeen, *pref),
		filterAnsweredByDifficulty(answered, *pref),
		count,
	)
	if len(result) >= count {
		return result
	}

	chosen := make(map[int64]bool, len(result))
	for _, q := range result {
		chosen[q.ID] = true
	}

	var restSeen []models.Question
	for _, q := range neverSeen {
		if !chosen[q.ID] {
			restSeen = append(restSeen, q)
		}
	}
	var restAnswered []AnsweredQuestion
	for _, aq := range answered {
		if !chosen[aq.Question.ID] {
			restAnswered = append(restAnswered, aq)
		}
	}

	return append(result, pick(restSeen, restAnswered, count-len(result))...)
}

// pick implements the core priority rule: all unseen if supply allows,
// otherwise every unseen question plus the oldest-reviewed backfill.
func pick(neverSeen []models.Question, answered []AnsweredQuestion, count int) []models.Question {
	shuffled := make([]models.Question, len(neverSeen))
	copy(shuffled, neverSeen)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if len(shuffled) >= count {
		return shuffled[:count]
	}

	result := shuffled
	reviewCount := count - len(result)
	if reviewCount > len(answered) {
		reviewCount = len(answered)
	}
	// answered is already oldest-first; the slice stays unshuffled on purpose.
	for i := 0; i < reviewCount; i++ {
		result = append(result, answered[i].Question)
	}
	return result
}

func filterByDifficulty(questions []models.Question, d models.Difficulty) []models.Question {
	var out []models.Question
	for _, q := range questions {
		if q.Difficulty == d {
			out = append(out, q)
		}
	}
	return out
}

func filterAnsweredByDifficulty(answered []AnsweredQuestion, d models.Difficulty) []AnsweredQuestion {
	var out []AnsweredQuestion
	for _, aq := range answered {
		if aq.Question.Difficulty == d {
			out = append(out, aq)
		}
	}
	return out
}
