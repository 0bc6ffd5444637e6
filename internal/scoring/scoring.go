// Package scoring turns graded answers into round scores, cumulative game
// scores and the round winner. Everything here is pure.
package scoring

import (
	"sort"
	"strings"

	"github.com/mroshb/word_game/internal/models"
)

// MaxCategoryScore bounds what a single category can award.
const MaxCategoryScore = 10

// Grade is what a grader said about one category of one player's sheet.
type Grade struct {
	IsValid bool
	Score   int
}

// Outcome summarizes a round. WinnerID is empty unless exactly one player
// holds the top score and that score is positive.
type Outcome struct {
	Scores    map[string]int
	WinnerID  string
	HasWinner bool
	TopScore  int
}

// PlayerResults builds the full category map for one player. Every category
// in categories gets an entry; missing grades, blank words and invalid grades
// score zero.
func PlayerResults(categories []string, answers map[string]string, grades map[string]Grade) map[string]models.CategoryResult {
	results := make(map[string]models.CategoryResult, len(categories))
	for _, category := range categories {
		word := strings.TrimSpace(answers[category])
		grade, graded := grades[category]

		result := models.CategoryResult{Response: word}
		if word != "" && graded && grade.IsValid {
			result.IsValid = true
			result.Score = clamp(grade.Score)
		}
		results[category] = result
	}
	return results
}

// Degraded is the entry recorded when a player's sheet could not be graded.
func Degraded(categories []string, answers map[string]string) map[string]models.CategoryResult {
	return PlayerResults(categories, answers, nil)
}

func RoundScore(results map[string]models.CategoryResult) int {
	total := 0
	for _, r := range results {
		total += r.Score
	}
	return total
}

// Compute scores every player in roundResults and picks the winner.
func Compute(roundResults map[string]map[string]models.CategoryResult) Outcome {
	scores := make(map[string]int, len(roundResults))
	for playerID, results := range roundResults {
		scores[playerID] = RoundScore(results)
	}
	winner, top, ok := Winner(scores)
	return Outcome{Scores: scores, WinnerID: winner, HasWinner: ok, TopScore: top}
}

// Winner returns the player with the strictly highest score. A shared top
// score, or a top score of zero, has no winner.
func Winner(scores map[string]int) (string, int, bool) {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		best  string
		top   int
		count int
	)
	for _, id := range ids {
		s := scores[id]
		switch {
		case count == 0 || s > top:
			best, top, count = id, s, 1
		case s == top:
			count++
		}
	}
	if count != 1 || top <= 0 {
		return "", top, false
	}
	return best, top, true
}

// Accumulate returns gameScores plus scores without modifying either input.
// Zero scores still create an entry.
func Accumulate(gameScores, scores map[string]int) map[string]int {
	out := make(map[string]int, len(gameScores)+len(scores))
	for id, s := range gameScores {
		out[id] = s
	}
	for id, s := range scores {
		out[id] += s
	}
	return out
}

// ValidCount counts validly answered categories.
func ValidCount(results map[string]models.CategoryResult) int {
	n := 0
	for _, r := range results {
		if r.IsValid {
			n++
		}
	}
	return n
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxCategoryScore {
		return MaxCategoryScore
	}
	return score
}
