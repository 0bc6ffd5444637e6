package grader

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/utils"
)

// ValidWordScore is awarded per accepted dictionary answer.
const ValidWordScore = 10

// WordSource answers which of the given folded words are accepted for which
// categories in a language.
type WordSource interface {
	KnownWords(ctx context.Context, language string, words []string) (map[string][]string, error)
}

// DictionaryGrader accepts a word when it starts with the round letter and is
// listed for its category. It never plays an opponent.
type DictionaryGrader struct {
	words WordSource
}

func NewDictionaryGrader(words WordSource) *DictionaryGrader {
	return &DictionaryGrader{words: words}
}

func (g *DictionaryGrader) Evaluate(ctx context.Context, req Request) (*Result, error) {
	letter := utils.FirstLetter(req.Letter)
	if letter == "" {
		return nil, errors.New(errors.ErrCodeValidationFailed, "request has no letter")
	}

	folded := make(map[string]string, len(req.Answers))
	var lookup []string
	for _, a := range req.Answers {
		word := utils.FoldWord(a.Word)
		if utf8.RuneCountInString(word) < 2 || !strings.HasPrefix(word, letter) {
			continue
		}
		folded[a.Category] = word
		lookup = append(lookup, word)
	}

	known := map[string][]string{}
	if len(lookup) > 0 {
		var err error
		known, err = g.words.KnownWords(ctx, req.Language, lookup)
		if err != nil {
			return nil, err
		}
	}

	result := &Result{Player: make(map[string]CategoryGrade, len(req.Answers))}
	for _, a := range req.Answers {
		grade := CategoryGrade{Response: strings.TrimSpace(a.Word)}
		if word, ok := folded[a.Category]; ok && listed(known[word], a.Category) {
			grade.IsValid = true
			grade.Score = ValidWordScore
		}
		result.Player[a.Category] = grade
	}
	return result, nil
}

func listed(categories []string, category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
