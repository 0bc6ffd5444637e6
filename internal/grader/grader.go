// Package grader validates one player's answer sheet at a time. Graders are
// external collaborators: callers bound every call with Guard and never let a
// failure escape past the player it belongs to.
package grader

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/mroshb/word_game/internal/scoring"
	"github.com/mroshb/word_game/pkg/errors"
)

type Answer struct {
	Category string `json:"category"`
	Word     string `json:"word"`
}

type Request struct {
	Letter   string   `json:"letter"`
	Language string   `json:"language"`
	Answers  []Answer `json:"answers"`
}

type CategoryGrade struct {
	Response string `json:"response"`
	IsValid  bool   `json:"isValid"`
	Score    int    `json:"score"`
}

// Result holds the grades for the submitting player and, for graders that play
// along, a synthetic opponent's sheet.
type Result struct {
	Player   map[string]CategoryGrade `json:"player"`
	Opponent map[string]CategoryGrade `json:"opponent,omitempty"`
}

type Grader interface {
	Evaluate(ctx context.Context, req Request) (*Result, error)
}

// Guard calls g with a deadline. A blown deadline becomes GRADER_TIMEOUT; any
// other error or an empty result becomes GRADER_FAILURE.
func Guard(ctx context.Context, g Grader, timeout time.Duration, req Request) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.New(errors.ErrCodeGraderFailure, "grader panicked")}
			}
		}()
		result, err := g.Evaluate(callCtx, req)
		done <- outcome{result: result, err: err}
	}()

	// a grader that ignores its context must not hold the barrier
	select {
	case <-callCtx.Done():
		return nil, errors.Wrap(callCtx.Err(), errors.ErrCodeGraderTimeout, "grader did not answer in time")
	case out := <-done:
		if out.err != nil {
			if stderrors.Is(out.err, context.DeadlineExceeded) {
				return nil, errors.Wrap(out.err, errors.ErrCodeGraderTimeout, "grader did not answer in time")
			}
			if errors.CodeOf(out.err) == errors.ErrCodeGraderFailure {
				return nil, out.err
			}
			return nil, errors.Wrap(out.err, errors.ErrCodeGraderFailure, "grader failed")
		}
		if out.result == nil || out.result.Player == nil {
			return nil, errors.New(errors.ErrCodeGraderFailure, "grader returned no grades")
		}
		return out.result, nil
	}
}

// Grades converts the player half of a result into scoring input.
func (r *Result) Grades() map[string]scoring.Grade {
	grades := make(map[string]scoring.Grade, len(r.Player))
	for category, g := range r.Player {
		grades[category] = scoring.Grade{IsValid: g.IsValid, Score: g.Score}
	}
	return grades
}

// NewRequest builds a request covering every category, blank ones included.
func NewRequest(letter, language string, categories []string, answers map[string]string) Request {
	req := Request{Letter: letter, Language: language, Answers: make([]Answer, 0, len(categories))}
	for _, category := range categories {
		req.Answers = append(req.Answers, Answer{Category: category, Word: answers[category]})
	}
	return req
}
