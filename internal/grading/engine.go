// Package grading evaluates submitted answers against a question's
// correct-answer key, dispatching by question type.
package grading

import (
	"fmt"
	"strings"

	"github.com/itqan-learning/progress-service/internal/models"
)

// Result is the outcome of evaluating a single answer.
type Result struct {
	// Correct is meaningful only when Unanswered is false.
	Correct bool

	// Unanswered means the input was empty (no selection, blank text,
	// unfilled drop zone). It is a distinct outcome from incorrect so
	// callers can ask the user to finish instead of marking a miss.
	Unanswered bool
}

// Strategy evaluates one answer for one question type.
type Strategy interface {
	Evaluate(q *models.Question, v models.AnswerValue) (Result, error)
}

// Engine routes an answer to the Strategy registered for its question type.
type Engine struct {
	strategies map[models.QuestionType]Strategy
}

func NewEngine() *Engine {
	choice := choiceStrategy{}
	return &Engine{
		strategies: map[models.QuestionType]Strategy{
			models.MultipleChoice: choice,
			models.ReadingPassage: choice,
			models.FillInBlank:    textStrategy{},
			models.DragDrop:       orderStrategy{},
		},
	}
}

// Evaluate grades without touching any ledger state. A value whose shape
// does not match the question type is a caller error, not a wrong answer.
func (e *Engine) Evaluate(q *models.Question, v models.AnswerValue) (Result, error) {
	s, ok := e.strategies[q.Type]
	if !ok {
		return Result{}, fmt.Errorf("no grading strategy for question type %q", q.Type)
	}
	if !v.MatchesQuestion(q.Type) {
		return Result{}, fmt.Errorf("answer shape %q does not match question type %q", v.Type, q.Type)
	}
	return s.Evaluate(q, v)
}

type choiceStrategy struct{}

func (choiceStrategy) Evaluate(q *models.Question, v models.AnswerValue) (Result, error) {
	if v.SelectedOption == nil {
		return Result{Unanswered: true}, nil
	}
	for _, idx := range q.Key.Indices {
		if *v.SelectedOption == idx {
			return Result{Correct: true}, nil
		}
	}
	return Result{}, nil
}

type textStrategy struct{}

func (textStrategy) Evaluate(q *models.Question, v models.AnswerValue) (Result, error) {
	answer := strings.TrimSpace(v.Text)
	if answer == "" {
		return Result{Unanswered: true}, nil
	}
	for _, accepted := range q.Key.Texts {
		if strings.EqualFold(answer, accepted) {
			return Result{Correct: true}, nil
		}
	}
	return Result{}, nil
}

type orderStrategy struct{}

func (orderStrategy) Evaluate(q *models.Question, v models.AnswerValue) (Result, error) {
	contents := v.DropZoneContents
	if len(contents) != len(q.Key.Order) {
		return Result{Unanswered: true}, nil
	}
	for _, c := range contents {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" || trimmed == models.DropPlaceholder {
			return Result{Unanswered: true}, nil
		}
	}
	// Position-exact comparison: the same items in a different order are wrong.
	for i, c := range contents {
		if strings.TrimSpace(c) != q.Key.Order[i] {
			return Result{}, nil
		}
	}
	return Result{Correct: true}, nil
}
