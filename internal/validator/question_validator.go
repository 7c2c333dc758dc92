package validator

import (
	"fmt"
	"strings"

	"github.com/itqan-learning/progress-service/internal/models"
)

// ContentValidator checks loaded book content for structural problems
// that would make grading undefined: empty option lists, answer-key
// indices out of range, drag items missing from the key.
type ContentValidator struct{}

func NewContentValidator() *ContentValidator {
	return &ContentValidator{}
}

// ValidateBook collects every problem in the book. An empty result means
// the book is safe to serve.
func (v *ContentValidator) ValidateBook(book *models.Book) ValidationErrors {
	var errs ValidationErrors
	if book == nil || len(book.Chapters) == 0 {
		errs = append(errs, *NewValidationError("chapters", "book has no chapters", nil))
		return errs
	}
	for ci, ch := range book.Chapters {
		if strings.TrimSpace(ch.Title) == "" {
			errs = append(errs, *NewValidationError(
				fmt.Sprintf("chapters[%d].title", ci), "chapter title is empty", nil))
		}
		for qi := range ch.Questions {
			field := fmt.Sprintf("chapters[%d].questions[%d]", ci, qi)
			errs = append(errs, v.validateQuestion(field, &ch.Questions[qi])...)
		}
	}
	return errs
}

func (v *ContentValidator) validateQuestion(field string, q *models.Question) ValidationErrors {
	var errs ValidationErrors

	if !q.Type.Valid() {
		errs = append(errs, *NewValidationError(field+".type",
			fmt.Sprintf("unknown question type %q", q.Type), string(q.Type)))
		return errs
	}
	if strings.TrimSpace(q.Prompt) == "" {
		errs = append(errs, *NewValidationError(field+".question", "question prompt is empty", nil))
	}

	switch {
	case q.Type.IsChoice():
		errs = append(errs, v.validateChoice(field, q)...)
	case q.Type == models.FillInBlank:
		if len(q.Key.Texts) == 0 {
			errs = append(errs, *NewValidationError(field+".correct",
				"fill-in-blank question has no accepted answers", nil))
		}
		for i, txt := range q.Key.Texts {
			if strings.TrimSpace(txt) == "" {
				errs = append(errs, *NewValidationError(
					fmt.Sprintf("%s.correct[%d]", field, i), "accepted answer is blank", nil))
			}
		}
	case q.Type == models.DragDrop:
		errs = append(errs, v.validateDragDrop(field, q)...)
	}
	return errs
}

func (v *ContentValidator) validateChoice(field string, q *models.Question) ValidationErrors {
	var errs ValidationErrors
	if len(q.Options) < 2 {
		errs = append(errs, *NewValidationError(field+".options",
			"choice question needs at least two options", len(q.Options)))
	}
	if len(q.Key.Indices) == 0 {
		errs = append(errs, *NewValidationError(field+".correct",
			"choice question has no correct index", nil))
	}
	for _, idx := range q.Key.Indices {
		if idx < 0 || idx >= len(q.Options) {
			errs = append(errs, *NewValidationError(field+".correct",
				fmt.Sprintf("correct index %d is out of range for %d options", idx, len(q.Options)), idx))
		}
	}
	return errs
}

func (v *ContentValidator) validateDragDrop(field string, q *models.Question) ValidationErrors {
	var errs ValidationErrors
	if len(q.Key.Order) == 0 {
		errs = append(errs, *NewValidationError(field+".correct",
			"drag-drop question has no correct order", nil))
	}
	items := make(map[string]bool, len(q.Items))
	for _, item := range q.Items {
		items[item] = true
	}
	for i, want := range q.Key.Order {
		if !items[want] {
			errs = append(errs, *NewValidationError(
				fmt.Sprintf("%s.correct[%d]", field, i),
				fmt.Sprintf("correct item %q is not in the draggable items", want), want))
		}
	}
	return errs
}
