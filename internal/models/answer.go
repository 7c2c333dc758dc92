package models

import (
	"fmt"
	"strings"
)

// QuestionID identifies a question by its position in the content:
// "q_<chapterIndex>_<questionIndex>". The format is stable across
// restarts so persisted ledgers can always be re-attached to content.
type QuestionID string

func NewQuestionID(chapterIndex, questionIndex int) QuestionID {
	return QuestionID(fmt.Sprintf("q_%d_%d", chapterIndex, questionIndex))
}

// Position splits the id back into (chapterIndex, questionIndex).
func (id QuestionID) Position() (chapterIndex, questionIndex int, err error) {
	if _, err = fmt.Sscanf(string(id), "q_%d_%d", &chapterIndex, &questionIndex); err != nil {
		return 0, 0, fmt.Errorf("malformed question id %q: %w", id, err)
	}
	return chapterIndex, questionIndex, nil
}

// DropPlaceholder marks a drop zone the user has not filled yet. The
// rendering layer sends it (or an empty string) for untouched positions.
const DropPlaceholder = "Drop here"

// AnswerValue is a tagged variant keyed by question type. Exactly one of
// the value fields is meaningful, selected by Type, so grading can
// dispatch exhaustively instead of inspecting an untyped payload.
type AnswerValue struct {
	Type QuestionType `json:"type"`

	// SelectedOption is the chosen option index for choice types.
	SelectedOption *int `json:"selected_option,omitempty"`

	// Text is the typed answer for fill-in-blank.
	Text string `json:"text,omitempty"`

	// DropZoneContents is the ordered drop-zone state for drag-drop.
	DropZoneContents []string `json:"drop_zone_contents,omitempty"`
}

func SelectionAnswer(index int) AnswerValue {
	return AnswerValue{Type: MultipleChoice, SelectedOption: &index}
}

func TextAnswer(text string) AnswerValue {
	return AnswerValue{Type: FillInBlank, Text: strings.TrimSpace(text)}
}

func DropAnswer(contents []string) AnswerValue {
	return AnswerValue{Type: DragDrop, DropZoneContents: contents}
}

// MatchesQuestion reports whether the value's shape is usable for the
// given question type. Choice answers are interchangeable between
// multiple-choice and reading-passage.
func (v AnswerValue) MatchesQuestion(t QuestionType) bool {
	switch t {
	case MultipleChoice, ReadingPassage:
		return v.Type.IsChoice()
	case FillInBlank:
		return v.Type == FillInBlank
	case DragDrop:
		return v.Type == DragDrop
	}
	return false
}

// Equal compares two answer values by their meaningful payload.
func (v AnswerValue) Equal(o AnswerValue) bool {
	switch {
	case v.SelectedOption != nil || o.SelectedOption != nil:
		return v.SelectedOption != nil && o.SelectedOption != nil &&
			*v.SelectedOption == *o.SelectedOption
	case v.DropZoneContents != nil || o.DropZoneContents != nil:
		if len(v.DropZoneContents) != len(o.DropZoneContents) {
			return false
		}
		for i := range v.DropZoneContents {
			if v.DropZoneContents[i] != o.DropZoneContents[i] {
				return false
			}
		}
		return true
	default:
		return v.Text == o.Text
	}
}

// AnswerRecord is one ledger entry: the submitted answer plus the
// grading outcome. A nil IsCorrect means "selected but not yet graded"
// and only ever occurs for choice types. Once IsCorrect is set the
// record is immutable.
type AnswerRecord struct {
	Answer    AnswerValue `json:"answer"`
	IsCorrect *bool       `json:"is_correct,omitempty"`
}

func (r AnswerRecord) Graded() bool {
	return r.IsCorrect != nil
}

func (r AnswerRecord) Correct() bool {
	return r.IsCorrect != nil && *r.IsCorrect
}
