package models

import (
	"encoding/json"
	"fmt"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	FillInBlank    QuestionType = "fill-in-blank"
	DragDrop       QuestionType = "drag-drop"
	ReadingPassage QuestionType = "reading-passage"
)

// IsChoice reports whether the type selects an option index (and therefore
// supports pre-selection before the chapter check).
func (t QuestionType) IsChoice() bool {
	return t == MultipleChoice || t == ReadingPassage
}

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, FillInBlank, DragDrop, ReadingPassage:
		return true
	}
	return false
}

// AnswerKey is the normalized form of a question's "correct" field.
// Exactly one field group is populated, matching the question type.
type AnswerKey struct {
	// Indices holds the acceptable option indices for choice types.
	// A scalar "correct" in the content file becomes a singleton.
	Indices []int `json:"indices,omitempty"`

	// Texts holds the acceptable answers for fill-in-blank, matched
	// case-insensitively against the trimmed input.
	Texts []string `json:"texts,omitempty"`

	// Order holds the exact expected drop-zone sequence for drag-drop.
	Order []string `json:"order,omitempty"`
}

type Question struct {
	Type    QuestionType `json:"type" validate:"required"`
	Prompt  string       `json:"question" validate:"required"`
	Options []string     `json:"options,omitempty"`
	Items   []string     `json:"items,omitempty"`
	Key     AnswerKey    `json:"correct"`
}

// questionJSON mirrors the content file layout, where "correct" is an
// untyped scalar or array depending on the question type.
type questionJSON struct {
	Type    QuestionType    `json:"type"`
	Prompt  string          `json:"question"`
	Options []string        `json:"options"`
	Items   []string        `json:"items"`
	Correct json.RawMessage `json:"correct"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	q.Type = raw.Type
	q.Prompt = raw.Prompt
	q.Options = raw.Options
	q.Items = raw.Items

	key, err := parseAnswerKey(raw.Type, raw.Correct)
	if err != nil {
		return err
	}
	q.Key = key
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	raw := questionJSON{
		Type:    q.Type,
		Prompt:  q.Prompt,
		Options: q.Options,
		Items:   q.Items,
	}

	var err error
	switch q.Type {
	case MultipleChoice, ReadingPassage:
		raw.Correct, err = marshalScalarOrList(q.Key.Indices)
	case FillInBlank:
		raw.Correct, err = marshalScalarOrList(q.Key.Texts)
	case DragDrop:
		raw.Correct, err = json.Marshal(q.Key.Order)
	default:
		return nil, fmt.Errorf("unknown question type %q", q.Type)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

func parseAnswerKey(t QuestionType, correct json.RawMessage) (AnswerKey, error) {
	if len(correct) == 0 {
		return AnswerKey{}, fmt.Errorf("question type %q: missing correct answer", t)
	}

	switch t {
	case MultipleChoice, ReadingPassage:
		var single int
		if err := json.Unmarshal(correct, &single); err == nil {
			return AnswerKey{Indices: []int{single}}, nil
		}
		var many []int
		if err := json.Unmarshal(correct, &many); err != nil {
			return AnswerKey{}, fmt.Errorf("question type %q: correct must be an index or index list: %w", t, err)
		}
		return AnswerKey{Indices: many}, nil

	case FillInBlank:
		var single string
		if err := json.Unmarshal(correct, &single); err == nil {
			return AnswerKey{Texts: []string{single}}, nil
		}
		var many []string
		if err := json.Unmarshal(correct, &many); err != nil {
			return AnswerKey{}, fmt.Errorf("question type %q: correct must be text or a text list: %w", t, err)
		}
		return AnswerKey{Texts: many}, nil

	case DragDrop:
		var order []string
		if err := json.Unmarshal(correct, &order); err != nil {
			return AnswerKey{}, fmt.Errorf("question type %q: correct must be an ordered text list: %w", t, err)
		}
		return AnswerKey{Order: order}, nil

	default:
		return AnswerKey{}, fmt.Errorf("unknown question type %q", t)
	}
}

// marshalScalarOrList preserves the content file convention of a bare
// scalar when only one value is acceptable.
func marshalScalarOrList[T any](values []T) (json.RawMessage, error) {
	if len(values) == 1 {
		return json.Marshal(values[0])
	}
	return json.Marshal(values)
}

// ChapterContent is the reading material shown before a chapter's questions.
type ChapterContent struct {
	Passage     string `json:"passage" validate:"required"`
	Explanation string `json:"explanation,omitempty"`
}

type Chapter struct {
	Title     string         `json:"title" validate:"required"`
	Content   ChapterContent `json:"content"`
	Questions []Question     `json:"questions" validate:"required,min=1,dive"`
}

// Book is the full content structure consumed once at startup.
type Book struct {
	Chapters []Chapter `json:"chapters" validate:"required,min=1,dive"`
}

// TotalQuestions is the fixed question count across all chapters.
func (b *Book) TotalQuestions() int {
	total := 0
	for _, ch := range b.Chapters {
		total += len(ch.Questions)
	}
	return total
}

// ChapterTitles returns the ordered chapter titles, used by the
// certificate export.
func (b *Book) ChapterTitles() []string {
	titles := make([]string, len(b.Chapters))
	for i, ch := range b.Chapters {
		titles[i] = ch.Title
	}
	return titles
}
