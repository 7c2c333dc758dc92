package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itqan-learning/progress-service/internal/models"
)

func validBook() *models.Book {
	return &models.Book{
		Chapters: []models.Chapter{
			{
				Title: "Chapter 1: Basics",
				Questions: []models.Question{
					{
						Type:    models.MultipleChoice,
						Prompt:  "Pick the noun",
						Options: []string{"run", "dog", "fast"},
						Key:     models.AnswerKey{Indices: []int{1}},
					},
					{
						Type:   models.FillInBlank,
						Prompt: "The sky is ___",
						Key:    models.AnswerKey{Texts: []string{"blue"}},
					},
					{
						Type:   models.DragDrop,
						Prompt: "Order the words",
						Items:  []string{"dog", "cat"},
						Key:    models.AnswerKey{Order: []string{"cat", "dog"}},
					},
				},
			},
		},
	}
}

func TestValidateBookAcceptsValidContent(t *testing.T) {
	v := New()
	assert.Empty(t, v.ValidateBook(validBook()))
}

func TestValidateBookEmpty(t *testing.T) {
	v := New()
	errs := v.ValidateBook(&models.Book{})
	require.Len(t, errs, 1)
	assert.Equal(t, "chapters", errs[0].Field)
}

func TestValidateBookChoiceIndexOutOfRange(t *testing.T) {
	v := New()
	book := validBook()
	book.Chapters[0].Questions[0].Key.Indices = []int{5}

	errs := v.ValidateBook(book)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "out of range")
}

func TestValidateBookDragKeyNotInItems(t *testing.T) {
	v := New()
	book := validBook()
	book.Chapters[0].Questions[2].Key.Order = []string{"cat", "bird"}

	errs := v.ValidateBook(book)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "not in the draggable items")
}

func TestValidateBookBlankFillAnswer(t *testing.T) {
	v := New()
	book := validBook()
	book.Chapters[0].Questions[1].Key.Texts = []string{"  "}

	errs := v.ValidateBook(book)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "blank")
}

func TestValidateBookUnknownType(t *testing.T) {
	v := New()
	book := validBook()
	book.Chapters[0].Questions[0].Type = models.QuestionType("essay")

	errs := v.ValidateBook(book)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "unknown question type")
}

func TestStructValidationCustomTags(t *testing.T) {
	v := New()

	type submission struct {
		QuestionID string `json:"question_id" validate:"required,question_id"`
		Type       string `json:"type" validate:"required,question_type"`
	}

	assert.NoError(t, v.ValidateStruct(submission{QuestionID: "q_0_3", Type: "multiple-choice"}))

	err := v.ValidateStruct(submission{QuestionID: "chapter-0-q3", Type: "essay"})
	require.Error(t, err)
	converted := ToValidationErrors(err)
	require.Len(t, converted, 2)
	assert.Equal(t, "question_id", converted[0].Field)
	assert.Equal(t, "type", converted[1].Field)
}

func TestUserInfoValidation(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateStruct(models.UserInfo{Name: "Sara Ali", StudentID: "12345"}))

	err := v.ValidateStruct(models.UserInfo{Name: "S", StudentID: "12"})
	require.Error(t, err)
	assert.Len(t, ToValidationErrors(err), 2)
}
