package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itqan-learning/progress-service/internal/grading"
	"github.com/itqan-learning/progress-service/internal/models"
	"github.com/itqan-learning/progress-service/internal/utils"
)

func newTestLedger() LedgerService {
	return NewLedgerService(grading.NewEngine(), utils.NewDevelopmentLogger())
}

func testChapter() *models.Chapter {
	return &models.Chapter{
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
	}
}

func testBook() *models.Book {
	return &models.Book{Chapters: []models.Chapter{*testChapter()}}
}

func TestSubmitSelection(t *testing.T) {
	ledger := newTestLedger()
	q := &testChapter().Questions[0]
	id := models.NewQuestionID(0, 0)

	require.NoError(t, ledger.SubmitSelection(id, q, 2))

	rec, ok := ledger.Record(id)
	require.True(t, ok)
	assert.False(t, rec.Graded())
	assert.Equal(t, 2, *rec.Answer.SelectedOption)

	// An ungraded selection can be changed freely.
	require.NoError(t, ledger.SubmitSelection(id, q, 1))
	rec, _ = ledger.Record(id)
	assert.Equal(t, 1, *rec.Answer.SelectedOption)
}

func TestSubmitSelectionRejectsNonChoice(t *testing.T) {
	ledger := newTestLedger()
	q := &testChapter().Questions[1]

	err := ledger.SubmitSelection(models.NewQuestionID(0, 1), q, 0)
	assert.ErrorIs(t, err, ErrUnsupportedSelection)
}

func TestSubmitSelectionRejectsOutOfRange(t *testing.T) {
	ledger := newTestLedger()
	q := &testChapter().Questions[0]

	err := ledger.SubmitSelection(models.NewQuestionID(0, 0), q, 3)
	assert.ErrorIs(t, err, ErrOptionOutOfRange)
}

func TestGradeQuestionWriteOnce(t *testing.T) {
	ledger := newTestLedger()
	q := &testChapter().Questions[0]
	id := models.NewQuestionID(0, 0)

	res, err := ledger.GradeQuestion(id, q, models.SelectionAnswer(1))
	require.NoError(t, err)
	assert.True(t, res.Correct)

	rec, _ := ledger.Record(id)
	require.True(t, rec.Graded())
	assert.True(t, rec.Correct())

	// Grading again fails loudly and leaves the record untouched.
	_, err = ledger.GradeQuestion(id, q, models.SelectionAnswer(0))
	assert.ErrorIs(t, err, ErrAlreadyGraded)

	err = ledger.SubmitSelection(id, q, 0)
	assert.ErrorIs(t, err, ErrAlreadyGraded)

	rec, _ = ledger.Record(id)
	assert.True(t, rec.Correct())
}

func TestGradeQuestionUnansweredNotRecorded(t *testing.T) {
	ledger := newTestLedger()
	q := &testChapter().Questions[1]
	id := models.NewQuestionID(0, 1)

	res, err := ledger.GradeQuestion(id, q, models.TextAnswer("   "))
	require.NoError(t, err)
	assert.True(t, res.Unanswered)

	_, ok := ledger.Record(id)
	assert.False(t, ok)
}

func TestGradeChapterAllOrNothing(t *testing.T) {
	ledger := newTestLedger()
	ch := testChapter()

	// Only the choice question has a selection; the rest have no input.
	require.NoError(t, ledger.SubmitSelection(models.NewQuestionID(0, 0), &ch.Questions[0], 1))

	_, err := ledger.GradeChapter(0, ch, map[models.QuestionID]models.AnswerValue{
		models.NewQuestionID(0, 1): models.TextAnswer("blue"),
	})

	var incomplete *IncompleteChapterError
	require.ErrorAs(t, err, &incomplete)
	assert.ErrorIs(t, err, ErrChapterIncomplete)
	assert.Equal(t, []string{"q_0_2"}, incomplete.Unanswered)

	// Nothing was graded, including the questions that had answers.
	rec, ok := ledger.Record(models.NewQuestionID(0, 0))
	require.True(t, ok)
	assert.False(t, rec.Graded())
	_, ok = ledger.Record(models.NewQuestionID(0, 1))
	assert.False(t, ok)
}

func TestGradeChapterSuccess(t *testing.T) {
	ledger := newTestLedger()
	ch := testChapter()

	require.NoError(t, ledger.SubmitSelection(models.NewQuestionID(0, 0), &ch.Questions[0], 1))

	result, err := ledger.GradeChapter(0, ch, map[models.QuestionID]models.AnswerValue{
		models.NewQuestionID(0, 1): models.TextAnswer("BLUE "),
		models.NewQuestionID(0, 2): models.DropAnswer([]string{"cat", "dog"}),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 3, result.CorrectCount)
	assert.True(t, result.Completed)
	assert.True(t, result.Outcomes[models.NewQuestionID(0, 0)].Correct)
	assert.False(t, result.Outcomes[models.NewQuestionID(0, 0)].AlreadyGraded)
}

func TestGradeChapterEchoesGradedQuestions(t *testing.T) {
	ledger := newTestLedger()
	ch := testChapter()

	// Grade the fill-in wrong first, then check the chapter.
	_, err := ledger.GradeQuestion(models.NewQuestionID(0, 1), &ch.Questions[1], models.TextAnswer("green"))
	require.NoError(t, err)

	require.NoError(t, ledger.SubmitSelection(models.NewQuestionID(0, 0), &ch.Questions[0], 1))
	result, err := ledger.GradeChapter(0, ch, map[models.QuestionID]models.AnswerValue{
		// A new (correct) input for the graded question must be ignored.
		models.NewQuestionID(0, 1): models.TextAnswer("blue"),
		models.NewQuestionID(0, 2): models.DropAnswer([]string{"cat", "dog"}),
	})
	require.NoError(t, err)

	echoed := result.Outcomes[models.NewQuestionID(0, 1)]
	assert.True(t, echoed.AlreadyGraded)
	assert.False(t, echoed.Correct)
	assert.Equal(t, 2, result.CorrectCount)
	assert.True(t, result.Completed)
}

func TestIsChapterCompleted(t *testing.T) {
	ledger := newTestLedger()
	ch := testChapter()

	assert.False(t, ledger.IsChapterCompleted(0, ch))

	_, err := ledger.GradeQuestion(models.NewQuestionID(0, 0), &ch.Questions[0], models.SelectionAnswer(0))
	require.NoError(t, err)
	assert.False(t, ledger.IsChapterCompleted(0, ch))

	_, err = ledger.GradeQuestion(models.NewQuestionID(0, 1), &ch.Questions[1], models.TextAnswer("blue"))
	require.NoError(t, err)
	_, err = ledger.GradeQuestion(models.NewQuestionID(0, 2), &ch.Questions[2], models.DropAnswer([]string{"cat", "dog"}))
	require.NoError(t, err)

	// Completion counts graded entries, not correct ones.
	assert.True(t, ledger.IsChapterCompleted(0, ch))
}

func TestComputeStatsIdempotent(t *testing.T) {
	ledger := newTestLedger()
	book := testBook()
	ch := &book.Chapters[0]

	_, err := ledger.GradeQuestion(models.NewQuestionID(0, 0), &ch.Questions[0], models.SelectionAnswer(1))
	require.NoError(t, err)
	_, err = ledger.GradeQuestion(models.NewQuestionID(0, 1), &ch.Questions[1], models.TextAnswer("green"))
	require.NoError(t, err)

	first := ledger.ComputeStats(book)
	second := ledger.ComputeStats(book)

	assert.Equal(t, first, second)
	assert.Equal(t, models.Stats{TotalQuestions: 3, CorrectAnswers: 1, ChaptersCompleted: 0}, first)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ledger := newTestLedger()
	ch := testChapter()

	_, err := ledger.GradeQuestion(models.NewQuestionID(0, 1), &ch.Questions[1], models.TextAnswer("blue"))
	require.NoError(t, err)
	require.NoError(t, ledger.SubmitSelection(models.NewQuestionID(0, 0), &ch.Questions[0], 2))

	snapshot := ledger.Snapshot()

	restored := newTestLedger()
	restored.Restore(snapshot)

	assert.Equal(t, snapshot, restored.Snapshot())

	// The snapshot is a copy; later mutations do not leak into it.
	restored.Reset()
	assert.Empty(t, restored.Snapshot())
	assert.Len(t, snapshot, 2)
}
