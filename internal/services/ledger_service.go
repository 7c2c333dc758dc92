package services

import (
	"fmt"

	"github.com/itqan-learning/progress-service/internal/grading"
	"github.com/itqan-learning/progress-service/internal/models"
	"github.com/itqan-learning/progress-service/internal/utils"
)

// QuestionOutcome is the per-question result of a chapter check.
type QuestionOutcome struct {
	Correct bool `json:"correct"`

	// AlreadyGraded marks outcomes echoed from a prior check. The stored
	// verdict is reported as-is, never re-evaluated.
	AlreadyGraded bool `json:"already_graded"`
}

// ChapterGradeResult is the outcome of an all-or-nothing chapter check.
type ChapterGradeResult struct {
	Outcomes     map[models.QuestionID]QuestionOutcome `json:"outcomes"`
	CorrectCount int                                   `json:"correct_count"`
	TotalCount   int                                   `json:"total_count"`
	Completed    bool                                  `json:"completed"`
}

// LedgerService owns the per-question answer records. Grading is
// write-once: a graded record is immutable and a second grade attempt
// fails loudly.
//
// The ledger is not internally synchronized; the session serializes all
// access under its own mutex so mutation and stats recomputation stay
// one atomic unit.
type LedgerService interface {
	SubmitSelection(id models.QuestionID, q *models.Question, optionIndex int) error
	GradeQuestion(id models.QuestionID, q *models.Question, v models.AnswerValue) (grading.Result, error)
	GradeChapter(chapterIndex int, ch *models.Chapter, inputs map[models.QuestionID]models.AnswerValue) (*ChapterGradeResult, error)
	IsChapterCompleted(chapterIndex int, ch *models.Chapter) bool
	ComputeStats(book *models.Book) models.Stats
	Record(id models.QuestionID) (models.AnswerRecord, bool)
	Snapshot() map[models.QuestionID]models.AnswerRecord
	Restore(records map[models.QuestionID]models.AnswerRecord)
	Reset()
}

type ledgerService struct {
	records map[models.QuestionID]models.AnswerRecord
	engine  *grading.Engine
	logger  utils.Logger
}

func NewLedgerService(engine *grading.Engine, logger utils.Logger) LedgerService {
	return &ledgerService{
		records: make(map[models.QuestionID]models.AnswerRecord),
		engine:  engine,
		logger:  logger,
	}
}

// SubmitSelection records an ungraded choice selection. Overwriting a
// prior ungraded selection is allowed; a graded record is immutable.
func (s *ledgerService) SubmitSelection(id models.QuestionID, q *models.Question, optionIndex int) error {
	if !q.Type.IsChoice() {
		return fmt.Errorf("%w: question %s is %s", ErrUnsupportedSelection, id, q.Type)
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return fmt.Errorf("%w: %d of %d options", ErrOptionOutOfRange, optionIndex, len(q.Options))
	}
	if rec, ok := s.records[id]; ok && rec.Graded() {
		return fmt.Errorf("%w: %s", ErrAlreadyGraded, id)
	}
	s.records[id] = models.AnswerRecord{Answer: models.SelectionAnswer(optionIndex)}
	return nil
}

// GradeQuestion evaluates v and writes the graded record. Unanswered
// inputs are not recorded; the caller is told to finish first.
func (s *ledgerService) GradeQuestion(id models.QuestionID, q *models.Question, v models.AnswerValue) (grading.Result, error) {
	if rec, ok := s.records[id]; ok && rec.Graded() {
		return grading.Result{}, fmt.Errorf("%w: %s", ErrAlreadyGraded, id)
	}

	res, err := s.engine.Evaluate(q, v)
	if err != nil {
		return grading.Result{}, fmt.Errorf("%w: %v", ErrAnswerShapeMismatch, err)
	}
	if res.Unanswered {
		return res, nil
	}

	correct := res.Correct
	s.records[id] = models.AnswerRecord{Answer: v, IsCorrect: &correct}
	return res, nil
}

// GradeChapter is all-or-nothing: if any ungraded question lacks a
// usable answer, nothing is written and the unanswered ids are reported.
// Raw inputs come from the caller; choice questions fall back to the
// ledger's stored ungraded selection.
func (s *ledgerService) GradeChapter(chapterIndex int, ch *models.Chapter, inputs map[models.QuestionID]models.AnswerValue) (*ChapterGradeResult, error) {
	type pending struct {
		id  models.QuestionID
		q   *models.Question
		v   models.AnswerValue
		res grading.Result
	}

	result := &ChapterGradeResult{
		Outcomes:   make(map[models.QuestionID]QuestionOutcome, len(ch.Questions)),
		TotalCount: len(ch.Questions),
	}

	var toGrade []pending
	var unanswered []string

	for qi := range ch.Questions {
		q := &ch.Questions[qi]
		id := models.NewQuestionID(chapterIndex, qi)

		if rec, ok := s.records[id]; ok && rec.Graded() {
			result.Outcomes[id] = QuestionOutcome{Correct: rec.Correct(), AlreadyGraded: true}
			continue
		}

		v, ok := s.chapterInput(id, q, inputs)
		if !ok {
			unanswered = append(unanswered, string(id))
			continue
		}

		res, err := s.engine.Evaluate(q, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAnswerShapeMismatch, err)
		}
		if res.Unanswered {
			unanswered = append(unanswered, string(id))
			continue
		}
		toGrade = append(toGrade, pending{id: id, q: q, v: v, res: res})
	}

	if len(unanswered) > 0 {
		return nil, &IncompleteChapterError{ChapterIndex: chapterIndex, Unanswered: unanswered}
	}

	// Every question is answerable; only now does anything get written.
	for _, p := range toGrade {
		correct := p.res.Correct
		s.records[p.id] = models.AnswerRecord{Answer: p.v, IsCorrect: &correct}
		result.Outcomes[p.id] = QuestionOutcome{Correct: correct}
	}

	for _, outcome := range result.Outcomes {
		if outcome.Correct {
			result.CorrectCount++
		}
	}
	result.Completed = s.IsChapterCompleted(chapterIndex, ch)
	return result, nil
}

func (s *ledgerService) chapterInput(id models.QuestionID, q *models.Question, inputs map[models.QuestionID]models.AnswerValue) (models.AnswerValue, bool) {
	if v, ok := inputs[id]; ok {
		return v, true
	}
	// Choice answers live in the ledger as ungraded selections.
	if q.Type.IsChoice() {
		if rec, ok := s.records[id]; ok {
			return rec.Answer, true
		}
	}
	return models.AnswerValue{}, false
}

// IsChapterCompleted is true iff every question in the chapter has a
// graded record. Recomputed on demand, never cached.
func (s *ledgerService) IsChapterCompleted(chapterIndex int, ch *models.Chapter) bool {
	if len(ch.Questions) == 0 {
		return false
	}
	for qi := range ch.Questions {
		rec, ok := s.records[models.NewQuestionID(chapterIndex, qi)]
		if !ok || !rec.Graded() {
			return false
		}
	}
	return true
}

// ComputeStats derives stats wholesale from content plus the ledger.
func (s *ledgerService) ComputeStats(book *models.Book) models.Stats {
	stats := models.Stats{TotalQuestions: book.TotalQuestions()}
	for _, rec := range s.records {
		if rec.Correct() {
			stats.CorrectAnswers++
		}
	}
	for ci := range book.Chapters {
		if s.IsChapterCompleted(ci, &book.Chapters[ci]) {
			stats.ChaptersCompleted++
		}
	}
	return stats
}

func (s *ledgerService) Record(id models.QuestionID) (models.AnswerRecord, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Snapshot returns a copy of the ledger for persistence.
func (s *ledgerService) Snapshot() map[models.QuestionID]models.AnswerRecord {
	out := make(map[models.QuestionID]models.AnswerRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out
}

// Restore replaces the ledger wholesale with a persisted snapshot.
func (s *ledgerService) Restore(records map[models.QuestionID]models.AnswerRecord) {
	s.records = make(map[models.QuestionID]models.AnswerRecord, len(records))
	for id, rec := range records {
		s.records[id] = rec
	}
}

func (s *ledgerService) Reset() {
	s.records = make(map[models.QuestionID]models.AnswerRecord)
}
