package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/itqan-learning/progress-service/internal/models"
	"github.com/itqan-learning/progress-service/internal/utils"
	"github.com/itqan-learning/progress-service/internal/validator"
)

// ContentService serves the loaded book. Content is immutable after
// startup; a load or validation failure is fatal.
type ContentService interface {
	Book() *models.Book
	Chapter(index int) (*models.Chapter, error)
	Question(id models.QuestionID) (*models.Question, error)
	ChapterTitles() []string
	TotalQuestions() int
}

type contentService struct {
	book      *models.Book
	validator *validator.Validator
	logger    utils.Logger
}

// LoadContent reads the book from a local path or an http(s) URL,
// decodes and validates it.
func LoadContent(ctx context.Context, source string, v *validator.Validator, logger utils.Logger) (ContentService, error) {
	raw, err := readContent(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to read content from %s: %w", source, err)
	}

	var book models.Book
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	if errs := v.ValidateBook(&book); len(errs) > 0 {
		return nil, fmt.Errorf("content validation failed: %w", errs)
	}

	logger.Info("Content loaded",
		"source", source,
		"chapters", len(book.Chapters),
		"questions", book.TotalQuestions())

	return &contentService{book: &book, validator: v, logger: logger}, nil
}

func readContent(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(source)
}

func (s *contentService) Book() *models.Book {
	return s.book
}

func (s *contentService) Chapter(index int) (*models.Chapter, error) {
	if index < 0 || index >= len(s.book.Chapters) {
		return nil, fmt.Errorf("%w: %d", ErrChapterNotFound, index)
	}
	return &s.book.Chapters[index], nil
}

func (s *contentService) Question(id models.QuestionID) (*models.Question, error) {
	ci, qi, err := id.Position()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	if ci < 0 || ci >= len(s.book.Chapters) {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	ch := &s.book.Chapters[ci]
	if qi < 0 || qi >= len(ch.Questions) {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	return &ch.Questions[qi], nil
}

func (s *contentService) ChapterTitles() []string {
	return s.book.ChapterTitles()
}

func (s *contentService) TotalQuestions() int {
	return s.book.TotalQuestions()
}
