package services

import (
	"errors"
	"fmt"

	apperrors "github.com/itqan-learning/progress-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Ledger specific errors
	ErrQuestionNotFound       = errors.New("question not found")
	ErrAlreadyGraded          = errors.New("answer already graded")
	ErrUnsupportedSelection   = errors.New("selection is only supported for choice questions")
	ErrChapterNotFound        = errors.New("chapter not found")
	ErrChapterIncomplete      = errors.New("chapter has unanswered questions")
	ErrAnswerShapeMismatch    = errors.New("answer shape does not match question type")
	ErrOptionOutOfRange       = errors.New("selected option index is out of range")
	ErrChapterIndexOutOfRange = errors.New("chapter index is out of range")

	// Progress specific errors
	ErrNoProgress        = errors.New("no saved progress found")
	ErrProgressCorrupt   = errors.New("saved progress could not be decoded")
	ErrUserNotRegistered = errors.New("no registered user info")

	// Session specific errors
	ErrSessionNotStarted = errors.New("session not started")
	ErrSessionTimedOut   = errors.New("session timed out due to inactivity")

	// Certificate specific errors
	ErrCertificateNotEarned = errors.New("certificate requires registered user info and graded answers")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// IncompleteChapterError reports which questions block an all-or-nothing
// chapter check. Nothing is graded while this error is returned.
type IncompleteChapterError struct {
	ChapterIndex int
	Unanswered   []string
}

func (e *IncompleteChapterError) Error() string {
	return fmt.Sprintf("chapter %d has %d unanswered questions", e.ChapterIndex, len(e.Unanswered))
}

func (e *IncompleteChapterError) Unwrap() error {
	return ErrChapterIncomplete
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// ToValidationErrors converts validator.ValidationErrors to the shared type
func ToValidationErrors(err error) ValidationErrors {
	return apperrors.ToValidationErrors(err)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrChapterNotFound) ||
		errors.Is(err, ErrNoProgress)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrAnswerShapeMismatch) ||
		errors.Is(err, ErrOptionOutOfRange) ||
		errors.Is(err, ErrChapterIndexOutOfRange) ||
		errors.Is(err, ErrUnsupportedSelection) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadyGraded) ||
		errors.Is(err, ErrChapterIncomplete)
}
