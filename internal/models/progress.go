package models

import "time"

// ProgressVersion is the current persisted-progress format version.
// Snapshots stored with an older (or missing) version are migrated
// forward on load.
const ProgressVersion = "2.0"

// Stats is derived wholly from the ledger plus content; it is persisted
// as a convenience snapshot but the ledger stays the source of truth.
type Stats struct {
	TotalQuestions    int `json:"total_questions"`
	CorrectAnswers    int `json:"correct_answers"`
	ChaptersCompleted int `json:"chapters_completed"`
}

// Accuracy is the percentage of attempted (graded or selected) questions
// answered correctly, rounded to the nearest integer.
func (s Stats) Accuracy(attempted int) int {
	if attempted == 0 {
		return 0
	}
	return int(float64(s.CorrectAnswers)/float64(attempted)*100 + 0.5)
}

// CompletionPercentage is correct answers over the full question count.
func (s Stats) CompletionPercentage() int {
	if s.TotalQuestions == 0 {
		return 0
	}
	return int(float64(s.CorrectAnswers)/float64(s.TotalQuestions)*100 + 0.5)
}

// UserInfo identifies the single local learner.
type UserInfo struct {
	Name         string    `json:"name" validate:"required,min=2"`
	StudentID    string    `json:"student_id" validate:"required,min=3"`
	RegisteredAt time.Time `json:"registered_at,omitempty"`
}

// SessionInfo is the per-session metadata kept under its own storage key.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}

// PersistedProgress is the wholesale snapshot written on every save.
type PersistedProgress struct {
	Version        string                      `json:"version"`
	UserAnswers    map[QuestionID]AnswerRecord `json:"user_answers"`
	Stats          Stats                       `json:"stats"`
	CurrentChapter int                         `json:"current_chapter"`
	UserName       string                      `json:"user_name"`
	UserID         string                      `json:"user_id"`
	SessionID      string                      `json:"session_id"`
	LastSavedAt    time.Time                   `json:"last_saved_at"`
	TotalSessions  int                         `json:"total_sessions"`
}
