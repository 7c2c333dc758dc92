package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/itqan-learning/progress-service/internal/models"
)

// EventType represents different types of notification events
type EventType string

const (
	// Progress events
	EventProgressSaved    EventType = "progress.saved"
	EventProgressSaveFail EventType = "progress.save_failed"
	EventProgressRestored EventType = "progress.restored"
	EventProgressReset    EventType = "progress.reset"

	// Chapter events
	EventChapterCompleted EventType = "chapter.completed"

	// Session events
	EventSessionStarted     EventType = "session.started"
	EventSessionIdleWarning EventType = "session.idle_warning"
	EventSessionTimedOut    EventType = "session.timed_out"

	// Certificate events
	EventCertificateIssued EventType = "certificate.issued"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

const (
	eventSource  = "progress-service"
	eventVersion = "1.0"
)

// Progress notification event payloads

type ProgressSavedEvent struct {
	SessionID   string    `json:"session_id"`
	SavedAt     time.Time `json:"saved_at"`
	BackupCount int       `json:"backup_count"`
	Automatic   bool      `json:"automatic"`
}

type ProgressSaveFailedEvent struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

type ProgressRestoredEvent struct {
	SessionID      string    `json:"session_id"`
	RestoredFrom   string    `json:"restored_from"` // "primary" or "backup"
	LastSavedAt    time.Time `json:"last_saved_at"`
	AnsweredCount  int       `json:"answered_count"`
	CurrentChapter int       `json:"current_chapter"`
}

type ChapterCompletedEvent struct {
	ChapterIndex int    `json:"chapter_index"`
	ChapterTitle string `json:"chapter_title"`
	CorrectCount int    `json:"correct_count"`
	TotalCount   int    `json:"total_count"`
}

type SessionIdleEvent struct {
	SessionID    string        `json:"session_id"`
	IdleFor      time.Duration `json:"idle_for"`
	LastActivity time.Time     `json:"last_activity"`
}

type CertificateIssuedEvent struct {
	IssuedTo  string `json:"issued_to"`
	StudentID string `json:"student_id"`
	Accuracy  int    `json:"accuracy"`
}

func newEvent(eventType EventType, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewProgressSavedEvent(sessionID string, savedAt time.Time, backupCount int, automatic bool) *NotificationEvent {
	return newEvent(EventProgressSaved, ProgressSavedEvent{
		SessionID:   sessionID,
		SavedAt:     savedAt,
		BackupCount: backupCount,
		Automatic:   automatic,
	})
}

func NewProgressSaveFailedEvent(sessionID, reason string) *NotificationEvent {
	return newEvent(EventProgressSaveFail, ProgressSaveFailedEvent{
		SessionID: sessionID,
		Reason:    reason,
	})
}

func NewProgressRestoredEvent(sessionID, restoredFrom string, p *models.PersistedProgress) *NotificationEvent {
	return newEvent(EventProgressRestored, ProgressRestoredEvent{
		SessionID:      sessionID,
		RestoredFrom:   restoredFrom,
		LastSavedAt:    p.LastSavedAt,
		AnsweredCount:  len(p.UserAnswers),
		CurrentChapter: p.CurrentChapter,
	})
}

func NewProgressResetEvent(sessionID string) *NotificationEvent {
	return newEvent(EventProgressReset, map[string]interface{}{"session_id": sessionID})
}

func NewChapterCompletedEvent(chapterIndex int, title string, correct, total int) *NotificationEvent {
	return newEvent(EventChapterCompleted, ChapterCompletedEvent{
		ChapterIndex: chapterIndex,
		ChapterTitle: title,
		CorrectCount: correct,
		TotalCount:   total,
	})
}

func NewSessionStartedEvent(sessionID string, startedAt time.Time) *NotificationEvent {
	return newEvent(EventSessionStarted, map[string]interface{}{
		"session_id": sessionID,
		"started_at": startedAt,
	})
}

func NewSessionIdleWarningEvent(sessionID string, idleFor time.Duration, lastActivity time.Time) *NotificationEvent {
	return newEvent(EventSessionIdleWarning, SessionIdleEvent{
		SessionID:    sessionID,
		IdleFor:      idleFor,
		LastActivity: lastActivity,
	})
}

func NewSessionTimedOutEvent(sessionID string, idleFor time.Duration, lastActivity time.Time) *NotificationEvent {
	return newEvent(EventSessionTimedOut, SessionIdleEvent{
		SessionID:    sessionID,
		IdleFor:      idleFor,
		LastActivity: lastActivity,
	})
}

func NewCertificateIssuedEvent(issuedTo, studentID string, accuracy int) *NotificationEvent {
	return newEvent(EventCertificateIssued, CertificateIssuedEvent{
		IssuedTo:  issuedTo,
		StudentID: studentID,
		Accuracy:  accuracy,
	})
}

// GenerateEventID returns a unique event identifier.
func GenerateEventID() string {
	return uuid.New().String()
}
