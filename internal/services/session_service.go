package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itqan-learning/progress-service/internal/events"
	"github.com/itqan-learning/progress-service/internal/models"
	"github.com/itqan-learning/progress-service/internal/utils"
	"github.com/itqan-learning/progress-service/internal/validator"
)

// SessionTimings holds the background loop intervals.
type SessionTimings struct {
	AutoSaveInterval  time.Duration
	HeartbeatInterval time.Duration
	IdleWarningAfter  time.Duration
	TimeoutAfter      time.Duration
}

// DefaultSessionTimings mirrors the intervals the learning platform has
// always used.
func DefaultSessionTimings() SessionTimings {
	return SessionTimings{
		AutoSaveInterval:  30 * time.Second,
		HeartbeatInterval: 60 * time.Second,
		IdleWarningAfter:  5 * time.Minute,
		TimeoutAfter:      30 * time.Minute,
	}
}

// SessionState is the read view handed to the HTTP layer.
type SessionState struct {
	SessionID      string           `json:"session_id"`
	StartedAt      time.Time        `json:"started_at"`
	LastActivity   time.Time        `json:"last_activity"`
	User           *models.UserInfo `json:"user,omitempty"`
	Stats          models.Stats     `json:"stats"`
	CurrentChapter int              `json:"current_chapter"`
	TotalSessions  int              `json:"total_sessions"`
	RestoredFrom   string           `json:"restored_from"`
}

// SessionService owns the live session: the ledger, derived stats,
// identity, and persistence. One mutex serializes every mutation so
// ledger change, stats recomputation and save happen as a single unit.
type SessionService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Touch()
	State() SessionState
	RegisterUser(ctx context.Context, info *models.UserInfo) error
	SetCurrentChapter(ctx context.Context, index int) error
	SubmitSelection(ctx context.Context, id models.QuestionID, optionIndex int) error
	CheckChapter(ctx context.Context, index int, inputs map[models.QuestionID]models.AnswerValue) (*ChapterGradeResult, error)
	Stats() models.Stats
	SaveNow(ctx context.Context) error
	ResetProgress(ctx context.Context) error
	Certificate(ctx context.Context) (*models.Certificate, error)
}

type sessionService struct {
	mu sync.Mutex

	content   ContentService
	ledger    LedgerService
	progress  ProgressService
	certs     CertificateService
	publisher events.EventPublisher
	validator *validator.Validator
	logger    utils.Logger
	timings   SessionTimings

	sessionID      string
	startedAt      time.Time
	lastActivity   time.Time
	user           *models.UserInfo
	stats          models.Stats
	currentChapter int
	totalSessions  int
	restoredFrom   LoadSource
	idleWarned     bool
	timedOut       bool

	stopCh  chan struct{}
	stopped sync.WaitGroup
}

func NewSessionService(
	content ContentService,
	ledger LedgerService,
	progress ProgressService,
	certs CertificateService,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger utils.Logger,
	timings SessionTimings,
) SessionService {
	return &sessionService{
		content:   content,
		ledger:    ledger,
		progress:  progress,
		certs:     certs,
		publisher: publisher,
		validator: v,
		logger:    logger,
		timings:   timings,
	}
}

// Start restores persisted state, recomputes stats from the restored
// ledger, and launches the autosave and heartbeat loops.
func (s *sessionService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionID = uuid.New().String()
	s.startedAt = time.Now()
	s.lastActivity = s.startedAt
	s.stopCh = make(chan struct{})

	if info, err := s.progress.LoadUserInfo(ctx); err == nil {
		s.user = info
	}

	outcome, err := s.progress.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	s.restoredFrom = outcome.Source

	if outcome.Progress != nil {
		p := outcome.Progress
		s.ledger.Restore(p.UserAnswers)
		s.currentChapter = p.CurrentChapter
		s.totalSessions = p.TotalSessions
		// Stored stats are a snapshot; the ledger is authoritative.
		s.stats = s.ledger.ComputeStats(s.content.Book())

		s.publish(ctx, events.NewProgressRestoredEvent(s.sessionID, string(outcome.Source), p))
		s.logger.Info("Session restored",
			"session_id", s.sessionID,
			"source", outcome.Source,
			"answered", len(p.UserAnswers),
			"migrated", outcome.Migrated)
	} else {
		s.stats = s.ledger.ComputeStats(s.content.Book())
		s.logger.Info("Session started fresh", "session_id", s.sessionID)
	}

	// A session is counted once at start, not once per save.
	s.totalSessions++

	if err := s.progress.SaveSessionInfo(ctx, &models.SessionInfo{
		SessionID:    s.sessionID,
		StartedAt:    s.startedAt,
		LastActivity: s.lastActivity,
	}); err != nil {
		s.logger.Warn("Failed to persist session info", "error", err)
	}

	s.publish(ctx, events.NewSessionStartedEvent(s.sessionID, s.startedAt))

	s.stopped.Add(2)
	go s.autoSaveLoop(s.stopCh)
	go s.heartbeatLoop(s.stopCh)
	return nil
}

// Stop halts the background loops and performs a final save.
func (s *sessionService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return ErrSessionNotStarted
	}
	close(s.stopCh)
	s.stopCh = nil
	s.mu.Unlock()

	s.stopped.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx, false)
	s.logger.Info("Session stopped", "session_id", s.sessionID)
	return nil
}

// Touch records user activity and re-arms the idle warning.
func (s *sessionService) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

func (s *sessionService) touchLocked() {
	s.lastActivity = time.Now()
	s.idleWarned = false
	s.timedOut = false
}

func (s *sessionService) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		SessionID:      s.sessionID,
		StartedAt:      s.startedAt,
		LastActivity:   s.lastActivity,
		User:           s.user,
		Stats:          s.stats,
		CurrentChapter: s.currentChapter,
		TotalSessions:  s.totalSessions,
		RestoredFrom:   string(s.restoredFrom),
	}
}

// RegisterUser validates and stores the learner's identity.
func (s *sessionService) RegisterUser(ctx context.Context, info *models.UserInfo) error {
	if err := s.validator.ValidateStruct(info); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationFailed, ToValidationErrors(err).Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if info.RegisteredAt.IsZero() {
		info.RegisteredAt = time.Now()
	}
	if err := s.progress.SaveUserInfo(ctx, info); err != nil {
		return fmt.Errorf("failed to store user info: %w", err)
	}
	s.user = info
	s.persistLocked(ctx, false)
	return nil
}

func (s *sessionService) SetCurrentChapter(ctx context.Context, index int) error {
	if _, err := s.content.Chapter(index); err != nil {
		return fmt.Errorf("%w: %d", ErrChapterIndexOutOfRange, index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.currentChapter = index
	s.persistLocked(ctx, false)
	return nil
}

// SubmitSelection records an ungraded choice selection and saves.
func (s *sessionService) SubmitSelection(ctx context.Context, id models.QuestionID, optionIndex int) error {
	q, err := s.content.Question(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if err := s.ledger.SubmitSelection(id, q, optionIndex); err != nil {
		return err
	}
	s.persistLocked(ctx, false)
	return nil
}

// CheckChapter runs the all-or-nothing chapter grade, recomputes stats
// and persists in one locked step.
func (s *sessionService) CheckChapter(ctx context.Context, index int, inputs map[models.QuestionID]models.AnswerValue) (*ChapterGradeResult, error) {
	ch, err := s.content.Chapter(index)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	result, err := s.ledger.GradeChapter(index, ch, inputs)
	if err != nil {
		return nil, err
	}

	s.stats = s.ledger.ComputeStats(s.content.Book())
	if result.Completed {
		s.publish(ctx, events.NewChapterCompletedEvent(index, ch.Title, result.CorrectCount, result.TotalCount))
	}
	s.persistLocked(ctx, false)
	return result, nil
}

func (s *sessionService) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// SaveNow persists on demand. Save failures surface to the caller here,
// unlike background saves which only warn.
func (s *sessionService) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	return s.persistLocked(ctx, false)
}

// ResetProgress wipes the ledger, derived stats, identity and every
// persisted key, then issues a fresh session id.
func (s *sessionService) ResetProgress(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.progress.Reset(ctx); err != nil {
		return fmt.Errorf("failed to clear stored progress: %w", err)
	}

	s.ledger.Reset()
	s.stats = s.ledger.ComputeStats(s.content.Book())
	s.user = nil
	s.currentChapter = 0
	s.totalSessions = 1
	s.restoredFrom = LoadedNothing
	oldID := s.sessionID
	s.sessionID = uuid.New().String()
	s.touchLocked()

	s.publish(ctx, events.NewProgressResetEvent(oldID))
	s.logger.Info("Progress reset", "old_session_id", oldID, "session_id", s.sessionID)
	return nil
}

// Certificate builds the export artifact from the current state.
func (s *sessionService) Certificate(ctx context.Context) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	cert, err := s.certs.Build(s.user, s.snapshotLocked(), s.content.ChapterTitles())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewCertificateIssuedEvent(cert.IssuedTo, cert.StudentID, cert.Performance.CompletionPercentage))
	return cert, nil
}

func (s *sessionService) snapshotLocked() *models.PersistedProgress {
	p := &models.PersistedProgress{
		Version:        models.ProgressVersion,
		UserAnswers:    s.ledger.Snapshot(),
		Stats:          s.stats,
		CurrentChapter: s.currentChapter,
		SessionID:      s.sessionID,
		TotalSessions:  s.totalSessions,
	}
	if s.user != nil {
		p.UserName = s.user.Name
		p.UserID = s.user.StudentID
	}
	return p
}

// persistLocked writes the snapshot. Failures are never fatal: they are
// logged, published as a notification, and in-memory state stays
// authoritative.
func (s *sessionService) persistLocked(ctx context.Context, automatic bool) error {
	snapshot := s.snapshotLocked()
	backups, err := s.progress.Save(ctx, snapshot)
	if err != nil {
		s.logger.Warn("Failed to save progress", "error", err, "automatic", automatic)
		s.publish(ctx, events.NewProgressSaveFailedEvent(s.sessionID, err.Error()))
		return nil
	}
	s.publish(ctx, events.NewProgressSavedEvent(s.sessionID, snapshot.LastSavedAt, backups, automatic))
	return nil
}

func (s *sessionService) publish(ctx context.Context, event *events.NotificationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

func (s *sessionService) autoSaveLoop(stop <-chan struct{}) {
	defer s.stopped.Done()
	ticker := time.NewTicker(s.timings.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.persistLocked(context.Background(), true)
			s.mu.Unlock()
		case <-stop:
			return
		}
	}
}

func (s *sessionService) heartbeatLoop(stop <-chan struct{}) {
	defer s.stopped.Done()
	ticker := time.NewTicker(s.timings.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkIdle()
		case <-stop:
			return
		}
	}
}

func (s *sessionService) checkIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	idle := time.Since(s.lastActivity)
	ctx := context.Background()

	switch {
	case idle >= s.timings.TimeoutAfter && !s.timedOut:
		s.timedOut = true
		s.logger.Warn("Session timed out due to inactivity",
			"session_id", s.sessionID, "idle", idle.String())
		s.publish(ctx, events.NewSessionTimedOutEvent(s.sessionID, idle, s.lastActivity))
	case idle >= s.timings.IdleWarningAfter && !s.idleWarned && !s.timedOut:
		s.idleWarned = true
		s.logger.Info("Session idle", "session_id", s.sessionID, "idle", idle.String())
		s.publish(ctx, events.NewSessionIdleWarningEvent(s.sessionID, idle, s.lastActivity))
	}
}
