package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/itqan-learning/progress-service/internal/models"
	"github.com/itqan-learning/progress-service/internal/storage"
	"github.com/itqan-learning/progress-service/internal/utils"
)

// Storage key names. The prefix is configurable; the names themselves
// are part of the persisted format and stay fixed.
const (
	progressKeyName = "englishBookProgress"
	userInfoKeyName = "englishBookUserInfo"
	sessionKeyName  = "englishBookSession"
	backupKeyInfix  = "_backup_"
)

// LoadSource says where a restored snapshot came from.
type LoadSource string

const (
	LoadedFromPrimary LoadSource = "primary"
	LoadedFromBackup  LoadSource = "backup"
	LoadedNothing     LoadSource = "none"
)

// LoadOutcome is the result of a progress load. A nil Progress with
// source LoadedNothing means a fresh start, not a failure.
type LoadOutcome struct {
	Progress *models.PersistedProgress
	Source   LoadSource
	Migrated bool
}

// ProgressService persists wholesale snapshots with backup rotation.
// Every save writes the primary key and a timestamped backup, then
// prunes backups beyond the retention limit.
type ProgressService interface {
	Save(ctx context.Context, p *models.PersistedProgress) (backupCount int, err error)
	Load(ctx context.Context) (*LoadOutcome, error)
	SaveUserInfo(ctx context.Context, info *models.UserInfo) error
	LoadUserInfo(ctx context.Context) (*models.UserInfo, error)
	SaveSessionInfo(ctx context.Context, info *models.SessionInfo) error
	LoadSessionInfo(ctx context.Context) (*models.SessionInfo, error)
	Reset(ctx context.Context) error
}

type progressService struct {
	store     storage.Store
	logger    utils.Logger
	keyPrefix string
	retention int
	chapters  int
	now       func() time.Time
}

func NewProgressService(store storage.Store, logger utils.Logger, keyPrefix string, retention, chapters int) ProgressService {
	if retention <= 0 {
		retention = 3
	}
	return &progressService{
		store:     store,
		logger:    logger,
		keyPrefix: keyPrefix,
		retention: retention,
		chapters:  chapters,
		now:       time.Now,
	}
}

func (s *progressService) primaryKey() string { return s.keyPrefix + progressKeyName }
func (s *progressService) userKey() string    { return s.keyPrefix + userInfoKeyName }
func (s *progressService) sessionKey() string { return s.keyPrefix + sessionKeyName }

func (s *progressService) backupPrefix() string {
	return s.primaryKey() + backupKeyInfix
}

func (s *progressService) backupKey(t time.Time) string {
	return s.backupPrefix() + strconv.FormatInt(t.UnixMilli(), 10)
}

// Save writes the snapshot under the primary key plus a new backup key,
// then prunes old backups. It returns the number of backups kept.
func (s *progressService) Save(ctx context.Context, p *models.PersistedProgress) (int, error) {
	p.Version = models.ProgressVersion
	p.LastSavedAt = s.now()

	data, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to encode progress: %w", err)
	}

	if err := s.store.Set(ctx, s.primaryKey(), data); err != nil {
		return 0, fmt.Errorf("failed to write progress: %w", err)
	}

	// A failed backup write is not fatal; the primary already landed.
	if err := s.store.Set(ctx, s.backupKey(p.LastSavedAt), data); err != nil {
		s.logger.Warn("Failed to write progress backup", "error", err)
	}

	kept, err := s.pruneBackups(ctx)
	if err != nil {
		s.logger.Warn("Failed to prune progress backups", "error", err)
	}
	return kept, nil
}

// pruneBackups keeps only the newest retention backups. Returns how many
// remain.
func (s *progressService) pruneBackups(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx, s.backupPrefix())
	if err != nil {
		return 0, err
	}

	type stamped struct {
		key string
		ts  int64
	}
	backups := make([]stamped, 0, len(keys))
	for _, key := range keys {
		raw := strings.TrimPrefix(key, s.backupPrefix())
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		backups = append(backups, stamped{key: key, ts: ts})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].ts > backups[j].ts })

	for _, old := range backups[min(len(backups), s.retention):] {
		if err := s.store.Delete(ctx, old.key); err != nil {
			return 0, err
		}
	}
	return min(len(backups), s.retention), nil
}

// Load reads the primary snapshot, falling back to the newest parseable
// backup. Absence of any snapshot is reported as LoadedNothing.
func (s *progressService) Load(ctx context.Context) (*LoadOutcome, error) {
	if p, err := s.loadKey(ctx, s.primaryKey()); err == nil {
		migrated := s.migrate(p)
		return &LoadOutcome{Progress: p, Source: LoadedFromPrimary, Migrated: migrated}, nil
	} else if !isMissingOrCorrupt(err) {
		return nil, err
	}

	keys, err := s.store.Keys(ctx, s.backupPrefix())
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	for _, key := range keys {
		p, err := s.loadKey(ctx, key)
		if err != nil {
			s.logger.Warn("Skipping unreadable progress backup", "key", key, "error", err)
			continue
		}
		migrated := s.migrate(p)
		s.logger.Info("Progress restored from backup", "key", key)
		return &LoadOutcome{Progress: p, Source: LoadedFromBackup, Migrated: migrated}, nil
	}

	return &LoadOutcome{Source: LoadedNothing}, nil
}

func (s *progressService) loadKey(ctx context.Context, key string) (*models.PersistedProgress, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var p models.PersistedProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProgressCorrupt, err)
	}
	return &p, nil
}

func isMissingOrCorrupt(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, ErrProgressCorrupt)
}

// migrate brings an older snapshot up to the current format: missing
// fields get defaults, ledger entries with an unusable answer shape are
// dropped, and the chapter index is clamped into range. Reports whether
// anything changed.
func (s *progressService) migrate(p *models.PersistedProgress) bool {
	changed := false

	if p.Version != models.ProgressVersion {
		p.Version = models.ProgressVersion
		changed = true
	}
	if p.UserAnswers == nil {
		p.UserAnswers = make(map[models.QuestionID]models.AnswerRecord)
		changed = true
	}
	for id, rec := range p.UserAnswers {
		if !usableRecord(id, rec) {
			delete(p.UserAnswers, id)
			s.logger.Warn("Dropped malformed ledger entry during migration", "question_id", id)
			changed = true
		}
	}
	if p.CurrentChapter < 0 {
		p.CurrentChapter = 0
		changed = true
	}
	if s.chapters > 0 && p.CurrentChapter >= s.chapters {
		p.CurrentChapter = s.chapters - 1
		changed = true
	}
	return changed
}

// usableRecord rejects ledger entries that cannot have come from a
// valid submission: unparseable ids, unknown answer types, or a choice
// record with no selection.
func usableRecord(id models.QuestionID, rec models.AnswerRecord) bool {
	if _, _, err := id.Position(); err != nil {
		return false
	}
	if !rec.Answer.Type.Valid() {
		return false
	}
	if rec.Answer.Type.IsChoice() && rec.Answer.SelectedOption == nil {
		return false
	}
	return true
}

func (s *progressService) SaveUserInfo(ctx context.Context, info *models.UserInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, s.userKey(), data)
}

func (s *progressService) LoadUserInfo(ctx context.Context) (*models.UserInfo, error) {
	data, err := s.store.Get(ctx, s.userKey())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotRegistered
	}
	if err != nil {
		return nil, err
	}
	var info models.UserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProgressCorrupt, err)
	}
	return &info, nil
}

func (s *progressService) SaveSessionInfo(ctx context.Context, info *models.SessionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, s.sessionKey(), data)
}

func (s *progressService) LoadSessionInfo(ctx context.Context) (*models.SessionInfo, error) {
	data, err := s.store.Get(ctx, s.sessionKey())
	if err != nil {
		return nil, err
	}
	var info models.SessionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProgressCorrupt, err)
	}
	return &info, nil
}

// Reset removes the primary snapshot, every backup, and the identity and
// session keys.
func (s *progressService) Reset(ctx context.Context) error {
	keys, err := s.store.Keys(ctx, s.backupPrefix())
	if err != nil {
		return err
	}
	keys = append(keys, s.primaryKey(), s.userKey(), s.sessionKey())
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
