// Package memory implements progression.Store and progression.SessionStore
// in process memory. It backs the "memory" database driver and the
// application-layer tests, and follows the same contracts as the SQL stores.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// Store keeps progressions and sessions in maps guarded by one mutex.
type Store struct {
	mu           sync.Mutex
	progressions map[string]*progression.UserProgression
	sessions     map[string]*progression.StudySession
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		progressions: make(map[string]*progression.UserProgression),
		sessions:     make(map[string]*progression.StudySession),
	}
}

var (
	_ progression.Store        = (*Store)(nil)
	_ progression.SessionStore = (*Store)(nil)
)

// ─────────────────────────────────────────────────────────────────────────────
// Progressions
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) Create(_ context.Context, p *progression.UserProgression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progressions[p.UserID]; ok {
		return shared.ErrProgressionExists
	}
	p.Version = 1
	s.progressions[p.UserID] = p.Clone()
	return nil
}

func (s *Store) Load(_ context.Context, userID string) (*progression.UserProgression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progressions[userID]
	if !ok {
		return nil, shared.ErrProgressionNotFound
	}
	return p.Clone(), nil
}

func (s *Store) Save(_ context.Context, p *progression.UserProgression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(p)
}

func (s *Store) SaveRewarded(_ context.Context, p *progression.UserProgression, sessionID string, xp int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != p.UserID {
		return shared.ErrSessionNotFound
	}
	if sess.IsRewarded() {
		return shared.ErrSessionAlreadyRewarded
	}
	if err := s.checkVersionLocked(p); err != nil {
		return err
	}

	sess.MarkRewarded(xp, at)
	return s.saveLocked(p)
}

func (s *Store) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progressions[userID]; !ok {
		return shared.ErrProgressionNotFound
	}
	delete(s.progressions, userID)
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *Store) ListStale(_ context.Context, before time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := make([]*progression.UserProgression, 0)
	for _, p := range s.progressions {
		if p.LastCheckedAt.Before(before) {
			stale = append(stale, p)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].LastCheckedAt.Before(stale[j].LastCheckedAt)
	})

	limit = shared.BatchLimit(limit)
	if len(stale) > limit {
		stale = stale[:limit]
	}

	ids := make([]string, len(stale))
	for i, p := range stale {
		ids[i] = p.UserID
	}
	return ids, nil
}

func (s *Store) checkVersionLocked(p *progression.UserProgression) error {
	current, ok := s.progressions[p.UserID]
	if !ok {
		return shared.ErrProgressionNotFound
	}
	if current.Version != p.Version {
		return shared.ErrVersionConflict
	}
	return nil
}

func (s *Store) saveLocked(p *progression.UserProgression) error {
	if err := s.checkVersionLocked(p); err != nil {
		return err
	}
	p.Version++
	s.progressions[p.UserID] = p.Clone()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) CreateSession(_ context.Context, sess *progression.StudySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progressions[sess.UserID]; !ok {
		return shared.ErrProgressionNotFound
	}
	if _, ok := s.sessions[sess.ID]; ok {
		return shared.ErrSessionExists
	}
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *Store) GetSession(_ context.Context, userID, sessionID string) (*progression.StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, shared.ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

func (s *Store) FinishSession(_ context.Context, sess *progression.StudySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[sess.ID]
	if !ok || stored.UserID != sess.UserID {
		return shared.ErrSessionNotFound
	}
	if stored.Completed {
		return shared.ErrSessionAlreadyFinished
	}

	stored.ActualDuration = copyInt(sess.ActualDuration)
	stored.FocusRating = copyInt(sess.FocusRating)
	stored.EndTime = copyTime(sess.EndTime)
	stored.Completed = true
	return nil
}

func (s *Store) ListSessions(_ context.Context, userID string, limit int) ([]*progression.StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*progression.StudySession
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})

	limit = shared.BatchLimit(limit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneSession(s *progression.StudySession) *progression.StudySession {
	c := *s
	c.ActualDuration = copyInt(s.ActualDuration)
	c.FocusRating = copyInt(s.FocusRating)
	c.XPEarned = copyInt(s.XPEarned)
	c.EndTime = copyTime(s.EndTime)
	c.RewardedAt = copyTime(s.RewardedAt)
	return &c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
