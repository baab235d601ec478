// Package session keeps per-analysis assumption-check results and sample size
// in memory while a user works through test selection.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"statadvisor/domain/assumption"
	"statadvisor/domain/core"
	"statadvisor/internal"
)

// DefaultTTL is used when a store is created without a TTL
const DefaultTTL = 2 * time.Hour

// Session is a snapshot of one analysis session
type Session struct {
	ID         core.SessionID    `json:"id"`
	DatasetID  core.DatasetID    `json:"dataset_id,omitempty"`
	SampleSize int               `json:"sample_size"`
	Checks     assumption.Checks `json:"checks"`
	CreatedAt  core.Timestamp    `json:"created_at"`
	UpdatedAt  core.Timestamp    `json:"updated_at"`
	ExpiresAt  core.Timestamp    `json:"expires_at"`
}

func (s *Session) snapshot() Session {
	out := *s
	out.Checks = s.Checks.Clone()
	return out
}

// Store is a concurrency-safe in-memory session store with sliding TTL expiry
type Store struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *internal.Logger
}

// NewStore creates a store. ttl <= 0 uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[core.SessionID]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   internal.DefaultLogger.WithComponent("session"),
	}
}

// TTL returns the idle lifetime of a session
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create starts a session with no checks
func (s *Store) Create(sampleSize int, datasetID core.DatasetID) (Session, error) {
	if sampleSize < 0 {
		return Session{}, core.NewValidationError("sample_size", "must not be negative")
	}

	now := s.now()
	sess := &Session{
		ID:         core.NewSessionID(),
		DatasetID:  datasetID,
		SampleSize: sampleSize,
		Checks:     assumption.Checks{},
		CreatedAt:  core.NewTimestamp(now),
		UpdatedAt:  core.NewTimestamp(now),
		ExpiresAt:  core.NewTimestamp(now.Add(s.ttl)),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("created session %s (n=%d)", sess.ID, sampleSize)
	return sess.snapshot(), nil
}

// Get returns a snapshot of the session and extends its expiry
func (s *Store) Get(id core.SessionID) (Session, error) {
	var out Session
	err := s.update(id, nil, &out)
	return out, err
}

// PutCheck records one assumption-check result, replacing any earlier one
func (s *Store) PutCheck(id core.SessionID, key string, result assumption.CheckResult) (Session, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Session{}, core.NewValidationError("assumption", "key is required")
	}
	var out Session
	err := s.update(id, func(sess *Session) error {
		sess.Checks[key] = result
		return nil
	}, &out)
	return out, err
}

// MergeChecks records several results at once. Existing keys not present in
// checks are kept.
func (s *Store) MergeChecks(id core.SessionID, checks assumption.Checks) (Session, error) {
	var out Session
	err := s.update(id, func(sess *Session) error {
		for key, result := range checks {
			sess.Checks[key] = result
		}
		return nil
	}, &out)
	return out, err
}

// SetSampleSize replaces the session's sample size
func (s *Store) SetSampleSize(id core.SessionID, sampleSize int) (Session, error) {
	if sampleSize < 0 {
		return Session{}, core.NewValidationError("sample_size", "must not be negative")
	}
	var out Session
	err := s.update(id, func(sess *Session) error {
		sess.SampleSize = sampleSize
		return nil
	}, &out)
	return out, err
}

// Delete ends a session
func (s *Store) Delete(id core.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess, s.now()) {
		delete(s.sessions, id)
		return notFound(id)
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet swept
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes every session expired at now and returns how many were removed
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(s.now()); removed > 0 {
				s.logger.Info("swept %d expired sessions", removed)
			}
		}
	}
}

// update applies mutate, if any, and slides the expiry forward
func (s *Store) update(id core.SessionID, mutate func(*Session) error, out *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess, now) {
		return notFound(id)
	}
	if mutate != nil {
		if err := mutate(sess); err != nil {
			return err
		}
		sess.UpdatedAt = core.NewTimestamp(now)
	}
	sess.ExpiresAt = core.NewTimestamp(now.Add(s.ttl))
	*out = sess.snapshot()
	return nil
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return !now.Before(sess.ExpiresAt.Time())
}

func notFound(id core.SessionID) error {
	return fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
}
