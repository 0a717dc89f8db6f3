// Package session stores per-session conversation history. History is
// append-only during a session; serialization of concurrent turns for the
// same session is the orchestrator's job, not the store's.
package session

import (
	"context"
	"sync"
	"time"

	"jobchat/internal/model"
)

// Store persists ordered conversation turns per session.
type Store interface {
	// History returns the session's turns in append order. A session that was
	// never written to yields an empty history, not an error.
	History(ctx context.Context, sessionID string) ([]model.Turn, error)

	// Append adds turns to the end of the session's history.
	Append(ctx context.Context, sessionID string, turns ...model.Turn) error
}

// MemoryStore is an in-process session store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	limit    int
}

type memorySession struct {
	turns    []model.Turn
	lastSeen time.Time
}

// NewMemoryStore creates a memory store keeping at most limit turns per
// session (0 means unlimited).
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		limit:    limit,
	}
}

// History implements Store.
func (s *MemoryStore) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	out := make([]model.Turn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, turns ...model.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}

	sess.turns = append(sess.turns, turns...)
	if s.limit > 0 && len(sess.turns) > s.limit {
		sess.turns = sess.turns[len(sess.turns)-s.limit:]
	}
	sess.lastSeen = time.Now()

	return nil
}

// EvictIdle removes sessions not written to for at least maxIdle and returns
// how many were evicted.
func (s *MemoryStore) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
