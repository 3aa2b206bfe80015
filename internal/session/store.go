package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/getcooked/interview-gateway/internal/observability"
)

// ErrNotFound is returned when no session is registered under an identifier
var ErrNotFound = errors.New("session not found")

// entry pairs a session record with its two locks. turn is a one-slot
// semaphore serializing whole update cycles for one session; blocked senders
// queue in arrival order. mu guards the record itself so readers are never
// held up by a cycle waiting on an upstream service.
type entry struct {
	turn chan struct{}
	mu   sync.RWMutex
	data Session
}

// Store is the process-wide registry of sessions. Lookups on different
// sessions never contend beyond the short registry lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
	logger   zerolog.Logger
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
		logger:   observability.GetLogger().With().Str("component", "session_store").Logger(),
	}
}

// Create registers a new session for the question and returns its identifier
func (st *Store) Create(q Question) string {
	now := st.now()
	e := &entry{
		turn: make(chan struct{}, 1),
		data: Session{Question: q, CreatedAt: now, UpdatedAt: now},
	}

	st.mu.Lock()
	id := uuid.NewString()
	for _, taken := st.sessions[id]; taken; _, taken = st.sessions[id] {
		id = uuid.NewString()
	}
	e.data.ID = id
	st.sessions[id] = e
	count := len(st.sessions)
	st.mu.Unlock()

	observability.SetActiveSessions(count)
	st.logger.Debug().Str("session_id", id).Str("title", q.Title).Msg("Session created")
	return id
}

func (st *Store) lookup(id string) (*entry, error) {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Get returns a copy of the session record
func (st *Store) Get(id string) (Session, error) {
	e, err := st.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.data, nil
}

// Update applies fn to the session under its write lock and returns the resulting copy.
// fn must not block on I/O.
func (st *Store) Update(id string, fn func(*Session)) (Session, error) {
	e, err := st.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	question := e.data.Question
	fn(&e.data)
	e.data.ID = id
	e.data.Question = question
	e.data.UpdatedAt = st.now()
	return e.data, nil
}

// Exclusive runs fn while holding the session's cycle slot, so cycles on the
// same session run one at a time in arrival order. Waiting honours ctx.
func (st *Store) Exclusive(ctx context.Context, id string, fn func() error) error {
	e, err := st.lookup(id)
	if err != nil {
		return err
	}

	select {
	case e.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.turn }()

	return fn()
}

// Len returns the number of registered sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions that have not been updated within ttl and returns how many were removed.
// Sessions holding their cycle slot are kept. A non-positive ttl removes nothing.
func (st *Store) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-ttl)

	st.mu.Lock()
	removed := 0
	for id, e := range st.sessions {
		// a session with a cycle in flight or queued is never idle
		if len(e.turn) > 0 {
			continue
		}
		e.mu.RLock()
		idle := e.data.UpdatedAt.Before(cutoff)
		e.mu.RUnlock()
		if idle {
			delete(st.sessions, id)
			removed++
		}
	}
	count := len(st.sessions)
	st.mu.Unlock()

	if removed > 0 {
		observability.SetActiveSessions(count)
		st.logger.Info().Int("removed", removed).Int("remaining", count).Msg("Idle sessions swept")
	}
	return removed
}

// RunJanitor sweeps idle sessions every interval until ctx is cancelled
func (st *Store) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(ttl)
		}
	}
}
