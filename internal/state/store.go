package state

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"billing/internal/logger"
)

// Persister saves and restores State. Load returns nil, nil when nothing is stored yet.
type Persister interface {
	Load() (*State, error)
	Save(*State) error
	Close() error
}

// Store is the single writer of State. Mutations work on a copy that replaces the
// current state only after fn succeeds and the copy is persisted, so a failed
// mutation leaves nothing behind.
type Store struct {
	mu      sync.Mutex
	current *State
	persist Persister

	subMu       sync.Mutex
	subscribers []func()

	log zerolog.Logger
}

// Open loads state from p, seeding Default() on first use. A nil p keeps state in memory only.
func Open(p Persister) (*Store, error) {
	const op = "Open"

	s := &Store{persist: p, log: logger.WithComponent("state")}

	var loaded *State
	if p != nil {
		var err error
		loaded, err = p.Load()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to load state: %w", op, err)
		}
	}
	if loaded == nil {
		loaded = Default()
		if p != nil {
			if err := p.Save(loaded); err != nil {
				return nil, fmt.Errorf("%s: failed to seed state: %w", op, err)
			}
		}
		s.log.Info().Msg("Seeded fresh local state")
	}
	loaded.Normalize()
	s.current = loaded
	return s, nil
}

// NewMemory returns an in-memory store holding st.
func NewMemory(st *State) *Store {
	st.Normalize()
	return &Store{current: st, log: logger.WithComponent("state")}
}

// View runs fn against the current state. fn must not modify it or retain it.
func (s *Store) View(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.current)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Update applies fn as one atomic mutation and notifies subscribers on success.
func (s *Store) Update(op string, fn func(*State) error) error {
	if err := s.apply(op, fn); err != nil {
		return err
	}
	s.notify()
	return nil
}

// Replace applies fn like Update but does not notify subscribers. Pulls use it so
// that adopting remote state does not schedule a push of the same state.
func (s *Store) Replace(op string, fn func(*State) error) error {
	return s.apply(op, fn)
}

// UpdateSession changes session fields only, without notifying subscribers.
func (s *Store) UpdateSession(fn func(*Session)) error {
	return s.apply("UpdateSession", func(st *State) error {
		fn(&st.Session)
		return nil
	})
}

// Session returns the current session record.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Session
}

// Subscribe registers fn to run after every successful Update.
func (s *Store) Subscribe(fn func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Close closes the persister.
func (s *Store) Close() error {
	if s.persist == nil {
		return nil
	}
	return s.persist.Close()
}

func (s *Store) apply(op string, fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if s.persist != nil {
		if err := s.persist.Save(next); err != nil {
			s.log.Error().Err(err).Str("op", op).Msg("Failed to persist state")
			return fmt.Errorf("%s: failed to persist state: %w", op, err)
		}
	}
	s.current = next
	return nil
}

func (s *Store) notify() {
	s.subMu.Lock()
	subs := append([]func(){}, s.subscribers...)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
