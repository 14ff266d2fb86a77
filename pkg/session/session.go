// Package session provides calculator sessions and their store.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/abacus/pkg/calc"
	"github.com/ternarybob/abacus/pkg/keymap"
)

var (
	// ErrNotFound is returned for unknown session IDs.
	ErrNotFound = errors.New("session not found")

	// ErrNoHistoryPanel is returned when clearing history on a profile
	// that does not expose it.
	ErrNoHistoryPanel = errors.New("profile has no history panel")
)

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	ID         string       `json:"id"`
	Profile    string       `json:"profile"`
	Display    string       `json:"display"`
	Raw        string       `json:"raw"`
	Annotation string       `json:"annotation"`
	Phase      string       `json:"phase"`
	Error      bool         `json:"error"`
	Fault      string       `json:"fault,omitempty"`
	History    []calc.Entry `json:"history"`
	CreatedAt  time.Time    `json:"created_at"`
	LastActive time.Time    `json:"last_active"`
}

// Session owns one calculator state. Inputs are applied one event at a
// time under the session lock.
type Session struct {
	mu         sync.Mutex
	id         string
	engine     *calc.Engine
	keys       *keymap.Keymap
	state      calc.State
	createdAt  time.Time
	lastActive time.Time
}

// New creates a session in the engine's initial state.
func New(id string, engine *calc.Engine, keys *keymap.Keymap) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		engine:     engine,
		keys:       keys,
		state:      engine.Initial(),
		createdAt:  now,
		lastActive: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Profile returns the profile the session was created with.
func (s *Session) Profile() calc.Profile {
	return s.engine.Profile()
}

// Keymap returns the session's key translator.
func (s *Session) Keymap() *keymap.Keymap {
	return s.keys
}

// LastActive returns the time of the last input.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Press applies keys in order and returns the resulting snapshot.
func (s *Session) Press(keys ...calc.Key) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		s.state = s.engine.Apply(s.state, k)
	}
	s.lastActive = time.Now()
	return s.snapshotLocked()
}

// PressTokens translates tokens with the session keymap and applies them.
// Nothing is applied if any token is unbound.
func (s *Session) PressTokens(tokens []string) (Snapshot, error) {
	keys, err := s.keys.TranslateAll(tokens)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Press(keys...), nil
}

// PressSequence parses a line such as "12 + 3 =" and applies it.
func (s *Session) PressSequence(line string) (Snapshot, error) {
	keys, err := s.keys.ParseSequence(line)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Press(keys...), nil
}

// ClearHistory empties the session history. Only profiles with a history
// panel allow it.
func (s *Session) ClearHistory() (Snapshot, error) {
	if !s.Profile().HistoryPanel {
		return Snapshot{}, fmt.Errorf("clear history: %w: %s", ErrNoHistoryPanel, s.Profile().Name)
	}
	return s.Press(calc.ClearHistory), nil
}

// State returns a copy of the raw calculator state.
func (s *Session) State() calc.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:         s.id,
		Profile:    s.engine.Profile().Name,
		Display:    s.engine.Display(s.state),
		Raw:        s.state.Display,
		Annotation: s.engine.Annotation(s.state),
		Phase:      s.state.Phase().String(),
		Error:      s.state.IsError(),
		History:    s.engine.History(s.state),
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
	}
	if s.state.Fault != nil {
		snap.Fault = s.state.Fault.Error()
	}
	return snap
}

// Factory builds the engine and keymap for a named profile.
type Factory func(profile string) (*calc.Engine, *keymap.Keymap, error)

// Store manages live sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
}

// NewStore creates an empty store.
func NewStore(factory Factory) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Create starts a new session with the named profile.
func (st *Store) Create(profile string) (*Session, error) {
	engine, keys, err := st.factory(profile)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s := New(uuid.NewString(), engine, keys)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.id] = s
	return s, nil
}

// Get retrieves a session.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete removes a session.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(st.sessions, id)
	return nil
}

// List returns all session IDs, sorted.
func (st *Store) List() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Prune removes sessions idle for longer than maxIdle and returns their IDs.
func (st *Store) Prune(maxIdle time.Duration) []string {
	cutoff := time.Now().Add(-maxIdle)

	st.mu.Lock()
	defer st.mu.Unlock()

	var pruned []string
	for id, s := range st.sessions {
		if s.LastActive().Before(cutoff) {
			delete(st.sessions, id)
			pruned = append(pruned, id)
		}
	}
	sort.Strings(pruned)
	return pruned
}
