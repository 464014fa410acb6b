package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Static errors for err113 compliance.
var (
	ErrIncompleteSession = errors.New("token and record must be set together")
	ErrRecordNotObject   = errors.New("auth record must be a JSON object")
)

// State is one session: the token, the auth record it belongs to and the
// collection that record lives in.
type State struct {
	Token      string
	Record     json.RawMessage
	Collection string
}

// IsZero reports whether the state holds no session.
func (s State) IsZero() bool {
	return s.Token == "" && len(s.Record) == 0
}

func (s State) clone() State {
	out := s
	if s.Record != nil {
		out.Record = append(json.RawMessage(nil), s.Record...)
	}

	return out
}

// Persister saves sessions outside the process, e.g. to a CLI config file.
type Persister interface {
	PersistSession(state State) error
}

// Store holds the session of one client. Reads never block each other and a
// write replaces the whole state at once, so readers never see a token
// without its record.
//
// Every commit takes a version. Persists run one at a time in version
// order; a persist that arrives after a newer one has landed is dropped.
type Store struct {
	mutex     sync.RWMutex
	state     State
	version   uint64
	persister Persister

	persistMutex sync.Mutex
	persisted    uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// SetPersister registers p to receive every committed change.
func (s *Store) SetPersister(p Persister) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.persister = p
}

// Token returns the current token.
func (s *Store) Token() (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.state.Token, s.state.Token != ""
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.state.clone()
}

// Save replaces the state. Token and record must both be present; a zero
// State is rejected too, use Clear for that.
func (s *Store) Save(state State) error {
	if state.Token == "" || len(bytes.TrimSpace(state.Record)) == 0 {
		return ErrIncompleteSession
	}

	trimmed := bytes.TrimSpace(state.Record)
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrRecordNotObject
	}

	state.Record = trimmed

	s.mutex.Lock()
	s.state = state.clone()
	s.version++
	version := s.version
	persister := s.persister
	s.mutex.Unlock()

	s.persist(persister, state, version)

	return nil
}

// Clear drops the session. Clearing an empty store is a no-op.
func (s *Store) Clear() {
	s.mutex.Lock()
	wasSet := !s.state.IsZero()
	s.state = State{}
	s.version++
	version := s.version
	persister := s.persister
	s.mutex.Unlock()

	if wasSet {
		s.persist(persister, State{}, version)
	}
}

func (s *Store) persist(persister Persister, state State, version uint64) {
	if persister == nil {
		return
	}

	s.persistMutex.Lock()
	defer s.persistMutex.Unlock()

	if version <= s.persisted {
		return
	}

	s.persisted = version

	err := persister.PersistSession(state.clone())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to persist session: %v\n", err)
	}
}
