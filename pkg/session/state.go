package session

import (
	"sync"
	"time"
)

// Credentials is the token pair a client presents and rotates.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// State owns the current credentials. Readers take snapshots; only the Guard's
// refresh path writes. Every write bumps the generation so a caller can tell
// whether the token it failed with has already been rotated.
type State struct {
	mu         sync.RWMutex
	creds      Credentials
	generation uint64
	valid      bool
}

// NewState seeds the state with credentials obtained at sign-in.
func NewState(creds Credentials) *State {
	return &State{creds: creds, generation: 1, valid: creds.AccessToken != ""}
}

// Snapshot returns the current credentials, their generation and whether the
// session is still usable.
func (s *State) Snapshot() (Credentials, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, s.generation, s.valid
}

// Valid reports whether the session has not been invalidated.
func (s *State) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid
}

func (s *State) replace(creds Credentials) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if creds.RefreshToken == "" {
		creds.RefreshToken = s.creds.RefreshToken
	}
	s.creds = creds
	s.generation++
	s.valid = creds.AccessToken != ""
	return s.generation
}

func (s *State) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.generation++
	s.valid = false
}
