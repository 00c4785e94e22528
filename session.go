package authclient

import "sync"

// SessionState is the single source of truth for the authenticated user
// record and the bearer token shadow. One instance represents one logical
// application session; every component holding the same instance observes
// the same user and token.
//
// Writers are limited by convention: Auth (and the client acting on an
// Outcome.InvalidateSession flag) writes the user slot, TokenStore writes
// the token slot.
type SessionState struct {
	key string

	mu          sync.RWMutex
	user        any
	token       string
	tokenLoaded bool
}

// NewSessionState creates a session slot identified by key. An empty key
// falls back to DefaultUserStateKey.
func NewSessionState(key string) *SessionState {
	if key == "" {
		key = DefaultUserStateKey
	}
	return &SessionState{key: key}
}

func (s *SessionState) Key() string {
	return s.key
}

// User returns the current user record, or nil when anonymous.
func (s *SessionState) User() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *SessionState) SetUser(user any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *SessionState) ClearUser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// Authenticated reports whether a user record is present.
func (s *SessionState) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Token returns the in-memory token shadow. The second return reports
// whether the shadow has been populated since boot; a false value tells the
// store to consult its backend.
func (s *SessionState) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.tokenLoaded
}

// SetToken updates the shadow. Last write wins across store instances
// sharing this session.
func (s *SessionState) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.tokenLoaded = true
}
