package app

import (
	"sync"
	"time"
)

// SessionStore tracks per-user intake state: whether the category menu has
// been sent and when. An entry is created on first contact and evicted when
// a ticket is created; an expired menu timestamp counts as no menu, so
// entries never pin stale state. The per-entry mutex is the advisory lock
// that serializes the check-then-send-menu window for one user.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*intakeSession
}

type intakeSession struct {
	mu         sync.Mutex
	menuSentAt time.Time
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[string]*intakeSession)}
}

// entry returns the session for a user, creating it on first contact.
func (s *SessionStore) entry(userID string) *intakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.entries[userID]
	if !ok {
		sess = &intakeSession{}
		s.entries[userID] = sess
	}
	return sess
}

// Evict removes a user's session. Called once their ticket exists.
func (s *SessionStore) Evict(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// menuOutstanding reports whether a still-valid menu was already sent.
// Caller must hold the session's lock.
func (sess *intakeSession) menuOutstanding(now time.Time, validity time.Duration) bool {
	return !sess.menuSentAt.IsZero() && now.Sub(sess.menuSentAt) <= validity
}
