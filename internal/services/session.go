package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionData holds the fields collected and derived during a conversation
type SessionData struct {
	DisplayName string `json:"displayname"`
	Email       string `json:"email"`
	Grade       int    `json:"grade"`
	Semester    int    `json:"semester"`
	Referral    string `json:"referral"`

	// StudentID is set if and only if the session operates on a
	// pre-existing, not-yet-enrolled admission record.
	StudentID *uint `json:"student_id,omitempty"`

	DetailToUpdate          string     `json:"detail_to_update,omitempty"`
	SlotsList               string     `json:"slots_list,omitempty"` // rendered text cache
	PendingSlot             *time.Time `json:"pending_slot,omitempty"`
	ExistingAppointmentDate *time.Time `json:"existing_appointment_date,omitempty"`
}

// Session represents one user's conversation state
type Session struct {
	SessionID      string      `json:"session_id"`
	UserID         string      `json:"user_id"` // phone number
	State          State       `json:"state"`
	PreviousState  State       `json:"previous_state,omitempty"` // set only while an FAQ interrupt is active
	IntentDisabled bool        `json:"intent_disabled"`
	Data           SessionData `json:"data"`
	CreatedAt      time.Time   `json:"created_at"`
	LastActive     time.Time   `json:"last_active"`
}

// NewSession creates a fresh session for a user
func NewSession(userID string, state State) *Session {
	now := time.Now()
	return &Session{
		SessionID:  uuid.NewString(),
		UserID:     userID,
		State:      state,
		Data:       SessionData{},
		CreatedAt:  now,
		LastActive: now,
	}
}

// sessionEntry pairs a session slot with its per-user lock. The lock outlives
// the session so that create/delete take part in the same serialization.
type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// SessionStore holds one mutable conversation record per user. All state
// transitions for one user must run under LockUser; different users proceed
// in parallel.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		entries: make(map[string]*sessionEntry),
	}
}

func (s *SessionStore) entry(userID string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[userID]
	if !exists {
		e = &sessionEntry{}
		s.entries[userID] = e
	}
	return e
}

// LockUser acquires the per-user lock and returns the unlock function.
// Messages from the same user are handled strictly in arrival order.
func (s *SessionStore) LockUser(userID string) func() {
	e := s.entry(userID)
	e.mu.Lock()
	return e.mu.Unlock
}

// Get returns the user's session, or nil when none exists.
// Caller must hold the user's lock.
func (s *SessionStore) Get(userID string) *Session {
	return s.entry(userID).session
}

// Put stores the session. Caller must hold the user's lock.
func (s *SessionStore) Put(session *Session) {
	session.LastActive = time.Now()
	e := s.entry(session.UserID)

	// The pointer write happens under the store lock too, so monitoring
	// snapshots see a consistent view.
	s.mu.Lock()
	e.session = session
	s.mu.Unlock()
}

// Delete removes the user's session. Caller must hold the user's lock.
func (s *SessionStore) Delete(userID string) {
	e := s.entry(userID)

	s.mu.Lock()
	e.session = nil
	s.mu.Unlock()
}

// ActiveSessions returns a snapshot of all live sessions (for monitoring)
func (s *SessionStore) ActiveSessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := []*Session{}
	for _, e := range s.entries {
		if e.session != nil {
			copied := *e.session
			sessions = append(sessions, &copied)
		}
	}
	return sessions
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.entries {
		if e.session != nil {
			count++
		}
	}
	return count
}
