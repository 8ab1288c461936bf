package bot

import (
	"sync"

	"chembot/entity"
)

// Step is the position of a user inside a multi-message conversation.
type Step int

const (
	StepNone Step = iota

	// onboarding
	StepFullName
	StepNationalId
	StepStudentId
	StepPhone

	// profile editing
	StepProfileValue

	// receipt upload for a paid event
	StepReceipt

	// event creation wizard
	StepEventTitle
	StepEventType
	StepEventDate
	StepEventLocation
	StepEventCapacity
	StepEventCost
	StepEventCard
	StepEventDescription

	// event editing and toggling
	StepEditValue
	StepToggleReason

	// channel broadcast
	StepAnnounceText
)

// Session is the conversation state of one user. Every flow that leaves a
// conversation, normally or not, must go through SessionStore.Clear so no
// stale step can swallow the next unrelated message.
type Session struct {
	Step    Step
	Draft   *entity.User
	Event   *entity.Event
	EventId int64
	Field   string
}

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// Get returns the user's session, never nil.
func (s *SessionStore) Get(userId int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[userId]; ok {
		return session
	}
	return &Session{}
}

func (s *SessionStore) Set(userId int64, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userId] = session
}

func (s *SessionStore) Clear(userId int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userId)
}

// Active reports whether the user is mid-conversation.
func (s *SessionStore) Active(userId int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userId]
	return ok && session.Step != StepNone
}
