// Package conversation holds chat history per session.
//
// Each history starts with a fixed two-message seed that primes the
// assistant. The seed is never trimmed and Reset restores it.
package conversation

import (
	"sync"
	"time"
)

// Role is the speaker of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one history entry.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

const (
	seedPrompt = "You are a helpful project assistant. You can help with task management, " +
		"calendar events, and workflow automation. Be concise and friendly in your responses."
	seedGreeting = "Hello! I'm your project assistant. I can help you manage tasks, create " +
		"calendar events, and automate your workflow. I'll be concise and friendly in my " +
		"responses. How can I help you today?"
)

// Seed returns a fresh copy of the opening exchange.
func Seed() []Message {
	return []Message{
		{Role: RoleUser, Text: seedPrompt},
		{Role: RoleModel, Text: seedGreeting},
	}
}

// Session is one conversation. It is safe for concurrent use; callers that
// need a whole turn to be atomic hold TurnLock.
type Session struct {
	id          string
	maxMessages int

	// turn serializes whole turns; mu guards the fields below.
	turn sync.Mutex

	mu        sync.Mutex
	seed      []Message
	messages  []Message
	createdAt time.Time
	updatedAt time.Time
}

// NewSession returns a session holding only the seed. maxMessages caps the
// non-seed history; 0 is unbounded.
func NewSession(id string, maxMessages int) *Session {
	now := time.Now().UTC()
	return &Session{
		id:          id,
		maxMessages: maxMessages,
		seed:        Seed(),
		createdAt:   now,
		updatedAt:   now,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// TurnLock acquires the per-session turn lock and returns its release func.
func (s *Session) TurnLock() func() {
	s.turn.Lock()
	return s.turn.Unlock
}

// Append adds messages in order, dropping the oldest non-seed messages past
// the cap.
func (s *Session) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msgs...)
	if s.maxMessages > 0 && len(s.messages) > s.maxMessages {
		drop := len(s.messages) - s.maxMessages
		s.messages = append([]Message(nil), s.messages[drop:]...)
	}
	s.updatedAt = time.Now().UTC()
}

// AppendUser appends a user message.
func (s *Session) AppendUser(text string) { s.Append(Message{Role: RoleUser, Text: text}) }

// AppendModel appends a model message.
func (s *Session) AppendModel(text string) { s.Append(Message{Role: RoleModel, Text: text}) }

// History returns seed plus messages as a new slice.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, 0, len(s.seed)+len(s.messages))
	out = append(out, s.seed...)
	return append(out, s.messages...)
}

// Len returns the history length, seed included.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seed) + len(s.messages)
}

// Reset drops everything but the seed.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.updatedAt = time.Now().UTC()
}

// UpdatedAt returns the time of the last change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
