package agent

import (
	"sync"

	"github.com/lamberr/ragline/plugin/ai"
)

// HistoryStore keeps the ordered in-memory message log per sender.
// Sessions are created lazily on first access and are append-only except
// for an explicit Clear. All methods are safe for concurrent use across
// senders; callers that need read-modify-write atomicity for one sender
// serialize through the orchestrator's per-sender lock.
type HistoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]ai.Message
}

// NewHistoryStore creates an empty history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		sessions: make(map[string][]ai.Message),
	}
}

// Get returns a copy of the sender's message log, creating the session
// if it does not exist. Retrieval never fails.
func (s *HistoryStore) Get(senderID string) []ai.Message {
	s.mu.RLock()
	messages, ok := s.sessions[senderID]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		if _, ok := s.sessions[senderID]; !ok {
			s.sessions[senderID] = []ai.Message{}
		}
		messages = s.sessions[senderID]
		s.mu.Unlock()
	}

	out := make([]ai.Message, len(messages))
	copy(out, messages)
	return out
}

// Append adds messages to the sender's log in the order given.
func (s *HistoryStore) Append(senderID string, messages ...ai.Message) {
	if len(messages) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[senderID] = append(s.sessions[senderID], messages...)
}

// Clear drops the sender's log.
func (s *HistoryStore) Clear(senderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, senderID)
}

// Len returns the number of messages stored for the sender.
func (s *HistoryStore) Len(senderID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[senderID])
}
