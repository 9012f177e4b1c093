package credentials

import (
	"context"
	"sync"
)

// MemoryStore keeps the credential and record in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	token  string
	record PushRecord
}

// NewMemoryStore creates a store holding token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: normalizeToken(token)}
}

// Token returns the held credential.
func (s *MemoryStore) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// SetToken replaces the held credential.
func (s *MemoryStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = normalizeToken(token)
	return nil
}

// LoadRecord returns the held push record.
func (s *MemoryStore) LoadRecord(context.Context) (PushRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record, nil
}

// SaveRecord replaces the held push record.
func (s *MemoryStore) SaveRecord(_ context.Context, rec PushRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = rec
	return nil
}

// ClearRecord resets the push record to zero.
func (s *MemoryStore) ClearRecord(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = PushRecord{}
	return nil
}
