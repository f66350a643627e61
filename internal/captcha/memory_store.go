package captcha

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
	now        func() time.Time
}

// NewMemoryStore builds an in-memory challenge store for tests and
// development mode. Expired entries are swept on each Put.
func NewMemoryStore() Store {
	return &memoryStore{challenges: make(map[string]Challenge), now: time.Now}
}

func (s *memoryStore) Put(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for token, existing := range s.challenges {
		if now.After(existing.ExpiresAt) {
			delete(s.challenges, token)
		}
	}

	s.challenges[ch.Token] = ch
	return nil
}

func (s *memoryStore) Consume(_ context.Context, token string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[token]
	if !ok {
		return Challenge{}, ErrTokenConsumed
	}
	delete(s.challenges, token)

	if s.now().After(ch.ExpiresAt) {
		return Challenge{}, ErrTokenConsumed
	}
	return ch, nil
}
