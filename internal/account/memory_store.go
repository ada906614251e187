package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryStore builds an in-memory account store for testing.
func NewMemoryStore() Store {
	return &memoryStore{accounts: make(map[string]Account)}
}

func (s *memoryStore) Find(_ context.Context, f Filter) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f.ID == "" && f.Email == "" && f.Mobile == "" {
		return Account{}, ErrNotFound
	}
	for _, a := range s.accounts {
		if f.ID != "" && a.ID != f.ID {
			continue
		}
		if f.Email != "" && a.Email != f.Email {
			continue
		}
		if f.Mobile != "" && a.Mobile != f.Mobile {
			continue
		}
		return a, nil
	}
	return Account{}, ErrNotFound
}

func (s *memoryStore) Create(_ context.Context, a Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if (a.Email != "" && existing.Email == a.Email) || (a.Mobile != "" && existing.Mobile == a.Mobile) {
			return "", ErrDuplicate
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	s.accounts[a.ID] = a
	return a.ID, nil
}

func (s *memoryStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = passwordHash
	s.accounts[id] = a
	return nil
}
