package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]User
	byNIK map[string]string
}

// NewMemoryRepository builds an in-memory user store for tests and
// development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{byID: make(map[string]User), byNIK: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byNIK[user.NIK]; exists {
		return ErrDuplicateNIK
	}
	for _, existing := range r.byID {
		if existing.Email == user.Email || existing.Whatsapp == user.Whatsapp {
			return ErrDuplicateIdentity
		}
	}
	r.byID[user.ID] = user
	r.byNIK[user.NIK] = user.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByNIK(_ context.Context, nik string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byNIK[nik]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByEmailOrPhone(_ context.Context, identifier string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.byID {
		if user.Email == identifier || user.Whatsapp == identifier {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}
