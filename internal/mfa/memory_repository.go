package mfa

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.Mutex
	codes map[string]Code
}

// NewMemoryRepository builds an in-memory code store. It does not check that
// the user exists.
func NewMemoryRepository() Repository {
	return &memoryRepository{codes: make(map[string]Code)}
}

func (r *memoryRepository) Issue(_ context.Context, next Code, keep KeepFunc) (Code, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.codes[next.UserID]; ok && keep != nil && keep(current) {
		return current, false, nil
	}
	r.codes[next.UserID] = next
	return next, true, nil
}

func (r *memoryRepository) Find(_ context.Context, userID string) (Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[userID]
	if !ok {
		return Code{}, ErrNotFound
	}
	return code, nil
}

func (r *memoryRepository) Delete(_ context.Context, userID, codeHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code, ok := r.codes[userID]; ok && code.CodeHash == codeHash {
		delete(r.codes, userID)
	}
	return nil
}
