package auth

import (
	"context"
	"strings"
	"sync"

	"spendwise/internal/core"
)

// MemoryRepository keeps users in process memory. Usernames are compared
// case-insensitively.
type MemoryRepository struct {
	mu     sync.RWMutex
	users  map[string]User
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]User), nextID: 1}
}

func (r *MemoryRepository) CreateUser(_ context.Context, u User) (User, error) {
	key := strings.ToLower(u.Username)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[key]; ok {
		return User{}, core.Conflict("username already exists")
	}
	u.ID = r.nextID
	r.nextID++
	r.users[key] = u
	return u, nil
}

func (r *MemoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[strings.ToLower(username)]
	if !ok {
		return User{}, core.NotFound("user")
	}
	return u, nil
}

var _ Repository = (*MemoryRepository)(nil)
