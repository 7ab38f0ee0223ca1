package auth

import (
	"context"
	"sync"
)

// MemoryUsers is an in-process UserRepository.
type MemoryUsers struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]User)}
}

func (m *MemoryUsers) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return User{}, ErrUserExists
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.Email] = u
	return u, nil
}

func (m *MemoryUsers) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
