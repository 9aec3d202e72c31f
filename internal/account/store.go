package account

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists users.
type Store interface {
	CreateUser(ctx context.Context, u User) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUsers(ctx context.Context, ids []string) ([]User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	GetUserByVerifyToken(ctx context.Context, token string) (*User, error)
	UpdateUser(ctx context.Context, u User) (*User, error)
}

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (m *MemoryStore) CreateUser(_ context.Context, u User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if err := m.checkUnique(u); err != nil {
		return nil, err
	}
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (m *MemoryStore) GetUsers(_ context.Context, ids []string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	return m.find(func(u User) bool { return email != "" && u.Email == email }, "email", email)
}

func (m *MemoryStore) GetUserByGoogleID(_ context.Context, googleID string) (*User, error) {
	return m.find(func(u User) bool { return googleID != "" && u.GoogleID == googleID }, "google id", googleID)
}

func (m *MemoryStore) GetUserByVerifyToken(_ context.Context, token string) (*User, error) {
	return m.find(func(u User) bool { return token != "" && u.VerifyToken == token }, "verify token", token)
}

func (m *MemoryStore) UpdateUser(_ context.Context, u User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.users[u.ID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	if err := m.checkUnique(u); err != nil {
		return nil, err
	}
	u.CreatedAt = old.CreatedAt
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemoryStore) find(match func(User) bool, field, value string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user by %s %q: %w", field, value, ErrNotFound)
}

// checkUnique must be called with m.mu held.
func (m *MemoryStore) checkUnique(u User) error {
	for id, other := range m.users {
		if id == u.ID {
			continue
		}
		if u.Email != "" && other.Email == u.Email {
			return fmt.Errorf("email %s: %w", u.Email, ErrDuplicate)
		}
		if u.GoogleID != "" && other.GoogleID == u.GoogleID {
			return fmt.Errorf("google id %s: %w", u.GoogleID, ErrDuplicate)
		}
	}
	return nil
}
