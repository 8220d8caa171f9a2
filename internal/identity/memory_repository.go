package identity

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
	order []string
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) conflicts(user User) bool {
	for id, existing := range r.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email || (user.Phone != "" && existing.Phone == user.Phone) {
			return true
		}
	}
	return false
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists || r.conflicts(user) {
		return ErrAlreadyExists
	}
	r.users[user.ID] = user
	r.order = append(r.order, user.ID)
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) Update(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if r.conflicts(user) {
		return ErrAlreadyExists
	}
	user.Email = existing.Email
	user.Role = existing.Role
	user.TokenVersion = existing.TokenVersion
	user.CreatedAt = existing.CreatedAt
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.TokenVersion = version
	r.users[id] = user
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryRepository) List(_ context.Context, filter ListFilter) ([]User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := []User{}
	for i := len(r.order) - 1; i >= 0; i-- {
		user := r.users[r.order[i]]
		if filter.matches(user) {
			matched = append(matched, user)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	start := min(filter.Skip, total)
	end := total
	if filter.Take > 0 {
		end = min(start+filter.Take, total)
	}
	return matched[start:end], total, nil
}

func (r *memoryRepository) Counts(_ context.Context) (Counts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var c Counts
	for _, user := range r.users {
		if user.Role != RoleCustomer {
			continue
		}
		c.Total++
		switch user.Status {
		case StatusActive:
			c.Active++
		case StatusSuspended:
			c.Suspended++
		case StatusClosed:
			c.Closed++
		}
	}
	return c, nil
}
