package notification

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.RWMutex
	items map[string]Notification
}

// NewMemoryRepository builds an in-memory notification store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{items: make(map[string]Notification)}
}

func (r *memoryRepository) Create(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = n
	return nil
}

func (r *memoryRepository) MarkSent(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	n.Status = StatusSent
	n.SentAt = &at
	r.items[id] = n
	return nil
}

func (r *memoryRepository) Get(_ context.Context, userID, id string) (Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (r *memoryRepository) List(_ context.Context, userID string, filter ListFilter) ([]Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Notification, 0)
	for _, n := range r.items {
		if n.UserID != userID {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.UnreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit := limitOrDefault(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) MarkRead(_ context.Context, userID, id string, at time.Time) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return Notification{}, ErrNotFound
	}
	at = at.UTC()
	n.Status = StatusRead
	n.ReadAt = &at
	r.items[id] = n
	return n, nil
}

func (r *memoryRepository) MarkAllRead(_ context.Context, userID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at = at.UTC()
	updated := 0
	for id, n := range r.items {
		if n.UserID != userID || n.ReadAt != nil {
			continue
		}
		readAt := at
		n.Status = StatusRead
		n.ReadAt = &readAt
		r.items[id] = n
		updated++
	}
	return updated, nil
}

func (r *memoryRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepository) UnreadCount(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, n := range r.items {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}
