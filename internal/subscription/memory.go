package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps subscriptions in process memory. It is the default store;
// contents do not survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	subs  map[string]*Subscription
	order []string // insertion order for List
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*Subscription)}
}

func (m *MemoryStore) Register(ctx context.Context, rawURL string, events []string, secret string, enabled bool) (Subscription, error) {
	if err := validate(rawURL, events); err != nil {
		return Subscription{}, err
	}

	sub := &Subscription{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Events:    append([]string(nil), events...),
		Secret:    secret,
		Enabled:   enabled,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.subs[sub.ID] = sub
	m.order = append(m.order, sub.ID)
	m.mu.Unlock()

	return copyOf(sub), nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subs[id]
	if !ok {
		return Subscription{}, &NotFoundError{ID: id}
	}
	return copyOf(sub), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Subscription, 0, len(m.order))
	for _, id := range m.order {
		if sub, ok := m.subs[id]; ok {
			out = append(out, copyOf(sub))
		}
	}
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[id]; !ok {
		return false, nil
	}
	delete(m.subs, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MemoryStore) SetEnabled(ctx context.Context, id string, enabled bool) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[id]
	if !ok {
		return Subscription{}, &NotFoundError{ID: id}
	}
	sub.Enabled = enabled
	return copyOf(sub), nil
}

// copyOf returns a detached copy so callers never alias store-owned state.
func copyOf(s *Subscription) Subscription {
	out := *s
	out.Events = append([]string(nil), s.Events...)
	return out
}
