package session

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStorage is a process-local Storage for development and tests.
type MemoryStorage struct {
	c *gocache.Cache
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (m *MemoryStorage) StoreSession(_ context.Context, s Session) error {
	m.c.Set(s.ID, s, gocache.NoExpiration)
	return nil
}

func (m *MemoryStorage) LoadSession(_ context.Context, id string) (Session, error) {
	v, ok := m.c.Get(id)
	if !ok {
		return Session{}, ErrNotFound
	}
	return v.(Session), nil
}

func (m *MemoryStorage) DeleteSession(_ context.Context, id string) error {
	m.c.Delete(id)
	return nil
}

func (m *MemoryStorage) DeleteSessions(ctx context.Context, ids []string) error {
	for _, id := range ids {
		m.c.Delete(id)
	}
	return nil
}

func (m *MemoryStorage) FindSessionsByShop(_ context.Context, shop string) ([]Session, error) {
	var out []Session
	for _, item := range m.c.Items() {
		if s, ok := item.Object.(Session); ok && s.Shop == shop {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
