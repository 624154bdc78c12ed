package mocks

import (
	"context"
	"sync"

	"github.com/strata-blog-api/internal/cache"
	"github.com/strata-blog-api/internal/models"
)

// MockPostCache is an in-memory PostCache that records invalidations and
// drops writes made under a superseded generation
type MockPostCache struct {
	mu          sync.Mutex
	Entries     map[int64]*models.PostDetail
	Generations map[int64]int64
	Invalidated []int64
	Skipped     int
	Hits        int
}

var _ cache.PostCache = (*MockPostCache)(nil)

func NewMockPostCache() *MockPostCache {
	return &MockPostCache{
		Entries:     make(map[int64]*models.PostDetail),
		Generations: make(map[int64]int64),
	}
}

func (m *MockPostCache) GetPost(ctx context.Context, id int64) (*models.PostDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Entries[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	m.Hits++
	cp := *p
	return &cp, nil
}

func (m *MockPostCache) Generation(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Generations[id], nil
}

func (m *MockPostCache) SetPost(ctx context.Context, post *models.PostDetail, gen int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Generations[post.ID] != gen {
		m.Skipped++
		return nil
	}
	cp := *post
	m.Entries[post.ID] = &cp
	return nil
}

func (m *MockPostCache) InvalidatePost(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Generations[id]++
	delete(m.Entries, id)
	m.Invalidated = append(m.Invalidated, id)
	return nil
}
