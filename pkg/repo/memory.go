package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// MemoryRepo is an in-process Repository used for tests and single-node
// deployments that do not run a graph database.
type MemoryRepo[T any, ID comparable] struct {
	mu    sync.RWMutex
	items map[ID]T
	order []ID
	ident func(T) ID
	props func(T) map[string]any
}

// NewMemoryRepo creates an empty in-memory repository. ident extracts the
// entity ID; props exposes filterable properties (may be nil).
func NewMemoryRepo[T any, ID comparable](ident func(T) ID, props func(T) map[string]any) *MemoryRepo[T, ID] {
	return &MemoryRepo[T, ID]{
		items: make(map[ID]T),
		ident: ident,
		props: props,
	}
}

// NewMemoryLabRepo builds an in-memory repository bound to domain.LabRecord.
func NewMemoryLabRepo() *MemoryRepo[domain.LabRecord, string] {
	return NewMemoryRepo[domain.LabRecord, string](
		func(lab domain.LabRecord) string { return lab.ID },
		func(lab domain.LabRecord) map[string]any { return LabToMap(lab) },
	)
}

var _ Repository[domain.LabRecord, string] = (*MemoryRepo[domain.LabRecord, string])(nil)

func (m *MemoryRepo[T, ID]) Get(_ context.Context, id ID) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%v: %w", id, domain.ErrNotFound)
	}
	return item, nil
}

func (m *MemoryRepo[T, ID]) List(_ context.Context, opts ListOpts) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	var matched []T
	for _, id := range m.order {
		item := m.items[id]
		if m.matches(item, opts.Filter) {
			matched = append(matched, item)
		}
	}
	if opts.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[opts.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryRepo[T, ID]) matches(item T, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	if m.props == nil {
		return false
	}
	props := m.props(item)
	for key, want := range filter {
		if props[key] != want {
			return false
		}
	}
	return true
}

func (m *MemoryRepo[T, ID]) Save(_ context.Context, entity T) (T, error) {
	id := m.ident(entity)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[id]; !exists {
		m.order = append(m.order, id)
	}
	m.items[id] = entity
	return entity, nil
}

func (m *MemoryRepo[T, ID]) Delete(_ context.Context, id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return nil
	}
	delete(m.items, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryRepo[T, ID]) Distinct(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.props == nil {
		return nil, nil
	}
	seen := make(map[string]struct{})
	for _, item := range m.items {
		if s, ok := m.props(item)[key].(string); ok && s != "" {
			seen[s] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}
