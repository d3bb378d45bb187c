package semantic

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// Memory is the embedded index backend: an exact brute-force cosine index
// held in process memory. Ranking is deterministic: descending score, ties
// broken by insertion order (a replaced record keeps its original position).
type Memory struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]*memEntry
	nextSeq uint64
}

type memEntry struct {
	seq     uint64
	vector  []float32
	payload Payload
}

// NewMemory creates an embedded index with a fixed vector dimension.
func NewMemory(dim int) *Memory {
	if dim <= 0 {
		dim = domain.DefaultDimension
	}
	return &Memory{dim: dim, entries: make(map[string]*memEntry)}
}

var _ Index = (*Memory)(nil)

// Upsert inserts or fully replaces the entry for rec.ID.
func (m *Memory) Upsert(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return domain.NewValidationError("id", rec.ID, domain.ErrInvalidRecord)
	}
	if err := rec.Payload.Validate(); err != nil {
		return err
	}
	if len(rec.Vector) != m.dim {
		return fmt.Errorf("%w: vector has %d dimensions, index wants %d",
			domain.ErrInvalidRecord, len(rec.Vector), m.dim)
	}

	vec := make([]float32, len(rec.Vector))
	copy(vec, rec.Vector)

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[rec.ID]; ok {
		old.vector = vec
		old.payload = rec.Payload
		return nil
	}
	m.entries[rec.ID] = &memEntry{seq: m.nextSeq, vector: vec, payload: rec.Payload}
	m.nextSeq++
	return nil
}

// Query ranks all candidates passing the filter by cosine similarity and
// returns the top k. Filtering happens before ranking, so fewer than k
// results means fewer than k candidates matched.
func (m *Memory) Query(_ context.Context, vector []float32, k int, filter *Filter) ([]Hit, error) {
	if k <= 0 {
		return nil, domain.NewValidationError("k", fmt.Sprintf("%d", k), domain.ErrInvalidLimit)
	}
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index wants %d",
			domain.ErrIndexQuery, len(vector), m.dim)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		id    string
		seq   uint64
		score float32
		pay   Payload
	}
	candidates := make([]scored, 0, len(m.entries))
	for id, e := range m.entries {
		if filter != nil && filter.Institution != "" && e.payload.Institution != filter.Institution {
			continue
		}
		candidates = append(candidates, scored{
			id:    id,
			seq:   e.seq,
			score: Similarity(vector, e.vector),
			pay:   e.payload,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seq < candidates[j].seq
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = Hit{ID: candidates[i].id, Score: candidates[i].score, Payload: candidates[i].pay}
	}
	return hits, nil
}

// Delete removes the entry; subsequent queries never return it.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Count returns the number of indexed entries.
func (m *Memory) Count(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.entries)), nil
}

// Institutions returns the sorted distinct institution values in the index.
func (m *Memory) Institutions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, e := range m.entries {
		inst := e.payload.Institution
		if inst == "" {
			continue
		}
		if _, ok := seen[inst]; !ok {
			seen[inst] = struct{}{}
			out = append(out, inst)
		}
	}
	sort.Strings(out)
	return out, nil
}
