// Package semantic owns embedding generation and the vector index used for
// lab matching. The index contract is backend-agnostic: callers never branch
// on whether Qdrant or the embedded in-memory index is behind it.
package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// Payload is the metadata schema attached to every indexed vector. It is
// validated at the index boundary; malformed metadata is rejected rather than
// propagated.
type Payload struct {
	Name          string    `json:"name"`
	Institution   string    `json:"institution,omitempty"`
	Professor     string    `json:"professor"`
	Description   string    `json:"description"`
	ResearchAreas []string  `json:"research_areas"`
	Website       string    `json:"website,omitempty"`
	Email         string    `json:"email,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the payload schema.
func (p Payload) Validate() error {
	if p.Name == "" {
		return domain.NewValidationError("name", p.Name, domain.ErrInvalidMetadata)
	}
	if len(p.ResearchAreas) > domain.MaxResearchAreas {
		return domain.NewValidationError("research_areas",
			fmt.Sprintf("%d entries", len(p.ResearchAreas)), domain.ErrInvalidMetadata)
	}
	return nil
}

// Record is a single (id, vector, metadata) entry to index.
type Record struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Hit is one nearest-neighbor match, ordered by descending similarity.
type Hit struct {
	ID      string
	Score   float32
	Payload Payload
}

// Filter restricts query candidates by metadata equality before ranking.
type Filter struct {
	Institution string
}

// Index stores lab vectors and supports k-nearest-neighbor retrieval by
// cosine similarity. Implementations must be safe for concurrent use.
//
// Upsert is idempotent: repeated calls with identical arguments leave the
// index in the same observable state. Query results are deterministic for a
// fixed index state; ties break by stable insertion order. After Delete, a
// record's id is never returned again.
type Index interface {
	Upsert(ctx context.Context, rec Record) error
	Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]Hit, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (uint64, error)
	// Institutions returns the distinct institution values currently indexed,
	// sorted ascending.
	Institutions(ctx context.Context) ([]string, error)
}

// PayloadFromLab builds index metadata from a catalog record.
func PayloadFromLab(l domain.LabRecord) Payload {
	return Payload{
		Name:          l.Name,
		Institution:   l.Institution,
		Professor:     l.Professor,
		Description:   l.Summary,
		ResearchAreas: l.ResearchAreas,
		Website:       l.Website,
		Email:         l.Email,
		UpdatedAt:     l.UpdatedAt,
	}
}

// LabFromHit reconstructs the public catalog fields carried by a hit.
func LabFromHit(h Hit) domain.LabRecord {
	return domain.LabRecord{
		ID:            h.ID,
		Name:          h.Payload.Name,
		Institution:   h.Payload.Institution,
		Professor:     h.Payload.Professor,
		Summary:       h.Payload.Description,
		ResearchAreas: h.Payload.ResearchAreas,
		Website:       h.Payload.Website,
		Email:         h.Payload.Email,
		UpdatedAt:     h.Payload.UpdatedAt,
	}
}
