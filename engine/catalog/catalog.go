// Package catalog manages authoritative lab records, keeping the document
// store and the vector index in step.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
	"github.com/vihdutta/CollegeLabMatch/engine/semantic"
	"github.com/vihdutta/CollegeLabMatch/pkg/repo"
)

// Embedder turns lab text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service coordinates the lab repository and the semantic index.
type Service struct {
	repo  repo.Repository[domain.LabRecord, string]
	index semantic.Index
	embed Embedder
	log   *slog.Logger
}

// NewService builds a catalog service.
func NewService(r repo.Repository[domain.LabRecord, string], index semantic.Index, embed Embedder, log *slog.Logger) *Service {
	return &Service{repo: r, index: index, embed: embed, log: log}
}

// AddOrUpdateLab validates, embeds, and stores a lab record. The write is a
// full replace in both the repository and the index; a second call with the
// same ID leaves exactly one entry.
func (s *Service) AddOrUpdateLab(ctx context.Context, lab domain.LabRecord) (domain.LabRecord, error) {
	if err := domain.ValidateLabRecord(lab); err != nil {
		return domain.LabRecord{}, err
	}
	lab.UpdatedAt = time.Now()

	text := lab.Name + " " + lab.Summary
	vec, err := s.embed.Embed(ctx, text)
	if err != nil {
		return domain.LabRecord{}, fmt.Errorf("embed lab %s: %w", lab.ID, err)
	}
	lab.Embedding = vec

	// Repository first, index last. The index must never hold an id the
	// catalog does not; a saved lab missing from the index only delays
	// matches until the next upsert.
	saved, err := s.repo.Save(ctx, lab)
	if err != nil {
		return domain.LabRecord{}, fmt.Errorf("save lab %s: %w", lab.ID, err)
	}
	if err := s.index.Upsert(ctx, semantic.Record{
		ID:      lab.ID,
		Vector:  vec,
		Payload: semantic.PayloadFromLab(lab),
	}); err != nil {
		return domain.LabRecord{}, err
	}
	s.log.Info("lab stored", "id", lab.ID, "name", lab.Name)
	return saved, nil
}

// GetLab returns one catalog record.
func (s *Service) GetLab(ctx context.Context, id string) (domain.LabRecord, error) {
	return s.repo.Get(ctx, id)
}

// ListLabs pages through catalog records, optionally filtered by
// institution.
func (s *Service) ListLabs(ctx context.Context, institution string, offset, limit int) ([]domain.LabRecord, error) {
	opts := repo.ListOpts{Offset: offset, Limit: limit}
	if institution != "" {
		opts.Filter = map[string]any{"institution": institution}
	}
	return s.repo.List(ctx, opts)
}

// RemoveLab deletes a lab from the index first, then the repository, so a
// match can never surface a lab that is already gone from the catalog.
func (s *Service) RemoveLab(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("index delete %s: %w", id, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("repo delete %s: %w", id, err)
	}
	s.log.Info("lab removed", "id", id)
	return nil
}

// ListInstitutions returns the sorted distinct institutions in the catalog.
// When the repository is unavailable it falls back to the index payloads.
func (s *Service) ListInstitutions(ctx context.Context) ([]string, error) {
	values, err := s.repo.Distinct(ctx, "institution")
	if err == nil {
		return values, nil
	}
	s.log.Warn("repo institutions failed, falling back to index", "error", err)
	return s.index.Institutions(ctx)
}
