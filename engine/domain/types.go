// Package domain defines core domain types, constants, and validation for the
// lab-matching pipeline. It acts as the validation gate at pipeline entry points.
package domain

import "time"

// DefaultDimension is the embedding dimension of all-MiniLM-style models.
// Changing the embedding model requires re-embedding the entire catalog.
const DefaultDimension = 384

// MaxResearchAreas caps the number of tags carried by one record.
const MaxResearchAreas = 5

// StagedContentCap limits raw page content persisted in a staging record.
const StagedContentCap = 10000

// Result-limit bounds for a single match query.
const (
	MinLimit = 1
	MaxLimit = 50
)

// LabRecord is the unit of the catalog. The record is the exclusive owner of
// its embedding; nothing else references the vector directly.
type LabRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Institution   string    `json:"institution,omitempty"`
	Professor     string    `json:"professor"`
	Email         string    `json:"email,omitempty"`
	Summary       string    `json:"summary"`
	ResearchAreas []string  `json:"research_areas"`
	Website       string    `json:"website,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Embedding is derived from Name + Summary and is always L2-normalized.
	// Excluded from API responses.
	Embedding []float32 `json:"-"`
}

// MatchResult is produced per query and never persisted.
type MatchResult struct {
	Lab LabRecord `json:"lab"`
	// SimilarityScore is in [0,1]; 1.0 is identical direction in embedding
	// space, 0.0 is orthogonal or worse.
	SimilarityScore float32 `json:"similarity_score"`
}

// StagedLab is the durable ingestion checkpoint written between crawling and
// vectorization, so that index sync can be retried without re-crawling.
type StagedLab struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Professor     string    `json:"professor"`
	Institution   string    `json:"institution,omitempty"`
	Email         string    `json:"email,omitempty"`
	SourceURL     string    `json:"url"`
	Content       string    `json:"content"`
	Description   string    `json:"description"`
	ResearchAreas []string  `json:"research_areas"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// EmbedText builds the canonical text to embed for a staged record:
// name followed by the summary, which is preferred over raw content.
func (s StagedLab) EmbedText() string {
	if s.Description != "" {
		return s.Name + " " + s.Description
	}
	return s.Name
}
