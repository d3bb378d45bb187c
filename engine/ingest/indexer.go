package ingest

import (
	"context"
	"log/slog"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
	"github.com/vihdutta/CollegeLabMatch/engine/semantic"
	"github.com/vihdutta/CollegeLabMatch/pkg/fn"
	"github.com/vihdutta/CollegeLabMatch/pkg/metrics"
)

// DefaultIndexWorkers bounds vectorize/upsert concurrency.
const DefaultIndexWorkers = 4

// Report summarizes an indexing run.
type Report struct {
	Succeeded int `json:"succeeded"`
	Attempted int `json:"attempted"`
}

// Embedder turns staged text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Indexer embeds staged labs and upserts them into the semantic index.
type Indexer struct {
	embedder Embedder
	index    semantic.Index
	workers  int
	log      *slog.Logger
	met      *metrics.App
}

// NewIndexer builds an indexer. workers <= 0 uses DefaultIndexWorkers.
func NewIndexer(embedder Embedder, index semantic.Index, workers int, log *slog.Logger, met *metrics.App) *Indexer {
	if workers <= 0 {
		workers = DefaultIndexWorkers
	}
	return &Indexer{embedder: embedder, index: index, workers: workers, log: log, met: met}
}

// Run vectorizes and upserts every staged lab. A failing record is logged
// and isolated; the run continues and the report counts both outcomes.
func (ix *Indexer) Run(ctx context.Context, labs []domain.StagedLab) Report {
	results := fn.ParMapResult(labs, ix.workers, func(lab domain.StagedLab) fn.Result[string] {
		if err := ix.indexOne(ctx, lab); err != nil {
			return fn.Err[string](err)
		}
		return fn.Ok(lab.ID)
	})

	report := Report{Attempted: len(labs)}
	for i, res := range results {
		if _, err := res.Unwrap(); err != nil {
			ix.log.Warn("index failed", "lab", labs[i].Name, "error", err)
			continue
		}
		report.Succeeded++
	}
	if ix.met != nil {
		ix.met.IngestAttempted.Add(int64(report.Attempted))
		ix.met.IngestSucceeded.Add(int64(report.Succeeded))
	}
	ix.log.Info("index run complete", "succeeded", report.Succeeded, "attempted", report.Attempted)
	return report
}

func (ix *Indexer) indexOne(ctx context.Context, lab domain.StagedLab) error {
	vec, err := ix.embedder.Embed(ctx, lab.EmbedText())
	if err != nil {
		return err
	}
	return ix.index.Upsert(ctx, semantic.Record{
		ID:     lab.ID,
		Vector: vec,
		Payload: semantic.Payload{
			Name:          lab.Name,
			Institution:   lab.Institution,
			Professor:     lab.Professor,
			Description:   lab.Description,
			ResearchAreas: lab.ResearchAreas,
			Website:       lab.SourceURL,
			Email:         lab.Email,
			UpdatedAt:     lab.ScrapedAt,
		},
	})
}
