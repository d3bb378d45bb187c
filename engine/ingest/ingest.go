// Package ingest turns crawled faculty pages into staged lab entries and
// pushes staged entries into the vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vihdutta/CollegeLabMatch/engine/crawl"
	"github.com/vihdutta/CollegeLabMatch/engine/domain"
	"github.com/vihdutta/CollegeLabMatch/pkg/fn"
)

// ErrSkipped marks a crawled page that lacks the structure of a lab page.
// Skips are non-fatal; the pipeline moves on to the next page.
var ErrSkipped = errors.New("page skipped")

// Summarizer produces a short research summary for a lab from its page text.
type Summarizer interface {
	Summarize(ctx context.Context, name, content string) (string, error)
}

// NewExtractFields builds the stage that converts a crawled faculty page into
// a staged lab entry for the given institution. Pages without a usable name
// are skipped.
func NewExtractFields(institution string) fn.Stage[crawl.FacultyPage, domain.StagedLab] {
	return func(_ context.Context, fp crawl.FacultyPage) fn.Result[domain.StagedLab] {
		name := fp.Page.Title
		if name == "" {
			name = fp.Entry.Name
		}
		if name == "" {
			return fn.Err[domain.StagedLab](fmt.Errorf("%s: no name found: %w", fp.Page.URL, ErrSkipped))
		}

		content := truncate(fp.Text, domain.StagedContentCap)
		return fn.Ok(domain.StagedLab{
			ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(fp.Page.URL)).String(),
			Name:        name,
			Professor:   fp.Entry.Name,
			Institution: institution,
			Email:       fp.Entry.Email,
			SourceURL:   fp.Page.URL,
			Content:     content,
			ScrapedAt:   fp.Page.FetchedAt,
		})
	}
}

// truncate caps s at max bytes, backing the cut off to a rune boundary so a
// multi-byte character is never split.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// NewEnrich builds the stage that attaches a generated summary and tagged
// research areas. A failed or empty summary falls back to the lab name so
// enrichment never blocks ingestion.
func NewEnrich(summarizer Summarizer, log *slog.Logger) fn.Stage[domain.StagedLab, domain.StagedLab] {
	return func(ctx context.Context, lab domain.StagedLab) fn.Result[domain.StagedLab] {
		summary, err := summarizer.Summarize(ctx, lab.Name, lab.Content)
		if err != nil || summary == "" {
			if err != nil {
				log.Warn("summarize failed, using name fallback", "lab", lab.Name, "error", err)
			}
			summary = lab.Name
		}
		lab.Description = summary
		lab.ResearchAreas = domain.TagResearchAreas(lab.Content + " " + lab.Description)
		return fn.Ok(lab)
	}
}

// NewValidate builds the stage that rejects malformed staged entries before
// they reach the staging file.
func NewValidate() fn.Stage[domain.StagedLab, domain.StagedLab] {
	return func(_ context.Context, lab domain.StagedLab) fn.Result[domain.StagedLab] {
		if err := domain.ValidateStagedLab(lab); err != nil {
			return fn.Err[domain.StagedLab](err)
		}
		return fn.Ok(lab)
	}
}

// Pipeline is the page-to-staged-entry composition.
type Pipeline = fn.Stage[crawl.FacultyPage, domain.StagedLab]

// NewPipeline wires extract, enrich, and validate into one stage. Each step
// gets its own trace span.
func NewPipeline(institution string, summarizer Summarizer, log *slog.Logger) Pipeline {
	return fn.Then(
		fn.Then(
			fn.TracedStage("ingest.extract", NewExtractFields(institution)),
			fn.TracedStage("ingest.enrich", NewEnrich(summarizer, log)),
		),
		fn.TracedStage("ingest.validate", NewValidate()),
	)
}

// Run drains a crawl stream through the pipeline, collecting staged entries
// in discovery order. Skipped and failed pages are logged and dropped.
func Run(ctx context.Context, pages <-chan fn.Result[crawl.FacultyPage], pipeline Pipeline, log *slog.Logger) []domain.StagedLab {
	var staged []domain.StagedLab
	for res := range pages {
		fp, err := res.Unwrap()
		if err != nil {
			log.Warn("crawl failure", "error", err)
			continue
		}
		lab, err := pipeline(ctx, fp).Unwrap()
		if err != nil {
			if errors.Is(err, ErrSkipped) {
				log.Debug("page skipped", "url", fp.Page.URL)
			} else {
				log.Warn("stage failure", "url", fp.Page.URL, "error", err)
			}
			continue
		}
		staged = append(staged, lab)
	}
	return staged
}
