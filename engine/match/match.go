// Package match orchestrates the query path: free text or an uploaded
// document in, ranked lab matches out.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
	"github.com/vihdutta/CollegeLabMatch/engine/extract"
	"github.com/vihdutta/CollegeLabMatch/engine/semantic"
	"github.com/vihdutta/CollegeLabMatch/pkg/fn"
	"github.com/vihdutta/CollegeLabMatch/pkg/metrics"
	"github.com/vihdutta/CollegeLabMatch/pkg/resilience"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Request is one match query. Exactly one of Text or Document should be
// set; when Document is present, Filename selects the extraction format.
type Request struct {
	Text        string
	Document    []byte
	Filename    string
	Institution string
	Limit       int
}

// Response carries the ranked matches plus the progress token for the
// request.
type Response struct {
	Token   string               `json:"token"`
	Matches []domain.MatchResult `json:"matches"`
}

// Service runs match queries against the semantic index.
type Service struct {
	embedder Embedder
	index    semantic.Index
	tracker  *Tracker
	breaker  *resilience.Breaker
	retry    fn.RetryOpts
	log      *slog.Logger
	met      *metrics.App
}

// Option configures a Service.
type Option func(*Service)

// WithRetry overrides the embed retry policy.
func WithRetry(opts fn.RetryOpts) Option {
	return func(s *Service) { s.retry = opts }
}

// WithBreaker overrides the circuit breaker guarding embed calls.
func WithBreaker(b *resilience.Breaker) Option {
	return func(s *Service) { s.breaker = b }
}

// WithMetrics attaches the application metric set.
func WithMetrics(m *metrics.App) Option {
	return func(s *Service) { s.met = m }
}

// NewService builds a match service.
func NewService(embedder Embedder, index semantic.Index, tracker *Tracker, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		embedder: embedder,
		index:    index,
		tracker:  tracker,
		breaker:  resilience.NewBreaker(resilience.DefaultBreakerOpts),
		retry:    fn.DefaultRetry,
		log:      log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Tracker exposes the progress tracker for the progress endpoint.
func (s *Service) Tracker() *Tracker { return s.tracker }

// Search runs a match query end to end. The first error aborts the request;
// no partial results are returned.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	handle := s.tracker.Start()
	if s.met != nil {
		s.met.MatchRequests.Inc()
	}

	resp, err := s.search(ctx, req, handle)
	if err != nil {
		handle.Fail(err)
		if s.met != nil {
			s.met.MatchFailures.Inc()
		}
		s.log.Warn("match failed", "token", handle.Token(), "error", err)
		return nil, err
	}
	handle.Done()
	if s.met != nil {
		s.met.MatchLatency.Since(start)
	}
	s.log.Info("match complete",
		"token", handle.Token(),
		"matches", len(resp.Matches),
		"duration", time.Since(start),
	)
	return resp, nil
}

func (s *Service) search(ctx context.Context, req Request, handle *Handle) (*Response, error) {
	if err := domain.ValidateLimit(req.Limit); err != nil {
		return nil, err
	}

	handle.Step(StateNormalizing, "")
	text, err := s.queryText(req)
	if err != nil {
		return nil, err
	}

	handle.Step(StateEmbedding, "")
	vec, err := s.embed(ctx, text)
	if err != nil {
		if s.met != nil {
			s.met.EmbedFailures.Inc()
		}
		return nil, err
	}

	handle.Step(StateSearching, "")
	var filter *semantic.Filter
	if req.Institution != "" {
		filter = &semantic.Filter{Institution: req.Institution}
	}
	hits, err := s.index.Query(ctx, vec, req.Limit, filter)
	if err != nil {
		if s.met != nil {
			s.met.IndexErrors.Inc()
		}
		return nil, err
	}

	handle.Step(StateRanked, fmt.Sprintf("%d matches", len(hits)))
	matches := make([]domain.MatchResult, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, domain.MatchResult{
			Lab:             semantic.LabFromHit(h),
			SimilarityScore: semantic.ClampScore(h.Score),
		})
	}
	return &Response{Token: handle.Token(), Matches: matches}, nil
}

// queryText resolves the request input to normalized query text.
func (s *Service) queryText(req Request) (string, error) {
	if len(req.Document) > 0 {
		raw, err := extract.ExtractFile(req.Document, req.Filename)
		if err != nil {
			return "", err
		}
		text := extract.Normalize(raw)
		if text == "" {
			return "", fmt.Errorf("document %q: %w", req.Filename, domain.ErrEmptyInput)
		}
		return text, nil
	}
	text := extract.Normalize(req.Text)
	if text == "" {
		return "", domain.ErrEmptyInput
	}
	return text, nil
}

// embed runs the embedding call through the circuit breaker with bounded
// retries.
func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	res := resilience.CallResult(s.breaker, ctx, func(ctx context.Context) fn.Result[[]float32] {
		return fn.Retry(ctx, s.retry, func(ctx context.Context) fn.Result[[]float32] {
			return fn.FromPair(s.embedder.Embed(ctx, text))
		})
	})
	return res.Unwrap()
}
