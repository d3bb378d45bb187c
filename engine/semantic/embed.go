package semantic

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// EmbedClient is the external embedding model capability.
type EmbedClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder wraps an EmbedClient with the pipeline's postconditions: input must
// be non-empty, output has the configured fixed dimension and unit L2 norm.
// Normalization here is a hard postcondition regardless of the model's own
// behavior, because downstream cosine similarity assumes unit vectors.
type Embedder struct {
	client EmbedClient
	dim    int
}

// NewEmbedder creates an Embedder with a fixed output dimension.
func NewEmbedder(client EmbedClient, dim int) *Embedder {
	if dim <= 0 {
		dim = domain.DefaultDimension
	}
	return &Embedder{client: client, dim: dim}
}

// Dimension returns the fixed embedding dimension for this deployment.
func (e *Embedder) Dimension() int { return e.dim }

// Embed maps one non-empty text to a unit-length vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}
	vec, err := e.client.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(vec) != e.dim {
		return nil, fmt.Errorf("%w: model returned %d dimensions, want %d", domain.ErrEmbedding, len(vec), e.dim)
	}
	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds a batch; at least one entry must be non-empty, and empty
// entries are rejected before the model is invoked.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	nonEmpty := false
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonEmpty = true
			break
		}
	}
	if !nonEmpty {
		return nil, domain.ErrEmptyInput
	}

	vecs, err := e.client.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	for i, vec := range vecs {
		if len(vec) != e.dim {
			return nil, fmt.Errorf("%w: batch [%d] has %d dimensions, want %d", domain.ErrEmbedding, i, len(vec), e.dim)
		}
		normalize(vec)
	}
	return vecs, nil
}

// Similarity defensively normalizes both vectors, takes their dot product,
// and clamps to [0,1]. Clamping is required: floating-point error or a
// non-unit input can push the cosine value slightly outside range, and
// callers treat the score as a probability-like confidence.
func Similarity(a, b []float32) float32 {
	a = normalizedCopy(a)
	b = normalizedCopy(b)

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return ClampScore(dot)
}

// ClampScore bounds a similarity score to [0,1].
func ClampScore(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// normalize scales vec to unit L2 norm in place. Zero vectors are left as-is.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}

func normalizedCopy(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	normalize(out)
	return out
}
