package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vihdutta/CollegeLabMatch/pkg/fn"
	"github.com/vihdutta/CollegeLabMatch/pkg/ollama"
)

const summaryPrompt = `Summarize the research focus of the following university lab in two to three sentences. Mention the main research areas and what kind of students would be a good fit. Respond with the summary only.

Lab: %s

Page content:
%s`

// summaryInputCap bounds how much page text is sent to the model.
const summaryInputCap = 6000

// OllamaSummarizer generates lab summaries with a local Ollama model.
type OllamaSummarizer struct {
	gen   *ollama.GenerateClient
	retry fn.RetryOpts
}

// NewOllamaSummarizer wraps a generate client with a bounded retry policy.
func NewOllamaSummarizer(gen *ollama.GenerateClient) *OllamaSummarizer {
	return &OllamaSummarizer{
		gen: gen,
		retry: fn.RetryOpts{
			MaxAttempts: 2,
			InitialWait: time.Second,
			MaxWait:     5 * time.Second,
			Jitter:      true,
		},
	}
}

var _ Summarizer = (*OllamaSummarizer)(nil)

// Summarize asks the model for a short research summary.
func (s *OllamaSummarizer) Summarize(ctx context.Context, name, content string) (string, error) {
	prompt := fmt.Sprintf(summaryPrompt, name, truncate(content, summaryInputCap))
	res := fn.Retry(ctx, s.retry, func(ctx context.Context) fn.Result[string] {
		return fn.FromPair(s.gen.Generate(ctx, prompt))
	})
	out, err := res.Unwrap()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
