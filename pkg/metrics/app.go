package metrics

// App bundles the metrics emitted by the match service and ingestion
// pipeline so callers share one set of series.
type App struct {
	Registry *Registry

	MatchRequests   *Counter
	MatchFailures   *Counter
	MatchLatency    *Histogram
	EmbedFailures   *Counter
	IndexErrors     *Counter
	LabsIndexed     *Gauge
	CrawlPages      *Counter
	IngestSucceeded *Counter
	IngestAttempted *Counter
}

// NewApp registers the application metric set on a fresh registry.
func NewApp() *App {
	r := New()
	return &App{
		Registry:        r,
		MatchRequests:   r.Counter("match_requests_total", "Match queries received"),
		MatchFailures:   r.Counter("match_failures_total", "Match queries that returned an error"),
		MatchLatency:    r.Histogram("match_duration_seconds", "End to end match latency", nil),
		EmbedFailures:   r.Counter("embed_failures_total", "Embedding calls that failed"),
		IndexErrors:     r.Counter("index_errors_total", "Vector index operations that failed"),
		LabsIndexed:     r.Gauge("labs_indexed", "Lab records currently in the vector index"),
		CrawlPages:      r.Counter("crawl_pages_total", "Lab pages crawled and staged"),
		IngestSucceeded: r.Counter("ingest_succeeded_total", "Staged labs indexed successfully"),
		IngestAttempted: r.Counter("ingest_attempted_total", "Staged labs attempted"),
	}
}
