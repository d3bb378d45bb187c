// Package main implements the faculty directory crawler. It walks the
// configured directories, enriches each lab page, and writes a staging
// checkpoint for the indexer. With NATS configured each staged lab is also
// published for immediate indexing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/vihdutta/CollegeLabMatch/engine/crawl"
	"github.com/vihdutta/CollegeLabMatch/engine/domain"
	"github.com/vihdutta/CollegeLabMatch/engine/ingest"
	"github.com/vihdutta/CollegeLabMatch/pkg/metrics"
	"github.com/vihdutta/CollegeLabMatch/pkg/natsutil"
	"github.com/vihdutta/CollegeLabMatch/pkg/ollama"
)

// Source is one institution's faculty directory.
type Source struct {
	Institution  string
	DirectoryURL string
}

// Config holds all environment-based configuration.
type Config struct {
	Sources      []Source
	StagingPath  string
	Interval     time.Duration
	MaxPerSource int
	OllamaURL    string
	GenModel     string
	NATSURL      string
	MetricsPort  int
}

func loadConfig() (Config, error) {
	sources, err := parseSources(envOr("CRAWL_SOURCES", ""))
	if err != nil {
		return Config{}, err
	}
	interval := time.Duration(0)
	if v := envOr("CRAWL_INTERVAL", ""); v != "" {
		interval, err = time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CRAWL_INTERVAL: %w", err)
		}
	}
	return Config{
		Sources:      sources,
		StagingPath:  envOr("STAGING_PATH", "data/labs_staging.json"),
		Interval:     interval,
		MaxPerSource: envIntOr("CRAWL_MAX_PER_SOURCE", 50),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		GenModel:     envOr("GEN_MODEL", "llama3.2"),
		NATSURL:      envOr("NATS_URL", ""),
		MetricsPort:  envIntOr("METRICS_PORT", 0),
	}, nil
}

// parseSources reads "Institution=URL" pairs separated by commas.
func parseSources(raw string) ([]Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("CRAWL_SOURCES is required (Institution=URL,...)")
	}
	var sources []Source
	for _, part := range strings.Split(raw, ",") {
		inst, dir, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || inst == "" || dir == "" {
			return nil, fmt.Errorf("bad source %q, want Institution=URL", part)
		}
		sources = append(sources, Source{Institution: inst, DirectoryURL: dir})
	}
	return sources, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func main() {
	godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("crawler exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		var err error
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
	}

	summarizer := ingest.NewOllamaSummarizer(ollama.NewGenerateClient(cfg.OllamaURL, cfg.GenModel))
	app := metrics.NewApp()
	if cfg.MetricsPort > 0 {
		app.Registry.ServeAsync(cfg.MetricsPort, logger)
	}

	if cfg.Interval <= 0 {
		return crawlOnce(ctx, cfg, summarizer, nc, app, logger)
	}
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		if err := crawlOnce(ctx, cfg, summarizer, nc, app, logger); err != nil {
			logger.Error("crawl run failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func crawlOnce(ctx context.Context, cfg Config, summarizer ingest.Summarizer, nc *nats.Conn, app *metrics.App, logger *slog.Logger) error {
	start := time.Now()
	crawler := crawl.NewCrawler(500 * time.Millisecond)

	var staged []domain.StagedLab
	for _, src := range cfg.Sources {
		pipeline := ingest.NewPipeline(src.Institution, summarizer, logger)
		pages := crawler.Crawl(ctx, crawl.CrawlOpts{
			DirectoryURLs: []string{src.DirectoryURL},
			MaxPerSource:  cfg.MaxPerSource,
		})
		labs := ingest.Run(ctx, pages, pipeline, logger)
		app.CrawlPages.Add(int64(len(labs)))
		logger.Info("source crawled", "institution", src.Institution, "labs", len(labs))
		staged = append(staged, labs...)
	}

	if err := ingest.WriteStaging(cfg.StagingPath, staged); err != nil {
		return fmt.Errorf("write staging: %w", err)
	}

	if nc != nil {
		for _, lab := range staged {
			if err := natsutil.Publish(ctx, nc, natsutil.SubjectLabStaged, lab); err != nil {
				logger.Warn("publish staged lab failed", "lab", lab.Name, "err", err)
			}
		}
	}

	logger.Info("crawl complete",
		"staged", len(staged),
		"path", cfg.StagingPath,
		"duration", time.Since(start),
	)
	return nil
}
