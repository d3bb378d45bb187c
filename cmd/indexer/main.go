// Package main implements the indexer: it loads staged labs from the
// staging checkpoint (or a NATS subscription) and upserts them into the
// vector index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
	"github.com/vihdutta/CollegeLabMatch/engine/ingest"
	"github.com/vihdutta/CollegeLabMatch/engine/semantic"
	"github.com/vihdutta/CollegeLabMatch/pkg/metrics"
	"github.com/vihdutta/CollegeLabMatch/pkg/natsutil"
	"github.com/vihdutta/CollegeLabMatch/pkg/ollama"
)

// Config holds all environment-based configuration.
type Config struct {
	StagingPath string
	OllamaURL   string
	EmbedModel  string
	Dimension   int
	QdrantURL   string
	Collection  string
	Workers     int
	NATSURL     string
	MetricsPort int
}

func loadConfig() Config {
	return Config{
		StagingPath: envOr("STAGING_PATH", "data/labs_staging.json"),
		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:  envOr("EMBED_MODEL", "all-minilm"),
		Dimension:   envIntOr("EMBED_DIMENSION", domain.DefaultDimension),
		QdrantURL:   envOr("QDRANT_URL", "localhost:6334"),
		Collection:  envOr("QDRANT_COLLECTION", "labs"),
		Workers:     envIntOr("INDEX_WORKERS", ingest.DefaultIndexWorkers),
		NATSURL:     envOr("NATS_URL", ""),
		MetricsPort: envIntOr("METRICS_PORT", 0),
	}
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

	cfg := loadConfig()
	if err := run(cfg, logger); err != nil {
		logger.Error("indexer exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	index, err := semantic.NewQdrant(cfg.QdrantURL, cfg.Collection, cfg.Dimension)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer index.Close()
	if err := index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	embedder := semantic.NewEmbedder(ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel), cfg.Dimension)
	app := metrics.NewApp()
	if cfg.MetricsPort > 0 {
		app.Registry.ServeAsync(cfg.MetricsPort, logger)
	}
	indexer := ingest.NewIndexer(embedder, index, cfg.Workers, logger, app)

	if cfg.NATSURL != "" {
		return runSubscribed(ctx, cfg, indexer, index, app, logger)
	}

	labs, err := ingest.ReadStaging(cfg.StagingPath)
	if err != nil {
		return fmt.Errorf("read staging: %w", err)
	}
	report := indexer.Run(ctx, labs)
	logger.Info("staging indexed", "succeeded", report.Succeeded, "attempted", report.Attempted)

	count, err := index.Count(ctx)
	if err == nil {
		app.LabsIndexed.Set(int64(count))
	}
	return nil
}

// runSubscribed keeps the indexer alive, consuming staged labs off NATS as
// part of the "indexers" queue group.
func runSubscribed(ctx context.Context, cfg Config, indexer *ingest.Indexer, index semantic.Index, app *metrics.App, logger *slog.Logger) error {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	sub, err := natsutil.QueueSubscribe(nc, natsutil.SubjectLabStaged, "indexers",
		func(msgCtx context.Context, lab domain.StagedLab) {
			report := indexer.Run(msgCtx, []domain.StagedLab{lab})
			if report.Succeeded != report.Attempted {
				logger.Warn("staged lab not indexed", "lab", lab.Name)
			}
			if count, err := index.Count(msgCtx); err == nil {
				app.LabsIndexed.Set(int64(count))
			}
		})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	logger.Info("indexer subscribed", "subject", natsutil.SubjectLabStaged)
	<-ctx.Done()
	return nil
}
