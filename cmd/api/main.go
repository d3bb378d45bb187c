// Package main implements the CollegeLabMatch API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vihdutta/CollegeLabMatch/engine/catalog"
	"github.com/vihdutta/CollegeLabMatch/engine/domain"
	"github.com/vihdutta/CollegeLabMatch/engine/match"
	"github.com/vihdutta/CollegeLabMatch/engine/semantic"
	"github.com/vihdutta/CollegeLabMatch/pkg/metrics"
	"github.com/vihdutta/CollegeLabMatch/pkg/mid"
	"github.com/vihdutta/CollegeLabMatch/pkg/ollama"
	"github.com/vihdutta/CollegeLabMatch/pkg/repo"
)

// maxUploadBytes caps resume uploads on /match/file.
const maxUploadBytes = 5 << 20

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	OllamaURL  string
	EmbedModel string
	Dimension  int
	IndexKind  string // "qdrant" or "memory"
	QdrantURL  string
	Collection string
	RepoKind   string // "neo4j" or "memory"
	Neo4jURL   string
	Neo4jUser  string
	Neo4jPass  string
	CORSOrigin string
}

func loadConfig() Config {
	return Config{
		Port:       envOr("PORT", "8080"),
		OllamaURL:  envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel: envOr("EMBED_MODEL", "all-minilm"),
		Dimension:  envIntOr("EMBED_DIMENSION", domain.DefaultDimension),
		IndexKind:  envOr("INDEX_BACKEND", "qdrant"),
		QdrantURL:  envOr("QDRANT_URL", "localhost:6334"),
		Collection: envOr("QDRANT_COLLECTION", "labs"),
		RepoKind:   envOr("REPO_BACKEND", "neo4j"),
		Neo4jURL:   envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:  envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:  envOr("NEO4J_PASS", "password"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
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
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Embedder ---
	embedClient := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel)
	embedder := semantic.NewEmbedder(embedClient, cfg.Dimension)

	// --- Vector index ---
	index, closeIndex, err := buildIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIndex()

	// --- Catalog repository ---
	labRepo, closeRepo, err := buildRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	app := metrics.NewApp()
	matchSvc := match.NewService(embedder, index, match.NewTracker(0), logger,
		match.WithMetrics(app))
	catalogSvc := catalog.NewService(labRepo, index, embedder, logger)

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth(index))
	mux.HandleFunc("POST /match", handleMatch(matchSvc, logger))
	mux.HandleFunc("POST /match/file", handleMatchFile(matchSvc, logger))
	mux.HandleFunc("GET /universities", handleUniversities(catalogSvc, logger))
	mux.HandleFunc("GET /progress/{token}", handleProgress(matchSvc.Tracker()))
	mux.Handle("GET /metrics", app.Registry.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.OTel("collegelabmatch-api"),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.MaxBody(maxUploadBytes),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "index", cfg.IndexKind)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func buildIndex(ctx context.Context, cfg Config) (semantic.Index, func(), error) {
	if cfg.IndexKind == "memory" {
		return semantic.NewMemory(cfg.Dimension), func() {}, nil
	}
	q, err := semantic.NewQdrant(cfg.QdrantURL, cfg.Collection, cfg.Dimension)
	if err != nil {
		return nil, nil, fmt.Errorf("qdrant connect: %w", err)
	}
	if err := q.EnsureCollection(ctx); err != nil {
		q.Close()
		return nil, nil, fmt.Errorf("ensure collection: %w", err)
	}
	return q, func() { q.Close() }, nil
}

func buildRepo(ctx context.Context, cfg Config) (repo.Repository[domain.LabRecord, string], func(), error) {
	if cfg.RepoKind == "memory" {
		return repo.NewMemoryLabRepo(), func() {}, nil
	}
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return nil, nil, fmt.Errorf("neo4j driver: %w", err)
	}
	return repo.NewLabRepo(driver), func() { driver.Close(ctx) }, nil
}

// --- Handlers ---

func handleHealth(index semantic.Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if _, err := index.Count(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

// MatchRequest is the JSON body for POST /match.
type MatchRequest struct {
	Text        string `json:"text"`
	Institution string `json:"institution,omitempty"`
	Limit       int    `json:"limit"`
}

func handleMatch(svc *match.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Limit == 0 {
			req.Limit = 10
		}
		resp, err := svc.Search(r.Context(), match.Request{
			Text:        req.Text,
			Institution: req.Institution,
			Limit:       req.Limit,
		})
		if err != nil {
			writeMatchError(w, logger, err)
			return
		}
		writeJSON(w, resp)
	}
}

func handleMatchFile(svc *match.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}

		limit := envIntFromForm(r, "limit", 10)
		resp, err := svc.Search(r.Context(), match.Request{
			Document:    data,
			Filename:    header.Filename,
			Institution: r.FormValue("institution"),
			Limit:       limit,
		})
		if err != nil {
			writeMatchError(w, logger, err)
			return
		}
		writeJSON(w, resp)
	}
}

func envIntFromForm(r *http.Request, field string, fallback int) int {
	if v := r.FormValue(field); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func handleUniversities(svc *catalog.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, err := svc.ListInstitutions(r.Context())
		if err != nil {
			logger.Error("list institutions failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
			return
		}
		if values == nil {
			values = []string{}
		}
		writeJSON(w, map[string][]string{"universities": values})
	}
}

func handleProgress(tracker *match.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := tracker.Get(r.PathValue("token"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown token")
			return
		}
		writeJSON(w, snap)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeMatchError maps taxonomy errors onto HTTP status codes.
func writeMatchError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrInvalidLimit),
		errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrExtraction):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrIndexUnavailable):
		writeError(w, http.StatusServiceUnavailable, "index unavailable")
	default:
		logger.Error("match failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
