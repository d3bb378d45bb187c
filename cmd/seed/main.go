// Package main seeds the catalog with a small set of sample labs, useful
// for local development and demos.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vihdutta/CollegeLabMatch/engine/catalog"
	"github.com/vihdutta/CollegeLabMatch/engine/domain"
	"github.com/vihdutta/CollegeLabMatch/engine/semantic"
	"github.com/vihdutta/CollegeLabMatch/pkg/ollama"
	"github.com/vihdutta/CollegeLabMatch/pkg/repo"
)

var sampleLabs = []domain.LabRecord{
	{
		ID:            "umich-robotics",
		Name:          "Autonomous Robotics Lab",
		Institution:   "University of Michigan",
		Professor:     "Dr. Maya Patel",
		Email:         "mpatel@umich.edu",
		Summary:       "Research on robot manipulation, legged locomotion, and autonomous systems operating in unstructured environments.",
		ResearchAreas: []string{"robotics", "autonomous systems", "machine learning"},
		Website:       "https://robotics.umich.edu",
	},
	{
		ID:            "mit-quantum",
		Name:          "Quantum Engineering Group",
		Institution:   "MIT",
		Professor:     "Dr. Alan Zhou",
		Email:         "azhou@mit.edu",
		Summary:       "Superconducting qubit design, quantum error correction, and scalable quantum computing hardware.",
		ResearchAreas: []string{"quantum computing"},
		Website:       "https://quantum.mit.edu",
	},
	{
		ID:            "stanford-healthai",
		Name:          "Health AI Lab",
		Institution:   "Stanford University",
		Professor:     "Dr. Irene Okafor",
		Email:         "iokafor@stanford.edu",
		Summary:       "Machine learning for medical imaging, clinical prediction models, and healthcare delivery.",
		ResearchAreas: []string{"machine learning", "computational biology"},
		Website:       "https://healthai.stanford.edu",
	},
	{
		ID:            "umich-nlproc",
		Name:          "Language and Information Technologies",
		Institution:   "University of Michigan",
		Professor:     "Dr. Sam Rivera",
		Email:         "srivera@umich.edu",
		Summary:       "Natural language processing, computational social science, and large language model evaluation.",
		ResearchAreas: []string{"natural language processing", "machine learning"},
		Website:       "https://lit.eecs.umich.edu",
	},
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(logger); err != nil {
		logger.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx := context.Background()

	index, err := semantic.NewQdrant(
		envOr("QDRANT_URL", "localhost:6334"),
		envOr("QDRANT_COLLECTION", "labs"),
		domain.DefaultDimension,
	)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer index.Close()
	if err := index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	driver, err := neo4j.NewDriverWithContext(
		envOr("NEO4J_URL", "neo4j://localhost:7687"),
		neo4j.BasicAuth(envOr("NEO4J_USER", "neo4j"), envOr("NEO4J_PASS", "password"), ""),
	)
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	embedder := semantic.NewEmbedder(
		ollama.NewEmbedClient(envOr("OLLAMA_URL", "http://localhost:11434"), envOr("EMBED_MODEL", "all-minilm")),
		domain.DefaultDimension,
	)
	svc := catalog.NewService(repo.NewLabRepo(driver), index, embedder, logger)

	for _, lab := range sampleLabs {
		if _, err := svc.AddOrUpdateLab(ctx, lab); err != nil {
			return fmt.Errorf("seed %s: %w", lab.ID, err)
		}
		logger.Info("seeded", "id", lab.ID, "name", lab.Name)
	}
	logger.Info("seed complete", "labs", len(sampleLabs))
	return nil
}
