package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// WriteStaging persists staged labs as a JSON array in crawl discovery
// order. The write goes through a temp file and rename, so the indexer
// never reads a half-written checkpoint.
func WriteStaging(path string, labs []domain.StagedLab) error {
	data, err := json.MarshalIndent(labs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal staging: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadStaging loads a staging file written by WriteStaging.
func ReadStaging(path string) ([]domain.StagedLab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var labs []domain.StagedLab
	if err := json.Unmarshal(data, &labs); err != nil {
		return nil, fmt.Errorf("parse staging %s: %w", path, err)
	}
	return labs, nil
}
