package domain

import (
	"errors"
	"testing"
	"time"
)

func validRecord() LabRecord {
	return LabRecord{
		ID:            "lab_1",
		Name:          "Robotics and Automation Lab",
		Institution:   "Carnegie Mellon University",
		Professor:     "Dr. Emily Davis",
		Email:         "edavis@cmu.edu",
		Summary:       "Autonomous robots for manufacturing, healthcare, and exploration.",
		ResearchAreas: []string{"manipulation", "motion planning"},
		Website:       "https://example.edu/robotics",
		UpdatedAt:     time.Now(),
	}
}

func TestValidateLabRecord_Valid(t *testing.T) {
	if err := ValidateLabRecord(validRecord()); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}
}

func TestValidateLabRecord_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LabRecord)
	}{
		{"empty id", func(l *LabRecord) { l.ID = "  " }},
		{"empty name", func(l *LabRecord) { l.Name = "" }},
		{"empty summary", func(l *LabRecord) { l.Summary = "" }},
		{"too many areas", func(l *LabRecord) {
			l.ResearchAreas = []string{"a", "b", "c", "d", "e", "f"}
		}},
		{"duplicate areas", func(l *LabRecord) {
			l.ResearchAreas = []string{"SLAM", "slam"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			err := ValidateLabRecord(rec)
			if !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestValidateLimit(t *testing.T) {
	for _, limit := range []int{1, 10, 50} {
		if err := ValidateLimit(limit); err != nil {
			t.Errorf("limit %d should be valid: %v", limit, err)
		}
	}
	for _, limit := range []int{0, -1, 51, 1000} {
		if err := ValidateLimit(limit); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("limit %d should be rejected, got %v", limit, err)
		}
	}
}

func TestNormalizeAreas(t *testing.T) {
	got := NormalizeAreas([]string{" SLAM ", "slam", "", "Computer Vision", "drones", "perception", "manipulation", "extra"})
	want := []string{"slam", "computer vision", "drones", "perception", "manipulation"}
	if len(got) != len(want) {
		t.Fatalf("expected %d areas, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("area %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestTagResearchAreas(t *testing.T) {
	content := "We study Machine Learning and computer vision, with applications to SLAM, drones, perception, and manipulation."
	got := TagResearchAreas(content)
	if len(got) != MaxResearchAreas {
		t.Fatalf("expected cap at %d tags, got %v", MaxResearchAreas, got)
	}
	// First-match order follows vocabulary order.
	if got[0] != "computer vision" {
		t.Errorf("expected computer vision first, got %q", got[0])
	}
}

func TestTagResearchAreas_NoMatch(t *testing.T) {
	if got := TagResearchAreas("medieval poetry archives"); len(got) != 0 {
		t.Fatalf("expected no tags, got %v", got)
	}
}

func TestStagedLabEmbedText(t *testing.T) {
	s := StagedLab{Name: "Vision Lab", Description: "We study scene understanding."}
	if got := s.EmbedText(); got != "Vision Lab We study scene understanding." {
		t.Errorf("unexpected embed text %q", got)
	}
	s.Description = ""
	if got := s.EmbedText(); got != "Vision Lab" {
		t.Errorf("expected name fallback, got %q", got)
	}
}
