package domain

import (
	"fmt"
	"strings"
)

// ValidateLimit checks a requested result limit against the allowed bounds.
func ValidateLimit(limit int) error {
	if limit < MinLimit || limit > MaxLimit {
		return NewValidationError("limit", fmt.Sprintf("%d", limit), ErrInvalidLimit)
	}
	return nil
}

// ValidateLabRecord checks the fields a record must carry before it can be
// persisted or embedded.
func ValidateLabRecord(l LabRecord) error {
	if strings.TrimSpace(l.ID) == "" {
		return NewValidationError("id", l.ID, ErrInvalidRecord)
	}
	if strings.TrimSpace(l.Name) == "" {
		return NewValidationError("name", l.Name, ErrInvalidRecord)
	}
	if strings.TrimSpace(l.Summary) == "" {
		return NewValidationError("summary", l.Summary, ErrInvalidRecord)
	}
	if len(l.ResearchAreas) > MaxResearchAreas {
		return NewValidationError("research_areas", fmt.Sprintf("%d entries", len(l.ResearchAreas)), ErrInvalidRecord)
	}
	seen := make(map[string]struct{}, len(l.ResearchAreas))
	for _, a := range l.ResearchAreas {
		key := strings.ToLower(a)
		if _, dup := seen[key]; dup {
			return NewValidationError("research_areas", a, ErrInvalidRecord)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateStagedLab checks a staging record before vectorization.
func ValidateStagedLab(s StagedLab) error {
	if strings.TrimSpace(s.ID) == "" {
		return NewValidationError("id", s.ID, ErrInvalidRecord)
	}
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", s.Name, ErrInvalidRecord)
	}
	if len(s.Content) > StagedContentCap {
		return NewValidationError("content", fmt.Sprintf("%d bytes", len(s.Content)), ErrInvalidRecord)
	}
	return nil
}
