package repo

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// LabLabel is the node label for catalog lab entries.
const LabLabel = "Lab"

// NewLabRepo builds a Neo4j repository bound to domain.LabRecord.
func NewLabRepo(driver neo4j.DriverWithContext) *Neo4jRepo[domain.LabRecord, string] {
	return NewNeo4jRepo[domain.LabRecord, string](driver, LabLabel, LabToMap, LabFromRecord)
}

// LabToMap converts a lab record to neo4j node properties. The embedding is
// not stored here, vectors live in the semantic index.
func LabToMap(lab domain.LabRecord) map[string]any {
	areas := make([]any, len(lab.ResearchAreas))
	for i, a := range lab.ResearchAreas {
		areas[i] = a
	}
	return map[string]any{
		"id":             lab.ID,
		"name":           lab.Name,
		"institution":    lab.Institution,
		"professor":      lab.Professor,
		"email":          lab.Email,
		"summary":        lab.Summary,
		"research_areas": areas,
		"website":        lab.Website,
		"updated_at":     lab.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// LabFromRecord converts a neo4j record holding a Lab node back to a record.
func LabFromRecord(rec *neo4j.Record) (domain.LabRecord, error) {
	var lab domain.LabRecord
	raw, ok := rec.Get("n")
	if !ok {
		return lab, fmt.Errorf("record missing node column")
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return lab, fmt.Errorf("unexpected column type %T", raw)
	}
	props := node.Props

	lab.ID = stringProp(props, "id")
	lab.Name = stringProp(props, "name")
	lab.Institution = stringProp(props, "institution")
	lab.Professor = stringProp(props, "professor")
	lab.Email = stringProp(props, "email")
	lab.Summary = stringProp(props, "summary")
	lab.Website = stringProp(props, "website")
	if raw, ok := props["research_areas"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				lab.ResearchAreas = append(lab.ResearchAreas, s)
			}
		}
	}
	if ts := stringProp(props, "updated_at"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			lab.UpdatedAt = t
		}
	}
	return lab, nil
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}
