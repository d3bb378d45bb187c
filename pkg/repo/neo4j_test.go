package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

type mockResult struct {
	records []*neo4j.Record
	idx     int
}

func (m *mockResult) Next(ctx context.Context) bool {
	if m.idx < len(m.records) {
		m.idx++
		return true
	}
	return false
}

func (m *mockResult) Record() *neo4j.Record {
	return m.records[m.idx-1]
}

type mockRunner struct {
	result  *mockResult
	err     error
	cyphers []string
	params  []map[string]any
}

func (m *mockRunner) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	m.cyphers = append(m.cyphers, cypher)
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockRunner) Close(ctx context.Context) error { return nil }

func labNode(id, name, institution string) *neo4j.Record {
	return &neo4j.Record{
		Keys: []string{"n"},
		Values: []any{neo4j.Node{Props: map[string]any{
			"id":             id,
			"name":           name,
			"institution":    institution,
			"research_areas": []any{"robotics"},
			"updated_at":     "2026-01-15T10:00:00Z",
		}}},
	}
}

func newTestLabRepo(r *mockRunner) *Neo4jRepo[domain.LabRecord, string] {
	repo := NewNeo4jRepo[domain.LabRecord, string](nil, LabLabel, LabToMap, LabFromRecord)
	repo.newSession = func(ctx context.Context) runner { return r }
	return repo
}

func TestNeo4jGet(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{labNode("lab_1", "Robotics Lab", "Michigan")}}}
	repo := newTestLabRepo(r)

	lab, err := repo.Get(context.Background(), "lab_1")
	if err != nil {
		t.Fatal(err)
	}
	if lab.ID != "lab_1" || lab.Name != "Robotics Lab" || lab.Institution != "Michigan" {
		t.Fatalf("got %+v", lab)
	}
	if len(lab.ResearchAreas) != 1 || lab.ResearchAreas[0] != "robotics" {
		t.Fatalf("research areas = %v", lab.ResearchAreas)
	}
	if lab.UpdatedAt.IsZero() {
		t.Fatal("updated_at not parsed")
	}
}

func TestNeo4jGet_NotFound(t *testing.T) {
	r := &mockRunner{result: &mockResult{}}
	repo := newTestLabRepo(r)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestNeo4jSave_UsesMerge(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{labNode("lab_1", "Robotics Lab", "Michigan")}}}
	repo := newTestLabRepo(r)

	_, err := repo.Save(context.Background(), domain.LabRecord{
		ID: "lab_1", Name: "Robotics Lab", Institution: "Michigan",
		Summary: "robot arms", UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.cyphers) != 1 || !strings.HasPrefix(r.cyphers[0], "MERGE (n:Lab") {
		t.Fatalf("cypher = %v", r.cyphers)
	}
	if r.params[0]["id"] != "lab_1" {
		t.Fatalf("params = %v", r.params[0])
	}
}

func TestNeo4jList_Filter(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{labNode("lab_1", "Robotics Lab", "Michigan")}}}
	repo := newTestLabRepo(r)

	labs, err := repo.List(context.Background(), ListOpts{Filter: map[string]any{"institution": "Michigan"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(labs) != 1 {
		t.Fatalf("got %d labs", len(labs))
	}
	if !strings.Contains(r.cyphers[0], "WHERE n.institution = $f0") {
		t.Fatalf("cypher = %q", r.cyphers[0])
	}
	if r.params[0]["f0"] != "Michigan" {
		t.Fatalf("params = %v", r.params[0])
	}
}

func TestNeo4jDistinct(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{
		{Keys: []string{"v"}, Values: []any{"MIT"}},
		{Keys: []string{"v"}, Values: []any{"Michigan"}},
	}}}
	repo := newTestLabRepo(r)

	values, err := repo.Distinct(context.Background(), "institution")
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 2 || values[0] != "MIT" || values[1] != "Michigan" {
		t.Fatalf("got %v", values)
	}
	if !strings.Contains(r.cyphers[0], "RETURN DISTINCT n.institution") {
		t.Fatalf("cypher = %q", r.cyphers[0])
	}
}

func TestNeo4jWithIDKey(t *testing.T) {
	r := &mockRunner{result: &mockResult{records: []*neo4j.Record{labNode("lab_1", "Robotics Lab", "Michigan")}}}
	repo := NewNeo4jRepo[domain.LabRecord, string](nil, LabLabel, LabToMap, LabFromRecord,
		WithIDKey[domain.LabRecord, string]("slug"))
	repo.newSession = func(ctx context.Context) runner { return r }

	if _, err := repo.Get(context.Background(), "lab_1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.cyphers[0], "{slug: $id}") {
		t.Fatalf("cypher = %q", r.cyphers[0])
	}
}

func TestNeo4jRunError(t *testing.T) {
	boom := errors.New("connection refused")
	repo := newTestLabRepo(&mockRunner{err: boom})

	if _, err := repo.Get(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if _, err := repo.List(context.Background(), ListOpts{}); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}
