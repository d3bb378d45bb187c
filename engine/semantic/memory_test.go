package semantic

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

func unit(vals ...float32) []float32 {
	out := make([]float32, len(vals))
	copy(out, vals)
	normalize(out)
	return out
}

func pay(name, inst string) Payload {
	return Payload{Name: name, Institution: inst, Professor: "PI", Description: name, UpdatedAt: time.Now()}
}

func seedIndex(t *testing.T) *Memory {
	t.Helper()
	idx := NewMemory(3)
	ctx := context.Background()
	records := []Record{
		{ID: "lab_1", Vector: unit(1, 0, 0), Payload: pay("Robotics Lab", "Michigan")},
		{ID: "lab_2", Vector: unit(0, 1, 0), Payload: pay("Quantum Group", "MIT")},
		{ID: "lab_3", Vector: unit(0.9, 0.1, 0), Payload: pay("Vision Lab", "Michigan")},
	}
	for _, r := range records {
		if err := idx.Upsert(ctx, r); err != nil {
			t.Fatalf("upsert %s: %v", r.ID, err)
		}
	}
	return idx
}

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestMemory_QueryRanking(t *testing.T) {
	idx := seedIndex(t)
	hits, err := idx.Query(context.Background(), unit(1, 0, 0), 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"lab_1", "lab_3", "lab_2"}
	if !reflect.DeepEqual(ids(hits), want) {
		t.Fatalf("expected order %v, got %v", want, ids(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatal("scores must be descending")
		}
	}
}

func TestMemory_RankingDeterminism(t *testing.T) {
	idx := seedIndex(t)
	q := unit(0.5, 0.5, 0)
	first, err := idx.Query(context.Background(), q, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := idx.Query(context.Background(), q, 3, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(ids(again), ids(first)) {
			t.Fatalf("run %d: order changed from %v to %v", i, ids(first), ids(again))
		}
	}
}

func TestMemory_TieBreakInsertionOrder(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()
	// Identical vectors: identical scores, ties broken by insertion order.
	for _, id := range []string{"b", "a", "c"} {
		if err := idx.Upsert(ctx, Record{ID: id, Vector: unit(1, 0), Payload: pay("Lab "+id, "")}); err != nil {
			t.Fatal(err)
		}
	}
	hits, err := idx.Query(ctx, unit(1, 0), 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(ids(hits), want) {
		t.Fatalf("expected insertion order %v, got %v", want, ids(hits))
	}
}

func TestMemory_UpsertIdempotent(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()
	rec := Record{ID: "lab_1", Vector: unit(1, 0, 0), Payload: pay("Robotics Lab", "Michigan")}

	before, _ := idx.Query(ctx, unit(1, 0, 0), 3, nil)
	if err := idx.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	after, _ := idx.Query(ctx, unit(1, 0, 0), 3, nil)
	if !reflect.DeepEqual(ids(before), ids(after)) {
		t.Fatalf("repeated upsert changed observable state: %v vs %v", ids(before), ids(after))
	}
	if n, _ := idx.Count(ctx); n != 3 {
		t.Fatalf("expected count 3, got %d", n)
	}
}

func TestMemory_UpsertReplaces(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()
	// Full replace: lab_2 moves next to the query vector.
	if err := idx.Upsert(ctx, Record{ID: "lab_2", Vector: unit(1, 0.01, 0), Payload: pay("Quantum Group", "MIT")}); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Query(ctx, unit(1, 0.01, 0), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].ID != "lab_2" {
		t.Fatalf("expected replaced lab_2 on top, got %s", hits[0].ID)
	}
	if n, _ := idx.Count(ctx); n != 3 {
		t.Fatalf("replace must not grow the index, count = %d", n)
	}
}

func TestMemory_Delete(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()

	if err := idx.Delete(ctx, "lab_1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.Count(ctx); n != 2 {
		t.Fatalf("expected count 2 after delete, got %d", n)
	}
	hits, err := idx.Query(ctx, unit(1, 0, 0), 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.ID == "lab_1" {
			t.Fatal("deleted id returned from query")
		}
	}
}

func TestMemory_FilterBeforeRanking(t *testing.T) {
	idx := seedIndex(t)
	hits, err := idx.Query(context.Background(), unit(0, 1, 0), 2, &Filter{Institution: "Michigan"})
	if err != nil {
		t.Fatal(err)
	}
	// Both Michigan labs must be returned even though the MIT lab scores
	// higher against this vector: filtering precedes ranking and truncation.
	if len(hits) != 2 {
		t.Fatalf("expected 2 Michigan hits, got %v", ids(hits))
	}
	for _, h := range hits {
		if h.Payload.Institution != "Michigan" {
			t.Errorf("hit %s has institution %q", h.ID, h.Payload.Institution)
		}
	}
}

func TestMemory_RejectsBadInput(t *testing.T) {
	idx := NewMemory(3)
	ctx := context.Background()

	err := idx.Upsert(ctx, Record{ID: "x", Vector: unit(1, 0), Payload: pay("Short", "")})
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected dimension rejection, got %v", err)
	}
	err = idx.Upsert(ctx, Record{ID: "x", Vector: unit(1, 0, 0), Payload: Payload{}})
	if !errors.Is(err, domain.ErrInvalidMetadata) {
		t.Fatalf("expected metadata rejection, got %v", err)
	}
	if _, err := idx.Query(ctx, unit(1, 0, 0), 0, nil); !errors.Is(err, domain.ErrInvalidLimit) {
		t.Fatalf("expected limit rejection, got %v", err)
	}
}

func TestMemory_Institutions(t *testing.T) {
	idx := seedIndex(t)
	got, err := idx.Institutions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"MIT", "Michigan"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPayloadRoundTripHelpers(t *testing.T) {
	lab := domain.LabRecord{
		ID: "lab_9", Name: "HCI Lab", Institution: "MIT", Professor: "Dr. T",
		Summary: "Interfaces.", ResearchAreas: []string{"human-computer interaction"},
		Website: "https://example.edu", Email: "t@mit.edu", UpdatedAt: time.Now(),
	}
	p := PayloadFromLab(lab)
	back := LabFromHit(Hit{ID: lab.ID, Score: 1, Payload: p})
	if back.Name != lab.Name || back.Institution != lab.Institution || back.Summary != lab.Summary {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if back.Embedding != nil {
		t.Fatal("embedding must not survive the hit round trip")
	}
}
