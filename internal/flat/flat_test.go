package flat

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/solidvec/annex/internal/arena"
	"github.com/solidvec/annex/internal/distkernel"
	"github.com/solidvec/annex/internal/errs"
	"github.com/solidvec/annex/internal/ids"
)

func TestInsertAndSearch(t *testing.T) {
	b, err := New(2, distkernel.L2, 4)
	if err != nil {
		t.Fatal(err)
	}
	vecs := map[string][]float32{
		"a": {0, 0},
		"b": {1, 0},
		"c": {5, 5},
		"d": {0, 1},
	}
	for id, v := range vecs {
		if err := b.Insert(id, v); err != nil {
			t.Fatal(err)
		}
	}
	if b.Size() != 4 {
		t.Fatalf("expected size 4, got %d", b.Size())
	}
	results := b.Search([]float32{0, 0}, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Fatalf("expected closest to be 'a', got %s", results[0].ID)
	}
}

func TestInsertDuplicateId(t *testing.T) {
	b, _ := New(2, distkernel.L2, 4)
	if err := b.Insert("x", []float32{1, 1}); err != nil {
		t.Fatal(err)
	}
	err := b.Insert("x", []float32{2, 2})
	if !errors.Is(err, errs.New(errs.DuplicateId, "")) {
		t.Fatalf("expected DuplicateId error, got %v", err)
	}
}

func TestDeleteRemovesFromSearch(t *testing.T) {
	b, _ := New(2, distkernel.L2, 4)
	b.Insert("a", []float32{0, 0})
	b.Insert("b", []float32{1, 0})
	if err := b.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if b.Size() != 1 {
		t.Fatalf("expected size 1 after delete, got %d", b.Size())
	}
	results := b.Search([]float32{0, 0}, 5)
	if len(results) != 1 || results[0].ID != "b" {
		t.Fatalf("expected only 'b' to remain, got %v", results)
	}
}

func TestDeleteMissingId(t *testing.T) {
	b, _ := New(2, distkernel.L2, 4)
	err := b.Delete("missing")
	if !errors.Is(err, errs.New(errs.IdNotFound, "")) {
		t.Fatalf("expected IdNotFound, got %v", err)
	}
}

func TestEachVisitsLiveEntriesOnly(t *testing.T) {
	b, _ := New(2, distkernel.L2, 4)
	b.Insert("a", []float32{1, 1})
	b.Insert("b", []float32{2, 2})
	b.Delete("a")
	seen := map[string]bool{}
	b.Each(func(id string, vec []float32) {
		seen[id] = true
	})
	if seen["a"] {
		t.Fatal("expected deleted id not to be visited")
	}
	if !seen["b"] {
		t.Fatal("expected live id to be visited")
	}
}

func TestInsertRejectsNonFiniteVector(t *testing.T) {
	b, _ := New(2, distkernel.L2, 4)
	err := b.Insert("a", []float32{float32(math.NaN()), 0})
	if !errors.Is(err, errs.New(errs.InvalidInput, "")) {
		t.Fatalf("expected InvalidInput for NaN component, got %v", err)
	}
	if b.Size() != 0 {
		t.Fatalf("expected size 0 after rejected insert, got %d", b.Size())
	}

	err = b.Insert("b", []float32{0, float32(math.Inf(-1))})
	if !errors.Is(err, errs.New(errs.InvalidInput, "")) {
		t.Fatalf("expected InvalidInput for -Inf component, got %v", err)
	}
	if b.Size() != 0 {
		t.Fatalf("expected size 0 after rejected insert, got %d", b.Size())
	}
}

func TestInsertReturnsCapacityOnArenaExhaustion(t *testing.T) {
	distFn, err := distkernel.For(distkernel.L2)
	if err != nil {
		t.Fatal(err)
	}
	b := &Buffer{
		arena:    arena.NewBounded(2, 1, 1),
		fwd:      ids.NewForward(4),
		rev:      ids.NewReverse(),
		distance: distFn,
	}
	if err := b.Insert("a", []float32{0, 0}); err != nil {
		t.Fatal(err)
	}
	err = b.Insert("b", []float32{1, 1})
	if !errors.Is(err, errs.New(errs.Capacity, "")) {
		t.Fatalf("expected Capacity error, got %v", err)
	}
	if b.Size() != 1 {
		t.Fatalf("expected size unchanged at 1, got %d", b.Size())
	}
}

func TestGetRoundTrip(t *testing.T) {
	b, _ := New(3, distkernel.Cosine, 2)
	b.Insert("v1", []float32{1, 2, 3})
	got, ok := b.Get("v1")
	if !ok {
		t.Fatal("expected v1 to be present")
	}
	want := []float32{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: want %v got %v", i, want, got)
		}
	}
	if _, ok := b.Get("missing"); ok {
		t.Fatal("expected missing id to be absent")
	}
}

func BenchmarkFlatInsert(b *testing.B) {
	buf, err := New(128, distkernel.L2, b.N)
	if err != nil {
		b.Fatal(err)
	}
	vec := make([]float32, 128)
	for i := range vec {
		vec[i] = float32(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Insert(fmt.Sprintf("v%d", i), vec)
	}
}

func BenchmarkFlatSearch(b *testing.B) {
	buf, err := New(128, distkernel.L2, 1000)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		vec := make([]float32, 128)
		for j := range vec {
			vec[j] = float32(i + j)
		}
		buf.Insert(fmt.Sprintf("v%d", i), vec)
	}
	query := make([]float32, 128)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Search(query, 10)
	}
}
