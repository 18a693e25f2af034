package hnsw

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/solidvec/annex/internal/arena"
	"github.com/solidvec/annex/internal/distkernel"
	"github.com/solidvec/annex/internal/errs"
)

func testConfig(dim int) Config {
	return Config{
		Dimension:      dim,
		M:              8,
		EfConstruction: 32,
		EfSearch:       16,
		Metric:         distkernel.L2,
		Seed:           42,
	}
}

func TestInsertAndSearchFindsExactMatch(t *testing.T) {
	idx, err := New(testConfig(4))
	if err != nil {
		t.Fatal(err)
	}
	vecs := map[string][]float32{
		"a": {0, 0, 0, 0},
		"b": {10, 10, 10, 10},
		"c": {1, 1, 1, 1},
		"d": {20, 0, 0, 0},
	}
	for id, v := range vecs {
		if _, err := idx.Insert(id, v); err != nil {
			t.Fatal(err)
		}
	}
	results, err := idx.Search([]float32{0, 0, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("expected exact match 'a', got %v", results)
	}
}

func TestInsertDuplicateId(t *testing.T) {
	idx, _ := New(testConfig(2))
	if _, err := idx.Insert("x", []float32{1, 2}); err != nil {
		t.Fatal(err)
	}
	_, err := idx.Insert("x", []float32{3, 4})
	if !errors.Is(err, errs.New(errs.DuplicateId, "")) {
		t.Fatalf("expected DuplicateId, got %v", err)
	}
}

func TestInsertRejectsNonFiniteVector(t *testing.T) {
	idx, _ := New(testConfig(2))
	_, err := idx.Insert("a", []float32{float32(math.NaN()), 0})
	if !errors.Is(err, errs.New(errs.InvalidInput, "")) {
		t.Fatalf("expected InvalidInput for NaN component, got %v", err)
	}
	if idx.Size() != 0 {
		t.Fatalf("expected size 0 after rejected insert, got %d", idx.Size())
	}

	_, err = idx.Insert("b", []float32{0, float32(math.Inf(1))})
	if !errors.Is(err, errs.New(errs.InvalidInput, "")) {
		t.Fatalf("expected InvalidInput for +Inf component, got %v", err)
	}
	if idx.Size() != 0 {
		t.Fatalf("expected size 0 after rejected insert, got %d", idx.Size())
	}
}

func TestInsertReturnsCapacityOnArenaExhaustion(t *testing.T) {
	idx, err := New(testConfig(2))
	if err != nil {
		t.Fatal(err)
	}
	idx.arena = arena.NewBounded(2, 1, 1)

	if _, err := idx.Insert("a", []float32{0, 0}); err != nil {
		t.Fatal(err)
	}
	_, err = idx.Insert("b", []float32{1, 1})
	if !errors.Is(err, errs.New(errs.Capacity, "")) {
		t.Fatalf("expected Capacity error, got %v", err)
	}
	if idx.Size() != 1 {
		t.Fatalf("expected size unchanged at 1, got %d", idx.Size())
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx, _ := New(testConfig(4))
	idx.Insert("a", []float32{1, 2, 3, 4})
	_, err := idx.Search([]float32{1, 2}, 1)
	if !errors.Is(err, errs.New(errs.Dimension, "")) {
		t.Fatalf("expected Dimension error, got %v", err)
	}
}

func TestDeleteExcludesFromSearchButPreservesNavigability(t *testing.T) {
	idx, _ := New(testConfig(3))
	for i := 0; i < 50; i++ {
		v := []float32{float32(i), float32(i), float32(i)}
		idx.Insert(fmt.Sprintf("id-%d", i), v)
	}
	if err := idx.Delete("id-25"); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 49 {
		t.Fatalf("expected size 49, got %d", idx.Size())
	}
	results, err := idx.Search([]float32{25, 25, 25}, 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.ID == "id-25" {
			t.Fatal("expected deleted id to be excluded from results")
		}
	}
}

func TestDeleteMissingId(t *testing.T) {
	idx, _ := New(testConfig(2))
	err := idx.Delete("missing")
	if !errors.Is(err, errs.New(errs.IdNotFound, "")) {
		t.Fatalf("expected IdNotFound, got %v", err)
	}
}

func TestDeleteEntryPointStillSearchable(t *testing.T) {
	idx, _ := New(testConfig(2))
	for i := 0; i < 20; i++ {
		idx.Insert(fmt.Sprintf("id-%d", i), []float32{float32(i), 0})
	}
	entryStringID, ok := idx.rev.Get(idx.entryPoint)
	if !ok {
		t.Fatal("expected entry point to have a live string id")
	}
	if err := idx.Delete(entryStringID); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Search([]float32{5, 0}, 3); err != nil {
		t.Fatalf("expected search to still work after entry point deletion: %v", err)
	}
	if idx.Size() != 19 {
		t.Fatalf("expected size 19, got %d", idx.Size())
	}
}

func TestBinaryQuantizationSearchFindsApproximateNeighbors(t *testing.T) {
	cfg := testConfig(16)
	cfg.BinaryQuantization = true
	cfg.EfSearch = 32
	idx, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(7))
	target := make([]float32, 16)
	for i := range target {
		target[i] = rng.Float32()
	}
	if _, err := idx.Insert("target", target); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		v := make([]float32, 16)
		for j := range v {
			v[j] = rng.Float32()*10 + 5
		}
		idx.Insert(fmt.Sprintf("noise-%d", i), v)
	}
	results, err := idx.Search(target, 5)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range results {
		if r.ID == "target" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected exact target vector to surface in approximate search")
	}
}

func TestBestHiCandidateBreaksTiesByLowestId(t *testing.T) {
	idx, err := New(testConfig(2))
	if err != nil {
		t.Fatal(err)
	}
	// Three nodes tied at the same level, with hiCandidates left in an order
	// that a prior swap-remove deletion would produce (not ascending by id).
	idx.nodes = []*node{
		{level: 3, links: make([][]uint32, 4)},
		{level: 3, links: make([][]uint32, 4)},
		{level: 3, links: make([][]uint32, 4)},
	}
	idx.hiCandidates = []uint32{2, 0, 1}

	best, ok := idx.bestHiCandidate(99)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if best != 0 {
		t.Fatalf("expected tie broken by lowest numeric id 0, got %d", best)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, _ := New(testConfig(3))
	results, err := idx.Search([]float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Fatalf("expected nil results for empty index, got %v", results)
	}
}

func BenchmarkHNSWInsert(b *testing.B) {
	idx, err := New(testConfig(128))
	if err != nil {
		b.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	vecs := make([][]float32, b.N)
	for i := range vecs {
		v := make([]float32, 128)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Insert(fmt.Sprintf("v%d", i), vecs[i]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHNSWSearch(b *testing.B) {
	idx, err := New(testConfig(128))
	if err != nil {
		b.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		v := make([]float32, 128)
		for j := range v {
			v[j] = rng.Float32()
		}
		if _, err := idx.Insert(fmt.Sprintf("v%d", i), v); err != nil {
			b.Fatal(err)
		}
	}
	query := make([]float32, 128)
	for j := range query {
		query[j] = rng.Float32()
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Search(query, 10); err != nil {
			b.Fatal(err)
		}
	}
}
