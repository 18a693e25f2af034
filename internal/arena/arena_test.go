package arena

import (
	"errors"
	"testing"
)

func TestAppendAndGet(t *testing.T) {
	a := New(4, 2)
	id, err := a.Append([]float32{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if id != 0 {
		t.Fatalf("expected id 0, got %d", id)
	}
	got, err := a.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: want %v got %v", i, want, got)
		}
	}
}

func TestAppendDimensionMismatch(t *testing.T) {
	a := New(4, 2)
	if _, err := a.Append([]float32{1, 2, 3}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestGetOutOfRange(t *testing.T) {
	a := New(4, 2)
	if _, err := a.Get(0); err == nil {
		t.Fatal("expected out-of-range error on empty arena")
	}
}

func TestGrowthPreservesData(t *testing.T) {
	a := New(2, 1)
	ids := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		v := float32(i)
		id, err := a.Append([]float32{v, v + 1})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	for i, id := range ids {
		got, err := a.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		if got[0] != float32(i) || got[1] != float32(i+1) {
			t.Fatalf("row %d corrupted after growth: %v", i, got)
		}
	}
	if a.Size() != 20 {
		t.Fatalf("expected size 20, got %d", a.Size())
	}
}

func TestGrowthFactorTiers(t *testing.T) {
	if f := growthFactor(100); f != 2.0 {
		t.Fatalf("expected 2.0 below 10k, got %v", f)
	}
	if f := growthFactor(50_000); f != 1.5 {
		t.Fatalf("expected 1.5 below 100k, got %v", f)
	}
	if f := growthFactor(200_000); f != 1.125 {
		t.Fatalf("expected 1.125 beyond 100k, got %v", f)
	}
}

func TestAppendReturnsCapacityExceededAtCeiling(t *testing.T) {
	a := NewBounded(2, 1, 2)
	if _, err := a.Append([]float32{0, 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Append([]float32{1, 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Append([]float32{2, 2}); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if a.Size() != 2 {
		t.Fatalf("expected size unchanged at 2 after rejected append, got %d", a.Size())
	}
}

func TestReset(t *testing.T) {
	a := New(2, 4)
	a.Append([]float32{1, 2})
	a.Reset()
	if a.Size() != 0 {
		t.Fatalf("expected size 0 after reset, got %d", a.Size())
	}
	if _, err := a.Get(0); err == nil {
		t.Fatal("expected error reading from reset arena")
	}
}
