package ids

import (
	"fmt"
	"testing"
)

func TestForwardInsertGet(t *testing.T) {
	f := NewForward(4)
	isNew := f.Insert("a", 0)
	if !isNew {
		t.Fatal("expected new insert")
	}
	v, ok := f.Get("a")
	if !ok || v != 0 {
		t.Fatalf("expected (0, true), got (%d, %v)", v, ok)
	}
}

func TestForwardInsertIdempotent(t *testing.T) {
	f := NewForward(4)
	f.Insert("a", 0)
	isNew := f.Insert("a", 5)
	if isNew {
		t.Fatal("expected re-insert of same key to report not-new")
	}
	v, _ := f.Get("a")
	if v != 5 {
		t.Fatalf("expected overwritten value 5, got %d", v)
	}
}

func TestForwardMissingKey(t *testing.T) {
	f := NewForward(4)
	if _, ok := f.Get("missing"); ok {
		t.Fatal("expected miss")
	}
}

func TestForwardRemoveAndReinsert(t *testing.T) {
	f := NewForward(4)
	f.Insert("a", 1)
	if !f.Remove("a") {
		t.Fatal("expected remove to find key")
	}
	if _, ok := f.Get("a"); ok {
		t.Fatal("expected key gone after remove")
	}
	if f.Remove("a") {
		t.Fatal("expected second remove to report not found")
	}
	// Reinsert after tombstone should work and reuse the slot.
	isNew := f.Insert("a", 99)
	if !isNew {
		t.Fatal("expected reinsert to be new")
	}
	v, ok := f.Get("a")
	if !ok || v != 99 {
		t.Fatalf("expected (99,true) got (%d,%v)", v, ok)
	}
}

func TestForwardGrowthPreservesEntries(t *testing.T) {
	f := NewForward(4)
	n := 1000
	for i := 0; i < n; i++ {
		f.Insert(fmt.Sprintf("id-%d", i), uint32(i))
	}
	if f.Len() != n {
		t.Fatalf("expected %d entries, got %d", n, f.Len())
	}
	for i := 0; i < n; i++ {
		v, ok := f.Get(fmt.Sprintf("id-%d", i))
		if !ok || v != uint32(i) {
			t.Fatalf("id-%d: expected (%d,true), got (%d,%v)", i, i, v, ok)
		}
	}
}

func TestForwardManyDeletesAndReinserts(t *testing.T) {
	f := NewForward(4)
	for i := 0; i < 200; i++ {
		f.Insert(fmt.Sprintf("k%d", i), uint32(i))
	}
	for i := 0; i < 100; i++ {
		f.Remove(fmt.Sprintf("k%d", i))
	}
	if f.Len() != 100 {
		t.Fatalf("expected 100 remaining, got %d", f.Len())
	}
	for i := 0; i < 100; i++ {
		f.Insert(fmt.Sprintf("new%d", i), uint32(1000+i))
	}
	if f.Len() != 200 {
		t.Fatalf("expected 200 after reinsert, got %d", f.Len())
	}
	for i := 100; i < 200; i++ {
		v, ok := f.Get(fmt.Sprintf("k%d", i))
		if !ok || v != uint32(i) {
			t.Fatalf("surviving key k%d missing or wrong: %d %v", i, v, ok)
		}
	}
}

func TestReverseSetGetRemove(t *testing.T) {
	r := NewReverse()
	r.Set(0, "a")
	r.Set(1, "b")
	r.Set(5, "f")

	if v, ok := r.Get(0); !ok || v != "a" {
		t.Fatalf("expected (a,true), got (%s,%v)", v, ok)
	}
	if v, ok := r.Get(5); !ok || v != "f" {
		t.Fatalf("expected (f,true), got (%s,%v)", v, ok)
	}
	if _, ok := r.Get(2); ok {
		t.Fatal("expected gap id 2 to be absent")
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 live entries, got %d", r.Len())
	}

	if !r.Remove(1) {
		t.Fatal("expected remove to find id 1")
	}
	if _, ok := r.Get(1); ok {
		t.Fatal("expected id 1 gone after remove")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 live entries after remove, got %d", r.Len())
	}
}

func TestForwardReverseRoundTrip(t *testing.T) {
	fwd := NewForward(16)
	rev := NewReverse()
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("vec-%d", i)
		fwd.Insert(key, uint32(i))
		rev.Set(uint32(i), key)
	}
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("vec-%d", i)
		id, ok := fwd.Get(key)
		if !ok || id != uint32(i) {
			t.Fatalf("forward lookup failed for %s", key)
		}
		gotKey, ok := rev.Get(id)
		if !ok || gotKey != key {
			t.Fatalf("reverse lookup failed for id %d", id)
		}
	}
}
