// Package flat implements the exact linear-scan buffer the adaptive
// dispatcher uses below spec's FLAT_THRESHOLD population (§4.4). Adapted
// from xDarkicex-libravdb's internal/index/flat/flat.go — kept the
// Config/Index/Insert/Search/Size shape — generalized to own its vectors
// through a shared internal/arena.Arena and internal/ids maps instead of a
// per-entry []*VectorEntry slice plus a map[string]int, and with the
// teacher's bubble-sort-by-distance full scan replaced by the shared topk
// selector.
package flat

import (
	"errors"

	"github.com/solidvec/annex/internal/arena"
	"github.com/solidvec/annex/internal/distkernel"
	"github.com/solidvec/annex/internal/errs"
	"github.com/solidvec/annex/internal/ids"
	"github.com/solidvec/annex/internal/topk"
)

// DefaultThreshold is the population above which the adaptive dispatcher
// migrates out of flat mode (spec §4.4, default 500).
const DefaultThreshold = 500

// Buffer is a bounded exact-search vector store.
type Buffer struct {
	arena    *arena.Arena
	fwd      *ids.Forward
	rev      *ids.Reverse
	distance distkernel.Func
}

// New creates an empty flat buffer for vectors of the given dimension.
func New(dim int, metric distkernel.Metric, capacityHint int) (*Buffer, error) {
	distFn, err := distkernel.For(metric)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "unsupported metric", err)
	}
	if capacityHint < 1 {
		capacityHint = DefaultThreshold
	}
	return &Buffer{
		arena:    arena.New(dim, capacityHint),
		fwd:      ids.NewForward(capacityHint),
		rev:      ids.NewReverse(),
		distance: distFn,
	}, nil
}

// Size returns the number of vectors currently buffered.
func (b *Buffer) Size() int { return b.fwd.Len() }

// Insert appends vec under stringID. Returns a DuplicateId error if the id
// already exists in the buffer, or InvalidInput if vec contains a NaN or
// +/-Inf component; both checks run before any state mutation.
func (b *Buffer) Insert(stringID string, vec []float32) error {
	if !distkernel.AllFinite(vec) {
		return errs.New(errs.InvalidInput, "flat insert rejected: vector has non-finite component")
	}
	if _, exists := b.fwd.Get(stringID); exists {
		return errs.New(errs.DuplicateId, "id already present in flat buffer")
	}
	numericID, err := b.arena.Append(vec)
	if err != nil {
		if errors.Is(err, arena.ErrCapacityExceeded) {
			return errs.Wrap(errs.Capacity, "flat insert failed", err)
		}
		return errs.Wrap(errs.Dimension, "flat insert failed", err)
	}
	b.fwd.Insert(stringID, numericID)
	b.rev.Set(numericID, stringID)
	return nil
}

// Get returns the stored vector for a string id.
func (b *Buffer) Get(stringID string) ([]float32, bool) {
	numericID, ok := b.fwd.Get(stringID)
	if !ok {
		return nil, false
	}
	vec, err := b.arena.Get(numericID)
	if err != nil {
		return nil, false
	}
	return vec, true
}

// Delete removes a vector by string id.
func (b *Buffer) Delete(stringID string) error {
	numericID, ok := b.fwd.Get(stringID)
	if !ok {
		return errs.New(errs.IdNotFound, "id not found in flat buffer")
	}
	b.fwd.Remove(stringID)
	b.rev.Remove(numericID)
	return nil
}

// Result is a scored flat-search hit.
type Result struct {
	ID       string
	Distance float32
}

// Search performs an exact, all-pairs scan for the k nearest vectors to
// query, returning up to k results ascending by distance.
func (b *Buffer) Search(query []float32, k int) []Result {
	if k < 1 || b.arena.Size() == 0 {
		return nil
	}
	sel := topk.NewSelector(k)
	for numericID := uint32(0); numericID < uint32(b.arena.Size()); numericID++ {
		if _, alive := b.rev.Get(numericID); !alive {
			continue
		}
		vec, err := b.arena.Get(numericID)
		if err != nil {
			continue
		}
		sel.Push(topk.Candidate{ID: numericID, Distance: b.distance(query, vec)})
	}
	candidates := sel.Finalize()
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		stringID, alive := b.rev.Get(c.ID)
		if !alive {
			continue
		}
		results = append(results, Result{ID: stringID, Distance: c.Distance})
	}
	return results
}

// Each iterates every live (string id, vector) pair in numeric-id order,
// used by the dispatcher's migrate_into to feed the graph one vector at a
// time (spec §4.4: individual insertion produces better graph connectivity
// than bulk loading on this small prefix).
func (b *Buffer) Each(fn func(stringID string, vec []float32)) {
	for numericID := uint32(0); numericID < uint32(b.arena.Size()); numericID++ {
		stringID, alive := b.rev.Get(numericID)
		if !alive {
			continue
		}
		vec, err := b.arena.Get(numericID)
		if err != nil {
			continue
		}
		fn(stringID, vec)
	}
}
