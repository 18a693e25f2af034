// Package arena implements the contiguous, growable float32 vector store
// all live vectors are read from (spec §4.3). No teacher file owns vectors
// this way directly — xDarkicex-libravdb's hnsw.Node embeds its own
// []float32 per node — so this is a generalization of that per-node
// storage into the spec's single shared arena, with the explicit growth
// policy spec §4.3 requires (2x below 10k, 1.5x below 100k, 1.125x beyond).
package arena

import (
	"errors"
	"fmt"
	"math"
)

// ErrCapacityExceeded is returned by Append when the arena has hit its
// capacity ceiling and cannot grow any further (spec §4.5.7: "Capacity
// exhaustion fails the insert with a Capacity error"). Callers wrap this
// into the engine's tagged errs.Capacity code.
var ErrCapacityExceeded = errors.New("arena: capacity exceeded")

// maxRowCapacity is the hard ceiling every Arena created via New is given:
// row ids are handed out as uint32, so no arena can ever usefully hold more
// rows than the id space can address.
const maxRowCapacity = math.MaxUint32

// Arena owns a capacity x dimension contiguous float32 buffer.
type Arena struct {
	dim      int
	data     []float32 // len == capacity*dim
	size     int       // number of occupied rows
	capacity int
	maxCap   int // ceiling grow() will not cross; Append fails past it
}

// New creates an arena for vectors of the given dimension with room for at
// least initialCapacity rows, ceilinged only by the uint32 row-id space.
func New(dim, initialCapacity int) *Arena {
	return NewBounded(dim, initialCapacity, maxRowCapacity)
}

// NewBounded is New with an explicit, lower capacity ceiling: once grown to
// maxCapacity rows, Append returns ErrCapacityExceeded instead of growing
// further. Production callers want New's effectively-unbounded ceiling;
// NewBounded exists so capacity exhaustion is deterministically reachable
// (e.g. in tests) without allocating billions of rows.
func NewBounded(dim, initialCapacity, maxCapacity int) *Arena {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if maxCapacity < initialCapacity {
		maxCapacity = initialCapacity
	}
	return &Arena{
		dim:      dim,
		data:     make([]float32, initialCapacity*dim),
		capacity: initialCapacity,
		maxCap:   maxCapacity,
	}
}

// Dim returns the fixed vector dimension.
func (a *Arena) Dim() int { return a.dim }

// Size returns the number of occupied rows.
func (a *Arena) Size() int { return a.size }

// Capacity returns the current row capacity.
func (a *Arena) Capacity() int { return a.capacity }

// Append copies vec into the next free slot and returns its row id. It
// grows the arena first if there is no room. vec must have length Dim().
// Returns ErrCapacityExceeded, unmutated, if the arena is already at its
// ceiling.
func (a *Arena) Append(vec []float32) (uint32, error) {
	if len(vec) != a.dim {
		return 0, fmt.Errorf("arena: vector has dimension %d, expected %d", len(vec), a.dim)
	}
	if a.size >= a.capacity {
		if err := a.grow(); err != nil {
			return 0, err
		}
	}
	id := uint32(a.size)
	offset := a.size * a.dim
	copy(a.data[offset:offset+a.dim], vec)
	a.size++
	return id, nil
}

// Get returns a view of the vector stored at id. The returned slice aliases
// the arena's backing storage and is only valid until the next Grow (via
// Append crossing capacity); callers that need a stable copy must clone it.
func (a *Arena) Get(id uint32) ([]float32, error) {
	if id >= uint32(a.size) {
		return nil, fmt.Errorf("arena: id %d out of range (size %d)", id, a.size)
	}
	offset := int(id) * a.dim
	return a.data[offset : offset+a.dim], nil
}

// growthFactor returns the multiplier applied when the arena must grow
// past its current capacity, tiered per spec §4.3.
func growthFactor(capacity int) float64 {
	switch {
	case capacity < 10_000:
		return 2.0
	case capacity < 100_000:
		return 1.5
	default:
		return 1.125
	}
}

func (a *Arena) grow() error {
	if a.capacity >= a.maxCap {
		return ErrCapacityExceeded
	}
	factor := growthFactor(a.capacity)
	newCapacity := int(float64(a.capacity) * factor)
	if newCapacity <= a.capacity {
		newCapacity = a.capacity + 1
	}
	if newCapacity > a.maxCap {
		newCapacity = a.maxCap
	}
	newData := make([]float32, newCapacity*a.dim)
	copy(newData, a.data[:a.size*a.dim])
	a.data = newData
	a.capacity = newCapacity
	return nil
}

// Reset discards all rows and zeroes the buffer, keeping the arena's
// dimension and current capacity allocation.
func (a *Arena) Reset() {
	a.size = 0
	for i := range a.data {
		a.data[i] = 0
	}
}
