// Package ids implements the forward (string->uint32) and reverse
// (uint32->string) id maps. The forward map uses open addressing with
// quadratic probing, a 7-bit control-byte fast-reject, FNV-1a hashing,
// power-of-two capacity, and a 90% max load factor. The reverse map is not
// a hash map: it is a dense slice indexed by numeric id. No example repo in the
// pack implements this design directly — xDarkicex-libravdb's
// idToIndex is a plain Go map[string]uint32 — so this is a from-scratch
// REDESIGN per spec §9 ("do not substitute a generic hash map blindly"),
// shaped after the slot/tombstone vocabulary of Go's own runtime map and
// of swiss-table style maps, generalized to the spec's explicit control
// fields.
package ids

const (
	emptyControl    uint8 = 0x80 // top bit set, never matches a 7-bit hash
	tombstoneControl uint8 = 0xFE
	maxLoadNumerator   = 9
	maxLoadDenominator = 10
)

// fnv1a32 hashes a string using the 32-bit FNV-1a algorithm (spec §4.3).
func fnv1a32(s string) uint32 {
	const (
		offsetBasis uint32 = 2166136261
		prime       uint32 = 16777619
	)
	h := offsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// control derives the 7-bit fast-reject byte from a full hash. The top bit
// is always clear so it never collides with emptyControl/tombstoneControl.
func control(hash uint32) uint8 {
	return uint8(hash>>25) & 0x7F
}

type forwardSlot struct {
	ctrl  uint8
	key   string
	value uint32
}

// Forward is an open-addressed string->uint32 map.
type Forward struct {
	slots    []forwardSlot
	size     int // live entries
	occupied int // live + tombstoned, for load-factor accounting
}

// NewForward creates a forward map whose slot count is the next power of
// two at or above capacityHint (at least 8). The map doubles as soon as one
// more entry would put live plus tombstoned slots above 90% of the slot
// count, so it can grow before capacityHint entries are stored.
func NewForward(capacityHint int) *Forward {
	cap := nextPow2(capacityHint)
	if cap < 8 {
		cap = 8
	}
	f := &Forward{slots: make([]forwardSlot, cap)}
	for i := range f.slots {
		f.slots[i].ctrl = emptyControl
	}
	return f
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Len returns the number of live entries.
func (f *Forward) Len() int { return f.size }

func (f *Forward) maybeGrow() {
	if (f.occupied+1)*maxLoadDenominator <= len(f.slots)*maxLoadNumerator {
		return
	}
	old := f.slots
	f.slots = make([]forwardSlot, len(old)*2)
	for i := range f.slots {
		f.slots[i].ctrl = emptyControl
	}
	f.occupied = 0
	f.size = 0
	for _, s := range old {
		if s.ctrl != emptyControl && s.ctrl != tombstoneControl {
			f.insertNoGrow(s.key, s.value)
		}
	}
}

func (f *Forward) insertNoGrow(key string, value uint32) {
	mask := uint32(len(f.slots) - 1)
	h := fnv1a32(key)
	ctrl := control(h)
	idx := h & mask
	step := uint32(1)
	for {
		slot := &f.slots[idx]
		if slot.ctrl == emptyControl || slot.ctrl == tombstoneControl {
			slot.ctrl = ctrl
			slot.key = key
			slot.value = value
			f.size++
			f.occupied++
			return
		}
		idx = (idx + step) & mask
		step++
	}
}

// Insert adds key->value if key is absent. It is idempotent on an equal
// key: inserting the same key again with a different value overwrites the
// stored value and reports "not new". Returns whether the key was newly
// added.
func (f *Forward) Insert(key string, value uint32) (isNew bool) {
	mask := uint32(len(f.slots) - 1)
	h := fnv1a32(key)
	ctrl := control(h)
	idx := h & mask
	step := uint32(1)
	firstTombstone := int(-1)

	for {
		slot := &f.slots[idx]
		if slot.ctrl == emptyControl {
			target := int(idx)
			if firstTombstone >= 0 {
				target = firstTombstone
			} else {
				f.occupied++
			}
			f.slots[target] = forwardSlot{ctrl: ctrl, key: key, value: value}
			f.size++
			f.maybeGrow()
			return true
		}
		if slot.ctrl == tombstoneControl {
			if firstTombstone < 0 {
				firstTombstone = int(idx)
			}
		} else if slot.ctrl == ctrl && slot.key == key {
			slot.value = value
			return false
		}
		idx = (idx + step) & mask
		step++
	}
}

// Get returns the value for key and whether it was present.
func (f *Forward) Get(key string) (uint32, bool) {
	if len(f.slots) == 0 {
		return 0, false
	}
	mask := uint32(len(f.slots) - 1)
	h := fnv1a32(key)
	ctrl := control(h)
	idx := h & mask
	step := uint32(1)

	for {
		slot := &f.slots[idx]
		if slot.ctrl == emptyControl {
			return 0, false
		}
		if slot.ctrl == ctrl && slot.key == key {
			return slot.value, true
		}
		idx = (idx + step) & mask
		step++
		if step > uint32(len(f.slots)) {
			return 0, false
		}
	}
}

// Remove tombstones key if present, returning whether it was present.
func (f *Forward) Remove(key string) bool {
	mask := uint32(len(f.slots) - 1)
	h := fnv1a32(key)
	ctrl := control(h)
	idx := h & mask
	step := uint32(1)

	for {
		slot := &f.slots[idx]
		if slot.ctrl == emptyControl {
			return false
		}
		if slot.ctrl == ctrl && slot.key == key {
			slot.ctrl = tombstoneControl
			slot.key = ""
			f.size--
			return true
		}
		idx = (idx + step) & mask
		step++
		if step > uint32(len(f.slots)) {
			return false
		}
	}
}

// Reverse is a uint32->string map. Numeric ids are dense and monotonically
// increasing, so a growable slice indexed by id outperforms open
// addressing here; tombstones are represented with a zero-length marker
// distinct from the empty string via a parallel "live" bitmap-free flag
// (an empty presence slice entry), consistent with spec §3's statement
// that numeric ids are never reused.
type Reverse struct {
	keys  []string
	alive []bool
	size  int
}

// NewReverse creates an empty reverse map.
func NewReverse() *Reverse {
	return &Reverse{}
}

// Len returns the number of live entries.
func (r *Reverse) Len() int { return r.size }

// Set records that numeric id maps to key. ids are expected to be
// assigned densely starting at 0, per spec §3.
func (r *Reverse) Set(id uint32, key string) {
	for uint32(len(r.keys)) <= id {
		r.keys = append(r.keys, "")
		r.alive = append(r.alive, false)
	}
	if !r.alive[id] {
		r.size++
	}
	r.keys[id] = key
	r.alive[id] = true
}

// Get returns the string id for a numeric id and whether it is live.
func (r *Reverse) Get(id uint32) (string, bool) {
	if id >= uint32(len(r.keys)) || !r.alive[id] {
		return "", false
	}
	return r.keys[id], true
}

// Remove tombstones a numeric id, returning whether it was live.
func (r *Reverse) Remove(id uint32) bool {
	if id >= uint32(len(r.keys)) || !r.alive[id] {
		return false
	}
	r.alive[id] = false
	r.keys[id] = ""
	r.size--
	return true
}
