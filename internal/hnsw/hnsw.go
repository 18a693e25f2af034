// Package hnsw implements the adaptive navigable small world graph the
// dispatcher promotes a collection into once it outgrows the flat buffer
// (spec §4.5). Adapted from xDarkicex-libravdb's
// internal/index/hnsw/{hnsw,insert,search,neighbors,node,delete}.go — kept
// the Index/Node/Config shape, the level-generation draw, and the
// search_layer beam-search loop — rewritten against a shared
// internal/arena.Arena and internal/ids maps instead of per-node
// []float32/map[string]uint32 storage, with two deliberate departures from
// the teacher: neighbor selection uses the strict RNG-style heuristic
// (spec §4.5.4) instead of the teacher's 80%-threshold shortcut, and
// deletion tombstones a node via a roaring bitmap instead of rewiring its
// neighbors (spec §4.5.6).
package hnsw

import (
	"errors"
	"math"
	"math/rand"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/solidvec/annex/internal/arena"
	"github.com/solidvec/annex/internal/distkernel"
	"github.com/solidvec/annex/internal/errs"
	"github.com/solidvec/annex/internal/ids"
	"github.com/solidvec/annex/internal/topk"
)

// maxLevel caps the geometric level draw so a pathological RNG run can't
// allocate an unbounded number of link slices for one node.
const maxLevel = 16

// Config holds the tunables for a graph instance.
type Config struct {
	Dimension          int
	M                  int // max bidirectional links per node above layer 0
	EfConstruction     int
	EfSearch           int
	ML                 float64 // level generation factor, default 1/ln(M)
	Metric             distkernel.Metric
	Seed               int64
	BinaryQuantization bool // enable Hamming pre-filtering during search (spec §4.5.8)
}

func (c *Config) validate() error {
	if c.Dimension <= 0 {
		return errs.New(errs.InvalidInput, "hnsw: dimension must be positive")
	}
	if c.M <= 0 {
		return errs.New(errs.InvalidInput, "hnsw: M must be positive")
	}
	if c.EfConstruction <= 0 {
		return errs.New(errs.InvalidInput, "hnsw: EfConstruction must be positive")
	}
	if c.EfSearch <= 0 {
		return errs.New(errs.InvalidInput, "hnsw: EfSearch must be positive")
	}
	if c.ML <= 0 {
		c.ML = 1.0 / math.Log(float64(c.M))
	}
	return nil
}

// Result is a scored graph search hit.
type Result struct {
	ID       string
	Distance float32
}

// Index is a single HNSW graph over vectors of a fixed dimension.
type Index struct {
	config Config

	arena *arena.Arena
	fwd   *ids.Forward
	rev   *ids.Reverse

	nodes []*node
	codes binaryCodes

	tombstones   *roaring.Bitmap
	hiCandidates []uint32 // nodes with level >= entryPointLevelThreshold, for entry point replacement

	hasEntry   bool
	entryPoint uint32
	maxLevel   int

	rng      *rand.Rand
	distance distkernel.Func
	selector *neighborSelector

	size int // live (non-tombstoned) vector count
}

// binaryCodes is nil-able storage for per-node Hamming pre-filter codes,
// indexed in parallel with nodes/arena rows.
type binaryCodes []distkernel.BinaryCode

// entryPointLevelThreshold is the minimum level a node must reach to be
// tracked as a replacement candidate for the graph's entry point.
const entryPointLevelThreshold = 2

// New creates an empty HNSW graph.
func New(cfg Config) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	distFn, err := distkernel.For(cfg.Metric)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "hnsw: unsupported metric", err)
	}
	idx := &Index{
		config:     cfg,
		arena:      arena.New(cfg.Dimension, cfg.EfConstruction*4),
		fwd:        ids.NewForward(256),
		rev:        ids.NewReverse(),
		tombstones: roaring.New(),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		distance:   distFn,
		selector:   newNeighborSelector(cfg.M),
	}
	if cfg.BinaryQuantization {
		idx.codes = make(binaryCodes, 0, cfg.EfConstruction*4)
	}
	return idx, nil
}

// Size returns the number of live (non-deleted) vectors in the graph.
func (idx *Index) Size() int { return idx.size }

// Dim returns the configured vector dimension.
func (idx *Index) Dim() int { return idx.config.Dimension }

// Each iterates every live (string id, vector) pair in numeric-id order,
// used by checkpointing to snapshot the graph's current population.
func (idx *Index) Each(fn func(stringID string, vec []float32)) {
	for numericID := uint32(0); numericID < uint32(len(idx.nodes)); numericID++ {
		stringID, alive := idx.rev.Get(numericID)
		if !alive {
			continue
		}
		vec, err := idx.arena.Get(numericID)
		if err != nil {
			continue
		}
		fn(stringID, vec)
	}
}

// generateLevel draws a level from the geometric distribution with factor
// ML, capped at maxLevel (spec §4.5.2).
func (idx *Index) generateLevel() int {
	level := 0
	for idx.rng.Float64() < idx.config.ML && level < maxLevel {
		level++
	}
	return level
}

func (idx *Index) exactDistance(query []float32, id uint32) float32 {
	vec, err := idx.arena.Get(id)
	if err != nil {
		return float32(math.Inf(1))
	}
	return idx.distance(query, vec)
}

// Insert adds vec under stringID, returning DuplicateId if it already
// exists, or InvalidInput before any mutation if vec carries a NaN or
// +/-Inf component. The new node is connected into every layer from its
// drawn level down to 0 (spec §4.5.3). It returns the vector's numeric
// (arena) id, which the segmented variant (internal/segment) packs
// alongside a shard index to form a segment-global id.
func (idx *Index) Insert(stringID string, vec []float32) (uint32, error) {
	if !distkernel.AllFinite(vec) {
		return 0, errs.New(errs.InvalidInput, "hnsw insert rejected: vector has non-finite component")
	}
	if _, exists := idx.fwd.Get(stringID); exists {
		return 0, errs.New(errs.DuplicateId, "id already present in graph")
	}

	numericID, err := idx.arena.Append(vec)
	if err != nil {
		if errors.Is(err, arena.ErrCapacityExceeded) {
			return 0, errs.Wrap(errs.Capacity, "hnsw insert failed", err)
		}
		return 0, errs.Wrap(errs.Dimension, "hnsw insert failed", err)
	}

	level := idx.generateLevel()
	n := &node{level: level, links: make([][]uint32, level+1)}
	for l := 0; l <= level; l++ {
		n.links[l] = make([]uint32, 0, idx.maxMAt(l))
	}
	idx.nodes = append(idx.nodes, n)
	idx.fwd.Insert(stringID, numericID)
	idx.rev.Set(numericID, stringID)

	if idx.codes != nil {
		idx.codes = append(idx.codes, distkernel.Encode(vec))
	}

	if level >= entryPointLevelThreshold {
		idx.hiCandidates = append(idx.hiCandidates, numericID)
	}

	if !idx.hasEntry {
		idx.hasEntry = true
		idx.entryPoint = numericID
		idx.maxLevel = level
		idx.size++
		return numericID, nil
	}

	idx.insertIntoGraph(vec, numericID, level)
	idx.size++

	if level > idx.maxLevel {
		idx.entryPoint = numericID
		idx.maxLevel = level
	}
	return numericID, nil
}

func (idx *Index) maxMAt(level int) int {
	if level == 0 {
		return idx.config.M * 2
	}
	return idx.config.M
}

func (idx *Index) insertIntoGraph(vec []float32, numericID uint32, level int) {
	ep := idx.entryPoint
	for l := idx.maxLevel; l > level; l-- {
		cands := idx.searchLevel(vec, ep, 1, l)
		if len(cands) > 0 {
			ep = cands[0].ID
		}
	}

	for l := min(level, idx.maxLevel); l >= 0; l-- {
		cands := idx.searchLevel(vec, ep, idx.config.EfConstruction, l)
		selected := idx.selector.selectNeighbors(vec, cands, idx.maxMAt(l), idx)
		idx.connectBidirectional(numericID, selected, l)
		for _, c := range selected {
			idx.pruneConnections(c.ID, l)
		}
		if len(selected) > 0 {
			ep = selected[0].ID
		}
	}
}

func (idx *Index) connectBidirectional(numericID uint32, neighbors []topk.Candidate, level int) {
	self := idx.nodes[numericID]
	for _, nb := range neighbors {
		self.links[level] = append(self.links[level], nb.ID)
		other := idx.nodes[nb.ID]
		if level < len(other.links) {
			other.links[level] = append(other.links[level], numericID)
		}
	}
}

func (idx *Index) pruneConnections(numericID uint32, level int) {
	n := idx.nodes[numericID]
	if level >= len(n.links) {
		return
	}
	maxM := idx.maxMAt(level)
	if len(n.links[level]) <= maxM {
		return
	}
	vec, err := idx.arena.Get(numericID)
	if err != nil {
		return
	}
	candidates := make([]topk.Candidate, 0, len(n.links[level]))
	for _, linkID := range n.links[level] {
		linkVec, err := idx.arena.Get(linkID)
		if err != nil {
			continue
		}
		candidates = append(candidates, topk.Candidate{ID: linkID, Distance: idx.distance(vec, linkVec)})
	}
	selected := idx.selector.selectNeighbors(vec, candidates, maxM, idx)
	newLinks := make([]uint32, len(selected))
	for i, c := range selected {
		newLinks[i] = c.ID
	}
	n.links[level] = newLinks
}

// Search returns the k nearest live vectors to query.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != idx.config.Dimension {
		return nil, errs.New(errs.Dimension, "hnsw: query dimension mismatch")
	}
	if !idx.hasEntry || k < 1 {
		return nil, nil
	}

	ep := idx.entryPoint
	for l := idx.maxLevel; l > 0; l-- {
		cands := idx.searchLevel(query, ep, 1, l)
		if len(cands) > 0 {
			ep = cands[0].ID
		}
	}

	ef := idx.config.EfSearch
	if k > ef {
		ef = k
	}

	var bottom []topk.Candidate
	if idx.codes != nil {
		queryCode := distkernel.Encode(query)
		bottom = idx.searchLevelApprox(query, queryCode, ep, ef)
	} else {
		bottom = idx.searchLevel(query, ep, ef, 0)
	}

	if len(bottom) > k {
		bottom = bottom[:k]
	}
	results := make([]Result, 0, len(bottom))
	for _, c := range bottom {
		stringID, alive := idx.rev.Get(c.ID)
		if !alive {
			continue
		}
		results = append(results, Result{ID: stringID, Distance: c.Distance})
	}
	return results, nil
}

// Delete tombstones stringID without touching any edges, so the rest of
// the graph stays navigable through it (spec §4.5.6).
func (idx *Index) Delete(stringID string) error {
	numericID, ok := idx.fwd.Get(stringID)
	if !ok {
		return errs.New(errs.IdNotFound, "id not found in graph")
	}
	idx.tombstones.Add(numericID)
	idx.fwd.Remove(stringID)
	idx.rev.Remove(numericID)
	idx.removeFromHiCandidates(numericID)
	idx.size--

	if numericID == idx.entryPoint {
		idx.replaceEntryPoint(numericID)
	}
	return nil
}

