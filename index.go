// Package annex is an embeddable approximate-nearest-neighbor vector index:
// a flat exact buffer for small populations, promoted to an HNSW graph and,
// for large bulk loads, fanned out into independent parallel-built segments,
// with mmap-backed append-only persistence. Grounded on
// xDarkicex-libravdb/libravdb/collection.go's facade shape (RWMutex-guarded
// struct wrapping an internal index, optional metrics), narrowed to a single
// index per struct — no collections, no filter query planner.
package annex

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/solidvec/annex/internal/distkernel"
	"github.com/solidvec/annex/internal/errs"
	"github.com/solidvec/annex/internal/flat"
	"github.com/solidvec/annex/internal/hnsw"
	"github.com/solidvec/annex/internal/obs"
	"github.com/solidvec/annex/internal/persist"
	"github.com/solidvec/annex/internal/segment"

	"github.com/prometheus/client_golang/prometheus"
)

// mode identifies which backing structure currently owns the population
// (spec §4.7).
type mode int

const (
	modeFlat mode = iota
	modeGraph
	modeSegmented
)

// Result is a scored search hit.
type Result struct {
	ID       string
	Distance float32
}

// Index is a single adaptive vector index. The zero value is not usable;
// construct one with New. An Index is safe for concurrent use: every
// operation is serialized under a single-writer discipline (spec §5), except
// the parallel segment construction/search that runs inside a single
// InsertBatch/Search call.
type Index struct {
	mu     sync.RWMutex
	cfg    Config
	mode   mode
	closed bool

	flatBuf *flat.Buffer
	graph   *hnsw.Index
	seg     *segment.Index

	metrics *obs.Metrics
}

// New constructs an empty Index. cfg.Dimension must be set; every other
// numeric tunable left zero takes DefaultConfig's value, except Seed, which
// is used as given (a zero Seed stays 0).
func New(cfg Config) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	flatBuf, err := flat.New(cfg.Dimension, cfg.Metric, cfg.FlatThreshold)
	if err != nil {
		return nil, err
	}
	ix := &Index{cfg: cfg, mode: modeFlat, flatBuf: flatBuf}
	if cfg.Metrics {
		ix.metrics = obs.New(prometheus.NewRegistry())
	}
	return ix, nil
}

func (ix *Index) hnswConfig() hnsw.Config {
	return hnsw.Config{
		Dimension:          ix.cfg.Dimension,
		M:                  ix.cfg.M,
		EfConstruction:     ix.cfg.EfConstruction,
		EfSearch:           ix.cfg.EfSearch,
		ML:                 ix.cfg.ML,
		Metric:             ix.cfg.Metric,
		Seed:               ix.cfg.Seed,
		BinaryQuantization: ix.cfg.BinaryQuant,
	}
}

// segmentCount bounds the number of parallel build/search shards to the
// host's available threads, capped by segment.MaxSegments (spec §4.6:
// "S = number of hardware threads, bounded above").
func segmentCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	if n > segment.MaxSegments {
		n = segment.MaxSegments
	}
	return n
}

// Insert adds a single vector under stringID, migrating Flat->Graph if this
// insertion would exceed FlatThreshold (spec §4.7). A vector with a NaN or
// +/-Inf component is rejected with InvalidInput before any lock is taken
// or state mutated (spec §4.5.7).
func (ix *Index) Insert(ctx context.Context, stringID string, vec []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !distkernel.AllFinite(vec) {
		return errs.New(errs.InvalidInput, "annex: vector has non-finite component")
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return errs.New(errs.NotInitialized, "annex: index is closed")
	}

	var err error
	switch ix.mode {
	case modeFlat:
		if err = ix.flatBuf.Insert(stringID, vec); err != nil {
			return err
		}
		if ix.flatBuf.Size() > ix.cfg.FlatThreshold {
			if err := ix.migrateFlatToGraph(); err != nil {
				return err
			}
		}
	case modeGraph:
		_, err = ix.graph.Insert(stringID, vec)
	case modeSegmented:
		err = ix.seg.Insert(stringID, vec)
	}
	if err != nil {
		return err
	}
	ix.metrics.ObserveInsert()
	return nil
}

// migrateFlatToGraph builds a fresh HNSW graph and reinserts every vector
// from the flat buffer one at a time (spec §4.7: "Migration iterates the
// flat buffer and inserts each vector individually into a freshly
// constructed graph"), then drops the flat buffer.
func (ix *Index) migrateFlatToGraph() error {
	graph, err := hnsw.New(ix.hnswConfig())
	if err != nil {
		return err
	}
	var migrateErr error
	ix.flatBuf.Each(func(stringID string, vec []float32) {
		if migrateErr != nil {
			return
		}
		_, migrateErr = graph.Insert(stringID, vec)
	})
	if migrateErr != nil {
		return migrateErr
	}
	ix.graph = graph
	ix.flatBuf = nil
	ix.mode = modeGraph
	ix.metrics.ObserveModeTransition("flat", "graph")
	return nil
}

// InsertBatch adds many vectors at once. If the index is empty and the
// batch meets SegmentedThreshold, it is built directly as a segmented graph
// (spec §4.7: "Graph -> Segmented only during a bulk insertion ... when
// current population is 0"); otherwise every vector is inserted one at a
// time via Insert, so smaller batches still cross the Flat->Graph threshold
// normally. The returned slice reports per-vector success in input order.
func (ix *Index) InsertBatch(ctx context.Context, ids []string, vecs [][]float32) ([]bool, error) {
	if len(ids) != len(vecs) {
		return nil, errs.New(errs.InvalidInput, "annex: ids and vecs must have the same length")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix.mu.Lock()
	bulkEligible := ix.mode == modeFlat && ix.flatBuf.Size() == 0 && len(ids) >= ix.cfg.SegmentedThreshold
	ix.mu.Unlock()

	if bulkEligible {
		// All-or-nothing: bulkBuildSegmented only mutates ix after every
		// shard has finished building, so a failure here leaves the index
		// untouched and there is nothing to fall back to per-item for.
		return ix.bulkBuildSegmented(ids, vecs)
	}

	ok := make([]bool, len(ids))
	for i := range ids {
		if err := ix.Insert(ctx, ids[i], vecs[i]); err != nil {
			ok[i] = false
			continue
		}
		ok[i] = true
	}
	return ok, nil
}

func (ix *Index) bulkBuildSegmented(ids []string, vecs [][]float32) ([]bool, error) {
	for _, vec := range vecs {
		if !distkernel.AllFinite(vec) {
			return nil, errs.New(errs.InvalidInput, "annex: vector has non-finite component")
		}
	}
	seg, err := segment.New(segmentCount(), ix.hnswConfig())
	if err != nil {
		return nil, err
	}
	items := make([]segment.Item, len(ids))
	for i := range ids {
		items[i] = segment.Item{ID: ids[i], Vector: vecs[i]}
	}
	if err := seg.BulkBuild(items); err != nil {
		return nil, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.seg = seg
	ix.flatBuf = nil
	ix.graph = nil
	ix.mode = modeSegmented
	ix.metrics.ObserveModeTransition("flat", "segmented")

	ok := make([]bool, len(ids))
	for i := range ok {
		ok[i] = true
		ix.metrics.ObserveInsert()
	}
	return ok, nil
}

// Search returns up to k nearest neighbors of query. Exactly one backing
// structure is ever consulted — the flat buffer while it holds any live
// vectors, otherwise the active graph (spec §4.7).
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, errs.New(errs.NotInitialized, "annex: index is closed")
	}

	var results []Result
	var err error
	switch ix.mode {
	case modeFlat:
		for _, r := range ix.flatBuf.Search(query, k) {
			results = append(results, Result{ID: r.ID, Distance: r.Distance})
		}
	case modeGraph:
		var hits []hnsw.Result
		hits, err = ix.graph.Search(query, k)
		for _, r := range hits {
			results = append(results, Result{ID: r.ID, Distance: r.Distance})
		}
	case modeSegmented:
		var hits []hnsw.Result
		hits, err = ix.seg.Search(query, k)
		for _, r := range hits {
			results = append(results, Result{ID: r.ID, Distance: r.Distance})
		}
	}
	ix.metrics.ObserveSearch(time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes a vector by string id from whichever structure currently
// owns the population.
func (ix *Index) Delete(ctx context.Context, stringID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return errs.New(errs.NotInitialized, "annex: index is closed")
	}

	var err error
	switch ix.mode {
	case modeFlat:
		err = ix.flatBuf.Delete(stringID)
	case modeGraph:
		err = ix.graph.Delete(stringID)
	case modeSegmented:
		err = ix.seg.Delete(stringID)
	}
	if err != nil {
		return err
	}
	ix.metrics.ObserveDelete()
	return nil
}

// Close releases the index. Subsequent operations return NotInitialized.
// An Index holds no file handles outside of Checkpoint/Recover calls, so
// Close never itself fails; it exists for parity with Checkpoint/Recover's
// own resource lifecycle and the teacher's Collection.Close shape.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.closed = true
	return nil
}

// Count returns the current live population.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	switch ix.mode {
	case modeFlat:
		return ix.flatBuf.Size()
	case modeGraph:
		return ix.graph.Size()
	case modeSegmented:
		return ix.seg.Size()
	}
	return 0
}

// Clear destroys all state and returns the index to an empty flat buffer
// under its existing configuration. To change the dimension, construct a
// new Index with New instead (spec.md's "next init may change dim" maps
// here to discarding this Index and creating another).
func (ix *Index) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	flatBuf, err := flat.New(ix.cfg.Dimension, ix.cfg.Metric, ix.cfg.FlatThreshold)
	if err != nil {
		return err
	}
	ix.flatBuf = flatBuf
	ix.graph = nil
	ix.seg = nil
	ix.mode = modeFlat
	ix.closed = false
	return nil
}

// Checkpoint appends every currently-live vector to the on-disk store at
// basePath ("basePath.vectors"/"basePath.meta") and returns the count
// written (spec §4.8).
func (ix *Index) Checkpoint(ctx context.Context, basePath string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return 0, errs.New(errs.NotInitialized, "annex: index is closed")
	}

	store, err := persist.Open(basePath, ix.cfg.Dimension)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	var batch []persist.Vector
	collect := func(stringID string, vec []float32) {
		cp := make([]float32, len(vec))
		copy(cp, vec)
		batch = append(batch, persist.Vector{ID: stringID, Values: cp})
	}
	switch ix.mode {
	case modeFlat:
		ix.flatBuf.Each(collect)
	case modeGraph:
		ix.graph.Each(collect)
	case modeSegmented:
		ix.seg.Each(collect)
	}

	if err := store.Checkpoint(batch); err != nil {
		return 0, err
	}
	ix.metrics.ObserveCheckpoint(time.Since(start).Seconds())
	return len(batch), nil
}

// Recover replaces the index's contents with every vector found at
// basePath, reinserting each one into a fresh backing structure (spec §4.8:
// the graph itself is never persisted): a flat buffer for up to
// FlatThreshold vectors, an HNSW graph above that, and a segmented graph at
// SegmentedThreshold or more. A failed recovery leaves the index untouched.
func (ix *Index) Recover(ctx context.Context, basePath string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	store, err := persist.Open(basePath, ix.cfg.Dimension)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	vectors, err := store.Recover()
	if err != nil {
		return 0, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(vectors) >= ix.cfg.SegmentedThreshold {
		seg, err := segment.New(segmentCount(), ix.hnswConfig())
		if err != nil {
			return 0, err
		}
		items := make([]segment.Item, len(vectors))
		for i, v := range vectors {
			items[i] = segment.Item{ID: v.ID, Vector: v.Values}
		}
		if err := seg.BulkBuild(items); err != nil {
			return 0, err
		}
		ix.seg = seg
		ix.flatBuf = nil
		ix.graph = nil
		ix.mode = modeSegmented
		ix.closed = false
		return len(vectors), nil
	}

	if len(vectors) > ix.cfg.FlatThreshold {
		graph, err := hnsw.New(ix.hnswConfig())
		if err != nil {
			return 0, err
		}
		for _, v := range vectors {
			if _, err := graph.Insert(v.ID, v.Values); err != nil {
				return 0, err
			}
		}
		ix.graph = graph
		ix.flatBuf = nil
		ix.seg = nil
		ix.mode = modeGraph
		ix.closed = false
		return len(vectors), nil
	}

	flatBuf, err := flat.New(ix.cfg.Dimension, ix.cfg.Metric, ix.cfg.FlatThreshold)
	if err != nil {
		return 0, err
	}
	for _, v := range vectors {
		if err := flatBuf.Insert(v.ID, v.Values); err != nil {
			return 0, err
		}
	}
	ix.flatBuf = flatBuf
	ix.graph = nil
	ix.seg = nil
	ix.mode = modeFlat
	ix.closed = false
	return len(vectors), nil
}
