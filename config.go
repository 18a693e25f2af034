package annex

import (
	"math"

	"github.com/solidvec/annex/internal/distkernel"
	"github.com/solidvec/annex/internal/errs"
)

// Metric selects the distance function an Index compares vectors with.
type Metric = distkernel.Metric

const (
	L2     = distkernel.L2
	Cosine = distkernel.Cosine
	Dot    = distkernel.Dot
)

// Config carries every tunable the engine recognizes (spec.md §6). Loading
// it from a file or flags is out of scope — callers populate the struct
// directly, the same as the teacher's CollectionConfig.
type Config struct {
	Dimension int
	Metric    Metric

	M              int // per-layer connection cap, >= 4
	EfConstruction int // build-time beam width
	EfSearch       int // default query-time beam width
	ML             float64

	FlatThreshold      int // flat->graph migration point (default 500)
	SegmentedThreshold int // bulk->segmented threshold (default 10000)

	BinaryQuant  bool // enable Hamming pre-filter
	Seed         int64
	GrowthFactor float64 // not read by the engine; arenas always use the tiered 2x/1.5x/1.125x growth

	Metrics bool // construct and update prometheus metrics
}

// DefaultConfig returns a Config with the spec's documented defaults for
// everything but Dimension, which the caller must always set.
func DefaultConfig(dimension int) Config {
	return Config{
		Dimension:          dimension,
		Metric:             L2,
		M:                  16,
		EfConstruction:     200,
		EfSearch:           64,
		FlatThreshold:      500,
		SegmentedThreshold: 10000,
		Seed:               1,
	}
}

func (c *Config) validate() error {
	if c.Dimension <= 0 {
		return errs.New(errs.Dimension, "annex: dimension must be positive")
	}
	if c.M <= 0 {
		c.M = 16
	}
	if c.M < 4 {
		return errs.New(errs.InvalidInput, "annex: M must be at least 4")
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = 200
	}
	if c.EfSearch <= 0 {
		c.EfSearch = 64
	}
	if c.ML <= 0 {
		c.ML = 1.0 / math.Log(float64(c.M))
	}
	if c.FlatThreshold <= 0 {
		c.FlatThreshold = 500
	}
	if c.SegmentedThreshold <= 0 {
		c.SegmentedThreshold = 10000
	}
	if c.SegmentedThreshold <= c.FlatThreshold {
		return errs.New(errs.InvalidInput, "annex: segmented_threshold must exceed flat_threshold")
	}
	return nil
}
