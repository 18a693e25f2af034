package hnsw

import (
	"sort"

	"github.com/solidvec/annex/internal/topk"
)

// neighborSelector picks which candidates a node connects to. Adapted from
// the NeighborSelector type in xDarkicex-libravdb's neighbors.go, but with
// the teacher's 80%-of-query-distance shortcut replaced by the original
// HNSW paper's relative-neighborhood-graph condition (spec §4.5.4): a
// candidate is kept only if it is strictly closer to the query than it is
// to every neighbor already kept, which is what actually prevents the
// graph from clustering into near-duplicate cliques.
type neighborSelector struct {
	m int
}

func newNeighborSelector(m int) *neighborSelector {
	return &neighborSelector{m: m}
}

// selectNeighbors returns up to maxM candidates for queryVec, preferring
// the ones that pass the RNG condition and falling back to filling any
// remaining slots from the nearest discarded candidates so a node is never
// left under-connected (spec §4.5.4's "keep pruned connections" fallback).
func (ns *neighborSelector) selectNeighbors(queryVec []float32, candidates []topk.Candidate, maxM int, idx *Index) []topk.Candidate {
	if len(candidates) <= maxM {
		sorted := append([]topk.Candidate(nil), candidates...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })
		return sorted
	}

	sorted := append([]topk.Candidate(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })

	selected := make([]topk.Candidate, 0, maxM)
	discarded := make([]topk.Candidate, 0, len(sorted))

	for _, c := range sorted {
		if len(selected) >= maxM {
			discarded = append(discarded, c)
			continue
		}
		if ns.satisfiesRNG(c, selected, idx) {
			selected = append(selected, c)
		} else {
			discarded = append(discarded, c)
		}
	}

	for i := 0; i < len(discarded) && len(selected) < maxM; i++ {
		selected = append(selected, discarded[i])
	}

	return selected
}

// satisfiesRNG reports whether candidate c is closer to the query than to
// every already-selected neighbor, rejecting it otherwise since a closer
// already-selected neighbor makes c redundant for navigation.
func (ns *neighborSelector) satisfiesRNG(c topk.Candidate, selected []topk.Candidate, idx *Index) bool {
	cVec, err := idx.arena.Get(c.ID)
	if err != nil {
		return false
	}
	for _, s := range selected {
		sVec, err := idx.arena.Get(s.ID)
		if err != nil {
			continue
		}
		if idx.distance(cVec, sVec) <= c.Distance {
			return false
		}
	}
	return true
}
