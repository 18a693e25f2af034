package hnsw

import (
	"github.com/solidvec/annex/internal/distkernel"
	"github.com/solidvec/annex/internal/topk"
)

// binaryPrefilterMargin is the slack applied to a Hamming-distance estimate
// before it is trusted to reject a candidate without computing the exact
// distance (spec §4.5.8). BinaryDistance is scaled to roughly the same
// range as the real metric, but it's still an approximation, so the
// rejection threshold is inflated rather than compared directly.
const binaryPrefilterMargin = float32(1.15)

// searchLevel performs the layer beam search from the HNSW paper: explore
// expands outward through the graph in distance order, found keeps the ef
// best live candidates seen so far and also drives the early-termination
// check. Adapted from xDarkicex-libravdb's search.go, generalized so found
// excludes tombstoned nodes (spec §4.5.6) while explore still walks
// through them to preserve reachability.
func (idx *Index) searchLevel(query []float32, entry uint32, ef, level int) []topk.Candidate {
	visited := make([]bool, len(idx.nodes))
	explore := topk.NewMinHeap()
	found := topk.NewSelector(ef)

	d0 := idx.exactDistance(query, entry)
	explore.PushCandidate(topk.Candidate{ID: entry, Distance: d0})
	visited[entry] = true
	if !idx.tombstones.Contains(entry) {
		found.Push(topk.Candidate{ID: entry, Distance: d0})
	}

	for explore.Len() > 0 {
		cur := explore.PopCandidate()
		if found.Full() && cur.Distance > found.Worst() {
			break
		}

		n := idx.nodes[cur.ID]
		if level >= len(n.links) {
			continue
		}
		for _, nb := range n.links[level] {
			if visited[nb] {
				continue
			}
			visited[nb] = true

			d := idx.exactDistance(query, nb)
			if !found.Full() || d < found.Worst() {
				explore.PushCandidate(topk.Candidate{ID: nb, Distance: d})
			}
			if !idx.tombstones.Contains(nb) {
				found.Push(topk.Candidate{ID: nb, Distance: d})
			}
		}
	}

	return found.Finalize()
}

// searchLevelApprox is searchLevel specialized for layer 0 when binary
// quantization is enabled: exploration priority and the early-termination
// bound are driven by the cheap Hamming estimate, falling back to the
// exact distance only once a candidate survives the margin check, so the
// majority of layer-0 traffic never touches a float comparison.
func (idx *Index) searchLevelApprox(query []float32, queryCode distkernel.BinaryCode, entry uint32, ef int) []topk.Candidate {
	visited := make([]bool, len(idx.nodes))
	explore := topk.NewMinHeap()
	found := topk.NewSelector(ef)

	d0 := idx.exactDistance(query, entry)
	explore.PushCandidate(topk.Candidate{ID: entry, Distance: d0})
	visited[entry] = true
	if !idx.tombstones.Contains(entry) {
		found.Push(topk.Candidate{ID: entry, Distance: d0})
	}

	for explore.Len() > 0 {
		cur := explore.PopCandidate()
		if found.Full() && cur.Distance > found.Worst() {
			break
		}

		n := idx.nodes[cur.ID]
		if len(n.links) == 0 {
			continue
		}
		for _, nb := range n.links[0] {
			if visited[nb] {
				continue
			}
			visited[nb] = true

			if found.Full() {
				approx, err := distkernel.BinaryDistance(queryCode, idx.codes[nb], idx.config.Dimension)
				if err == nil && approx > found.Worst()*binaryPrefilterMargin {
					explore.PushCandidate(topk.Candidate{ID: nb, Distance: approx})
					continue
				}
			}

			d := idx.exactDistance(query, nb)
			if !found.Full() || d < found.Worst() {
				explore.PushCandidate(topk.Candidate{ID: nb, Distance: d})
			}
			if !idx.tombstones.Contains(nb) {
				found.Push(topk.Candidate{ID: nb, Distance: d})
			}
		}
	}

	return found.Finalize()
}
