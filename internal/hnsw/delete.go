package hnsw

// replaceEntryPoint picks a new entry point after the current one was
// tombstoned. It prefers a tracked high-level candidate (cheap, usually
// available) and only falls back to a full scan when none remain, mirroring
// xDarkicex-libravdb's handleEntryPointReplacement — but since deletion
// never rewires edges here, this only ever needs to retarget the single
// entryPoint/maxLevel pair, not rebuild any connections.
func (idx *Index) replaceEntryPoint(deletedID uint32) {
	if best, ok := idx.bestHiCandidate(deletedID); ok {
		idx.entryPoint = best
		idx.maxLevel = idx.nodes[best].level
		return
	}

	bestID := uint32(0)
	bestLevel := -1
	found := false
	for i, n := range idx.nodes {
		id := uint32(i)
		if id == deletedID || idx.tombstones.Contains(id) {
			continue
		}
		if n.level > bestLevel {
			bestLevel = n.level
			bestID = id
			found = true
		}
	}
	if !found {
		idx.hasEntry = false
		return
	}
	idx.entryPoint = bestID
	idx.maxLevel = bestLevel
	idx.rebuildHiCandidates()
}

// bestHiCandidate scans idx.hiCandidates for the best replacement entry
// point. removeFromHiCandidates does a swap-with-last removal, so this
// slice's order drifts away from ascending numeric id after deletions;
// ties at the max level are broken explicitly by lowest numeric id (spec
// §3) rather than relying on scan order.
func (idx *Index) bestHiCandidate(excludeID uint32) (uint32, bool) {
	bestID := uint32(0)
	bestLevel := -1
	found := false
	for _, id := range idx.hiCandidates {
		if id == excludeID || idx.tombstones.Contains(id) {
			continue
		}
		lvl := idx.nodes[id].level
		if lvl > bestLevel || (lvl == bestLevel && id < bestID) {
			bestLevel = lvl
			bestID = id
			found = true
		}
	}
	return bestID, found
}

func (idx *Index) removeFromHiCandidates(id uint32) {
	for i, c := range idx.hiCandidates {
		if c == id {
			idx.hiCandidates[i] = idx.hiCandidates[len(idx.hiCandidates)-1]
			idx.hiCandidates = idx.hiCandidates[:len(idx.hiCandidates)-1]
			return
		}
	}
}

func (idx *Index) rebuildHiCandidates() {
	idx.hiCandidates = idx.hiCandidates[:0]
	for i, n := range idx.nodes {
		id := uint32(i)
		if n.level >= entryPointLevelThreshold && !idx.tombstones.Contains(id) {
			idx.hiCandidates = append(idx.hiCandidates, id)
		}
	}
}
