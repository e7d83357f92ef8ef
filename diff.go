package tsdemux

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// diffPIDMap computes the added/removed/changed program-number -> PID
// entries between two complete PAT versions (the PMT diffs its ES records
// with diffESMap instead). changed holds the OLD value for keys present in both maps
// under a different value, so callers can fire remove-then-add.
func diffPIDMap(old, updated map[uint16]uint16) (added, removed, changed map[uint16]uint16) {
	added = make(map[uint16]uint16)
	removed = make(map[uint16]uint16)
	changed = make(map[uint16]uint16)

	for k, oldV := range old {
		newV, ok := updated[k]
		if !ok {
			removed[k] = oldV
			continue
		}
		if newV != oldV {
			changed[k] = oldV
		}
	}
	for k, newV := range updated {
		if _, ok := old[k]; !ok {
			added[k] = newV
		}
	}
	return
}

// sortedUint16Keys returns m's keys in ascending order, so that diff
// callbacks fire in a deterministic sequence instead of Go's randomized
// map iteration order.
func sortedUint16Keys(m map[uint16]uint16) []uint16 {
	ks := maps.Keys(m)
	slices.Sort(ks)
	return ks
}
