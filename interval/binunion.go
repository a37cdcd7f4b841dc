package interval

import (
	"fmt"
	"sort"
)

// IDEntry is a single interval on the sequence identified by ID, with 0-based
// [Start0, End) coordinates.  IDs are typically HICSLICE chromosome keys.
type IDEntry struct {
	ID     int
	Start0 PosType
	End    PosType
}

// BinUnion is an interval-union keyed by integer sequence ID.  Each sequence
// maps to a length-2N sorted endpoint slice, where the start of interval #k
// is in element [2k] and its end is in element [2k+1].
//
// The interval sets are immutable after construction.  The query cache is
// not, so a BinUnion must not be queried from multiple goroutines; use Clone
// to get an independent search state sharing the same intervals.
type BinUnion struct {
	idMap map[int][]PosType
	// lastEndpoints points to the disjoint-interval-set for the most recently
	// queried ID.  This is a minor performance optimization.
	lastEndpoints []PosType
	// lastID is the last queried ID; hasLast is false before the first query.
	lastID  int
	hasLast bool
	// lastPosPlus1 is 1 plus the last spot-queried position.
	lastPosPlus1 PosType
	// lastIdx is SearchPosTypes(lastEndpoints, lastPosPlus1).  Cached to
	// accelerate sequential queries.
	lastIdx EndpointIndex
	// isSequential is true if all queries since the last ID change have been in
	// order of nondecreasing position.
	isSequential bool
}

// NewBinUnion merges touching/overlapping intervals and drops empty ones.
// entries may be in any order; it is not modified.
func NewBinUnion(entries []IDEntry) (u BinUnion, err error) {
	sorted := make([]IDEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ID != sorted[j].ID {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Start0 < sorted[j].Start0
	})
	u.idMap = make(map[int][]PosType)
	var (
		endpoints          []PosType
		prevStart, prevEnd PosType
		prevID             int
		open               bool
	)
	flush := func() {
		if open {
			endpoints = append(endpoints, prevStart, prevEnd)
			u.idMap[prevID] = endpoints
		}
		endpoints = nil
		open = false
	}
	for _, e := range sorted {
		if e.Start0 < 0 {
			err = fmt.Errorf("interval.NewBinUnion: negative start coordinate %d for ID %d", e.Start0, e.ID)
			return
		}
		if e.End < e.Start0 || e.End >= PosTypeMax {
			err = fmt.Errorf("interval.NewBinUnion: invalid coordinate pair [%d, %d) for ID %d", e.Start0, e.End, e.ID)
			return
		}
		if e.End == e.Start0 {
			continue
		}
		if !open || e.ID != prevID {
			if open {
				flush()
			}
			prevID = e.ID
			prevStart = e.Start0
			prevEnd = e.End
			open = true
			continue
		}
		if e.Start0 > prevEnd {
			// New interval doesn't overlap previous one, so we can save the previous
			// one.
			endpoints = append(endpoints, prevStart, prevEnd)
			prevStart = e.Start0
			prevEnd = e.End
		} else if e.End > prevEnd {
			// Intervals overlap, merge them.
			prevEnd = e.End
		}
	}
	flush()
	return
}

// ContainsByID checks whether the (0-based) interval [pos, pos+1) is contained
// within the BinUnion.  Unknown IDs are never contained.
func (u *BinUnion) ContainsByID(id int, pos PosType) bool {
	posPlus1 := pos + 1
	if !u.hasLast || id != u.lastID {
		u.hasLast = true
		u.lastID = id
		u.lastEndpoints = u.idMap[id]
		// Force use of SearchPosTypes() on the first query for a sequence.
		if u.lastEndpoints == nil {
			return false
		}
		u.lastIdx = SearchPosTypes(u.lastEndpoints, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastIdx.Contained()
	}
	if u.lastEndpoints == nil {
		return false
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx.Update(pos, u.lastEndpoints)
			u.lastPosPlus1 = posPlus1
			return u.lastIdx.Contained()
		}
		u.isSequential = false
	}
	return NewEndpointIndex(pos, u.lastEndpoints).Contained()
}

// IDs returns the sequence IDs with at least one nonempty interval, in
// increasing order.
func (u *BinUnion) IDs() []int {
	ids := make([]int, 0, len(u.idMap))
	for id := range u.idMap {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the total number of positions covered.
func (u *BinUnion) Len() int64 {
	var n int64
	for _, endpoints := range u.idMap {
		for i := 0; i < len(endpoints); i += 2 {
			n += int64(endpoints[i+1] - endpoints[i])
		}
	}
	return n
}

// Clone returns a new BinUnion which shares the interval sets, but has its
// own search state.
func (u *BinUnion) Clone() BinUnion {
	return BinUnion{idMap: u.idMap}
}
