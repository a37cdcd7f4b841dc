// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package apa

import (
	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/apa/interval"
)

// bucketFactor is the LoopIndex bucket size, in windows.  It must be at
// least 1 for the 3x3 neighborhood search to be complete.
const bucketFactor = 3

// maxBin bounds the bins that can contribute to a matrix.  Larger bins can't
// be represented by the region filter's interval unions.
const maxBin = interval.PosTypeMax - 2

type bucketKey struct {
	pair   uint32
	bx, by int64
}

// Candidate is a loop returned by NearbyLoops.  Transposed is set when the
// candidate was found through the (chr2, chr1) orientation of an
// inter-chromosomal loop.
type Candidate struct {
	Ref        LoopRef
	Transposed bool
}

// LoopIndex buckets the loops of one catalog by chromosome pair and center
// bin, for exact candidate retrieval.  Contacts between two chromosomes may
// be stored in either order, so inter-chromosomal loops are indexed under
// both orientations.  A LoopIndex is immutable after construction and safe
// for concurrent use.
type LoopIndex struct {
	catalog    *Catalog
	window     int64
	bucketSize int64
	buckets    map[bucketKey][]Candidate
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// NewLoopIndex indexes every loop of c.
func NewLoopIndex(c *Catalog, window int) *LoopIndex {
	idx := &LoopIndex{
		catalog:    c,
		window:     int64(window),
		bucketSize: int64(bucketFactor * window),
		buckets:    make(map[bucketKey][]Candidate),
	}
	for i := 0; i < c.Len(); i++ {
		ref := LoopRef(i)
		e := c.Entry(ref)
		cx, cy := c.Center(ref)
		idx.add(e.Chr1, e.Chr2, cx, cy, Candidate{Ref: ref})
		if !e.Intra() {
			idx.add(e.Chr2, e.Chr1, cy, cx, Candidate{Ref: ref, Transposed: true})
		}
	}
	return idx
}

func (idx *LoopIndex) add(chr1, chr2 hicslice.ChromKey, cx, cy int64, cand Candidate) {
	key := bucketKey{
		pair: hicslice.PairKey(chr1, chr2),
		bx:   floorDiv(cx, idx.bucketSize),
		by:   floorDiv(cy, idx.bucketSize),
	}
	idx.buckets[key] = append(idx.buckets[key], cand)
}

// NearbyLoops appends to dst[:0] the loops in the 3x3 bucket neighborhood of
// (binX, binY) on the chromosome pair (chr1, chr2), and returns the result.
// Every loop within window of the record on both axes is included, but so
// may be others; use Offset for the exact test.
func (idx *LoopIndex) NearbyLoops(chr1, chr2 hicslice.ChromKey, binX, binY int32, dst []Candidate) []Candidate {
	dst = dst[:0]
	pair := hicslice.PairKey(chr1, chr2)
	bx := floorDiv(int64(binX), idx.bucketSize)
	by := floorDiv(int64(binY), idx.bucketSize)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			dst = append(dst, idx.buckets[bucketKey{pair: pair, bx: bx + dx, by: by + dy}]...)
		}
	}
	return dst
}

// Offset returns the matrix cell, in the orientation of the loop, of the
// record at (binX, binY) relative to cand, and whether the record lies
// within window of the loop center on both axes.  Negative bins and bins
// above maxBin are never within window.
func (idx *LoopIndex) Offset(cand Candidate, binX, binY int32) (x, y int, ok bool) {
	if binX < 0 || binY < 0 || binX > maxBin || binY > maxBin {
		return 0, 0, false
	}
	if cand.Transposed {
		binX, binY = binY, binX
	}
	cx, cy := idx.catalog.Center(cand.Ref)
	dx := int64(binX) - cx
	dy := int64(binY) - cy
	if dx < -idx.window || dx > idx.window || dy < -idx.window || dy > idx.window {
		return 0, 0, false
	}
	return int(dx + idx.window), int(dy + idx.window), true
}
