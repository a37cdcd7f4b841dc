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
	"math/rand"
	"sort"
	"testing"

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func testDict(t *testing.T, names ...string) *hicslice.ChromDict {
	dict := hicslice.NewChromDict()
	for i, name := range names {
		require.NoError(t, dict.Add(hicslice.ChromKey(i+1), name))
	}
	return dict
}

// randomCatalog returns a catalog of nLoop loops whose centers lie in
// [0, maxBin) on chr1..chr3.
func randomCatalog(t *testing.T, r *rand.Rand, name string, mode Mode, nLoop int, maxBin int64) *Catalog {
	const resolution = 1000
	dict := testDict(t, "chr1", "chr2", "chr3")
	names := []string{"chr1", "chr2", "chr3"}
	pairs := make([]AnchorPair, nLoop)
	for i := range pairs {
		c1 := names[r.Intn(3)]
		c2 := c1
		if mode == Inter {
			for c2 == c1 {
				c2 = names[r.Intn(3)]
			}
		}
		pairs[i] = AnchorPair{
			Chrom1: c1,
			Mid1:   r.Int63n(maxBin*resolution) + resolution/2,
			Chrom2: c2,
			Mid2:   r.Int63n(maxBin*resolution) + resolution/2,
		}
	}
	c, err := NewCatalog(name, dict, resolution, pairs)
	require.NoError(t, err)
	return c
}

// bruteForceOffsets returns every (loop, x, y) the record contributes to.
// Inter-chromosomal loops also receive (chr2, chr1) records, at the
// transposed cell.
func bruteForceOffsets(c *Catalog, window int, rec hicslice.Record) [][3]int {
	var out [][3]int
	if rec.Bin1 < 0 || rec.Bin2 < 0 || rec.Bin1 > maxBin || rec.Bin2 > maxBin {
		return out
	}
	w := int64(window)
	for i := 0; i < c.Len(); i++ {
		e := c.Entry(LoopRef(i))
		binX, binY := int64(rec.Bin1), int64(rec.Bin2)
		switch {
		case e.Chr1 == rec.Chr1 && e.Chr2 == rec.Chr2:
		case !e.Intra() && e.Chr1 == rec.Chr2 && e.Chr2 == rec.Chr1:
			binX, binY = binY, binX
		default:
			continue
		}
		cx, cy := c.Center(LoopRef(i))
		dx, dy := binX-cx, binY-cy
		if dx >= -w && dx <= w && dy >= -w && dy <= w {
			out = append(out, [3]int{i, int(dx + w), int(dy + w)})
		}
	}
	return out
}

func randomNearbyRecord(r *rand.Rand, c *Catalog, window int, maxBin int64) hicslice.Record {
	if r.Intn(4) == 0 {
		return hicslice.Record{
			Chr1:  hicslice.ChromKey(r.Intn(3) + 1),
			Bin1:  int32(r.Int63n(maxBin)),
			Chr2:  hicslice.ChromKey(r.Intn(3) + 1),
			Bin2:  int32(r.Int63n(maxBin)),
			Value: 1,
		}
	}
	ref := LoopRef(r.Intn(c.Len()))
	e := c.Entry(ref)
	cx, cy := c.Center(ref)
	spread := int64(2*window + 2)
	return hicslice.Record{
		Chr1:  e.Chr1,
		Bin1:  int32(cx + r.Int63n(2*spread+1) - spread),
		Chr2:  e.Chr2,
		Bin2:  int32(cy + r.Int63n(2*spread+1) - spread),
		Value: 1,
	}
}

func TestRegionsNoFalseNegatives(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for _, mode := range []Mode{Intra, Inter} {
		for _, window := range []int{1, 3, 10} {
			c := randomCatalog(t, r, "set", mode, 60, 400)
			regions, err := NewRegions(mode, window, c)
			require.NoError(t, err)
			for i := 0; i < 20000; i++ {
				rec := randomNearbyRecord(r, c, window, 400)
				if r.Intn(2) == 0 {
					rec.Chr1, rec.Bin1, rec.Chr2, rec.Bin2 = rec.Chr2, rec.Bin2, rec.Chr1, rec.Bin1
				}
				if len(bruteForceOffsets(c, window, rec)) > 0 {
					require.True(t, regions.ProbablyContains(rec.Chr1, rec.Chr2, rec.Bin1, rec.Bin2),
						"mode %v window %d record %+v", mode, window, rec)
				}
			}
		}
	}
}

func TestRegionsModeMismatch(t *testing.T) {
	dict := testDict(t, "chr1", "chr2")
	c, err := NewCatalog("s", dict, 1000, []AnchorPair{
		{Chrom1: "chr1", Mid1: 5500, Chrom2: "chr1", Mid2: 5500},
		{Chrom1: "chr1", Mid1: 5500, Chrom2: "chr2", Mid2: 5500},
	})
	require.NoError(t, err)
	intra, err := NewRegions(Intra, 1, c)
	require.NoError(t, err)
	expect.True(t, intra.ProbablyContains(1, 1, 5, 5))
	expect.False(t, intra.ProbablyContains(1, 2, 5, 5))
	inter, err := NewRegions(Inter, 1, c)
	require.NoError(t, err)
	expect.False(t, inter.ProbablyContains(1, 1, 5, 5))
	expect.True(t, inter.ProbablyContains(1, 2, 4, 6))
	expect.False(t, inter.ProbablyContains(1, 2, 7, 6))
	// Negative bins are never contained.
	expect.False(t, intra.ProbablyContains(1, 1, -1, 5))

	rows, cols := intra.NumBins()
	expect.EQ(t, rows, int64(3))
	expect.EQ(t, cols, int64(3))
}

func TestRegionsNearOrigin(t *testing.T) {
	dict := testDict(t, "chr1")
	c, err := NewCatalog("s", dict, 1000, []AnchorPair{{Chrom1: "chr1", Mid1: 500, Chrom2: "chr1", Mid2: 1500}})
	require.NoError(t, err)
	regions, err := NewRegions(Intra, 2, c)
	require.NoError(t, err)
	rows, cols := regions.NumBins()
	expect.EQ(t, rows, int64(3))
	expect.EQ(t, cols, int64(4))
	expect.True(t, regions.ProbablyContains(1, 1, 0, 0))
	expect.True(t, regions.ProbablyContains(1, 1, 2, 3))
	expect.False(t, regions.ProbablyContains(1, 1, 3, 3))
}

func TestLoopIndexMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, mode := range []Mode{Intra, Inter} {
		for _, window := range []int{1, 2, 7} {
			c := randomCatalog(t, r, "set", mode, 80, 300)
			idx := NewLoopIndex(c, window)
			var cands []Candidate
			for i := 0; i < 20000; i++ {
				rec := randomNearbyRecord(r, c, window, 300)
				if r.Intn(2) == 0 {
					rec.Chr1, rec.Bin1, rec.Chr2, rec.Bin2 = rec.Chr2, rec.Bin2, rec.Chr1, rec.Bin1
				}
				cands = idx.NearbyLoops(rec.Chr1, rec.Chr2, rec.Bin1, rec.Bin2, cands)
				var got [][3]int
				for _, cand := range cands {
					if x, y, ok := idx.Offset(cand, rec.Bin1, rec.Bin2); ok {
						got = append(got, [3]int{int(cand.Ref), x, y})
					}
				}
				sort.Slice(got, func(i, j int) bool { return got[i][0] < got[j][0] })
				require.Equal(t, bruteForceOffsets(c, window, rec), got, "mode %v window %d record %+v", mode, window, rec)
			}
		}
	}
}

func TestLoopIndexUnknownPair(t *testing.T) {
	dict := testDict(t, "chr1", "chr2")
	c, err := NewCatalog("s", dict, 1000, []AnchorPair{{Chrom1: "chr1", Mid1: 5000, Chrom2: "chr2", Mid2: 9000}})
	require.NoError(t, err)
	idx := NewLoopIndex(c, 2)
	expect.EQ(t, len(idx.NearbyLoops(2, 1, 40, 40, nil)), 0)
	expect.EQ(t, len(idx.NearbyLoops(7, 7, 5, 9, nil)), 0)
	expect.EQ(t, idx.NearbyLoops(1, 2, 5, 9, nil), []Candidate{{Ref: 0}})
	x, y, ok := idx.Offset(Candidate{Ref: 0}, 4, 11)
	expect.True(t, ok)
	expect.EQ(t, x, 1)
	expect.EQ(t, y, 4)
	_, _, ok = idx.Offset(Candidate{Ref: 0}, 4, 12)
	expect.False(t, ok)
	expect.EQ(t, floorDiv(-1, 6), int64(-1))
	expect.EQ(t, floorDiv(-6, 6), int64(-1))
	expect.EQ(t, floorDiv(5, 6), int64(0))
}

func TestLoopIndexReversedPair(t *testing.T) {
	// chrX sorts after chr2 in the header, so its contacts with chr2 are
	// stored as (chr2, chrX).
	dict := testDict(t, "chr2", "chrX")
	c, err := NewCatalog("s", dict, 1000, []AnchorPair{{Chrom1: "chrX", Mid1: 10500, Chrom2: "chr2", Mid2: 20500}})
	require.NoError(t, err)
	idx := NewLoopIndex(c, 1)
	cands := idx.NearbyLoops(1, 2, 21, 9, nil)
	expect.EQ(t, cands, []Candidate{{Ref: 0, Transposed: true}})
	// Record (chr2:21, chrX:9) is at offset (-1, +1) from the loop center.
	x, y, ok := idx.Offset(cands[0], 21, 9)
	expect.True(t, ok)
	expect.EQ(t, x, 0)
	expect.EQ(t, y, 2)

	regions, err := NewRegions(Inter, 1, c)
	require.NoError(t, err)
	expect.True(t, regions.ProbablyContains(1, 2, 21, 9))
	expect.True(t, regions.ProbablyContains(2, 1, 9, 21))

	// Intra loops are not transposed.
	intra, err := NewCatalog("s", dict, 1000, []AnchorPair{{Chrom1: "chr2", Mid1: 10500, Chrom2: "chr2", Mid2: 20500}})
	require.NoError(t, err)
	expect.EQ(t, len(NewLoopIndex(intra, 1).NearbyLoops(1, 1, 20, 10, nil)), 0)
}

func TestLoopIndexLargeBins(t *testing.T) {
	dict := testDict(t, "chr1")
	center := int64(maxBin)
	c, err := NewCatalog("s", dict, 1, []AnchorPair{{Chrom1: "chr1", Mid1: center, Chrom2: "chr1", Mid2: center}})
	require.NoError(t, err)
	idx := NewLoopIndex(c, 1)
	regions, err := NewRegions(Intra, 1, c)
	require.NoError(t, err)
	for _, bin := range []int64{center - 1, center, center + 1, center + 2} {
		rec := hicslice.Record{Chr1: 1, Bin1: int32(bin), Chr2: 1, Bin2: int32(bin)}
		want := len(bruteForceOffsets(c, 1, rec)) > 0
		expect.EQ(t, want, bin <= center, "bin %d", bin)
		expect.EQ(t, regions.ProbablyContains(1, 1, rec.Bin1, rec.Bin2), want, "bin %d", bin)
		cands := idx.NearbyLoops(1, 1, rec.Bin1, rec.Bin2, nil)
		found := false
		for _, cand := range cands {
			if _, _, ok := idx.Offset(cand, rec.Bin1, rec.Bin2); ok {
				found = true
			}
		}
		expect.EQ(t, found, want, "bin %d", bin)
	}
}
