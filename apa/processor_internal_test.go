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
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(t *testing.T, dict *hicslice.ChromDict, resolution int32, recs []hicslice.Record) *hicslice.Scanner {
	var buf bytes.Buffer
	w, err := hicslice.NewWriter(&buf, hicslice.Header{Resolution: resolution, Chroms: dict}, hicslice.WriterOpts{})
	require.NoError(t, err)
	for i := range recs {
		require.NoError(t, w.Write(&recs[i]))
	}
	require.NoError(t, w.Close())
	sc, err := hicslice.NewScanner(&buf)
	require.NoError(t, err)
	return sc
}

// streamOnly runs a Processor up to the end of Stream, leaving the raw
// matrices in p.main.
func streamOnly(t *testing.T, opts Opts, sc *hicslice.Scanner, sets ...AnchorSet) *Processor {
	p, err := NewProcessor(opts)
	require.NoError(t, err)
	expect.EQ(t, p.State(), StateInit)
	require.NoError(t, p.SetHeader(sc.Header()))
	expect.EQ(t, p.State(), StateHeaderRead)
	for _, set := range sets {
		require.NoError(t, p.AddSet(set))
	}
	require.NoError(t, p.BuildIndexes())
	expect.EQ(t, p.State(), StateIndexesBuilt)
	require.NoError(t, p.Stream(context.Background(), sc))
	expect.EQ(t, p.State(), StateStreaming)
	return p
}

func TestSingleContactRaw(t *testing.T) {
	dict := testDict(t, "chr1")
	sc := newTestScanner(t, dict, 1000, []hicslice.Record{{Chr1: 1, Bin1: 50, Chr2: 1, Bin2: 50, Value: 2}})
	opts := DefaultOpts
	opts.Window = 1
	set := AnchorSet{Name: "a", Pairs: []AnchorPair{{Chrom1: "chr1", Mid1: 50000, Chrom2: "chr1", Mid2: 50000}}}
	p := streamOnly(t, opts, sc, set)

	expect.EQ(t, p.main.sets[0].matrix.Rows(), [][]float64{{0, 0, 0}, {0, 2, 0}, {0, 0, 0}})
	expect.EQ(t, p.main.coverage.At(1, 50), 2.0)
	expect.EQ(t, p.main.coverage.NumBins(), 1)

	results, err := p.Finish()
	require.NoError(t, err)
	expect.EQ(t, p.State(), StateDone)
	expect.EQ(t, results[0].RowSums, []float64{0, 1, 0})
	expect.EQ(t, results[0].ColSums, []float64{0, 1, 0})
	expect.EQ(t, results[0].Matrix.Rows(), [][]float64{{0, 0, 0}, {0, 2, 0}, {0, 0, 0}})
	expect.EQ(t, results[0].Contributions, int64(1))
}

// randomStream returns records around and away from the loops of c, with a
// sprinkling of values that must be ignored.
func randomStream(r *rand.Rand, c *Catalog, window int, maxBin int64, n int) []hicslice.Record {
	recs := make([]hicslice.Record, n)
	for i := range recs {
		recs[i] = randomNearbyRecord(r, c, window, maxBin)
		switch r.Intn(20) {
		case 0:
			recs[i].Value = 0
		case 1:
			recs[i].Value = -1
		default:
			recs[i].Value = r.Float32()*10 + 0.01
		}
	}
	return recs
}

func TestStreamMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for _, mode := range []Mode{Intra, Inter} {
		for _, shared := range []bool{true, false} {
			const window = 4
			c1 := randomCatalog(t, r, "one", mode, 40, 500)
			c2 := randomCatalog(t, r, "two", mode, 40, 500)
			recs := append(randomStream(r, c1, window, 500, 10000), randomStream(r, c2, window, 500, 10000)...)

			opts := DefaultOpts
			opts.Window = window
			opts.Mode = mode
			opts.SharedRegions = shared
			opts.MaxDist = 1000 * 1000
			sc := newTestScanner(t, testDict(t, "chr1", "chr2", "chr3"), 1000, recs)
			var sets []AnchorSet
			for _, c := range []*Catalog{c1, c2} {
				set := AnchorSet{Name: c.Name()}
				for i := 0; i < c.Len(); i++ {
					e := c.Entry(LoopRef(i))
					set.Pairs = append(set.Pairs, AnchorPair{
						Chrom1: []string{"", "chr1", "chr2", "chr3"}[e.Chr1], Mid1: e.Mid1,
						Chrom2: []string{"", "chr1", "chr2", "chr3"}[e.Chr2], Mid2: e.Mid2,
					})
				}
				sets = append(sets, set)
			}
			p := streamOnly(t, opts, sc, sets...)

			wantCov := NewCoverage(CoverageOpts{})
			for si, c := range []*Catalog{c1, c2} {
				want := NewMatrix(2*window + 1)
				for _, rec := range recs {
					if !(rec.Value > 0) || !mode.Accepts(rec.Chr1 == rec.Chr2) {
						continue
					}
					if si == 0 {
						wantCov.Add(rec.Chr1, rec.Bin1, float64(rec.Value))
						if !rec.Diagonal() {
							wantCov.Add(rec.Chr2, rec.Bin2, float64(rec.Value))
						}
					}
					for _, o := range bruteForceOffsets(c, window, rec) {
						want.Add(o[1], o[2], float64(rec.Value))
					}
				}
				got := p.main.sets[si].matrix.Rows()
				for i, row := range want.Rows() {
					assert.InDeltaSlice(t, row, got[i], 1e-9, "mode %v shared %v set %d row %d", mode, shared, si, i)
				}
			}
			expect.EQ(t, p.main.coverage.bins, wantCov.bins)
			stats := p.Stats()
			expect.EQ(t, stats.Records, int64(len(recs)))
		}
	}
}

func TestProcessorLifecycleErrors(t *testing.T) {
	dict := testDict(t, "chr1")
	p, err := NewProcessor(DefaultOpts)
	require.NoError(t, err)
	assert.Error(t, p.BuildIndexes())
	expect.EQ(t, p.State(), StateFailed)
	assert.Error(t, p.SetHeader(hicslice.Header{Resolution: 1000, Chroms: dict}))

	p, err = NewProcessor(DefaultOpts)
	require.NoError(t, err)
	require.NoError(t, p.SetHeader(hicslice.Header{Resolution: 1000, Chroms: dict}))
	// A rejected set leaves the processor usable.
	assert.Error(t, p.AddSet(AnchorSet{Name: "bad", Pairs: []AnchorPair{{Chrom1: "chrX", Chrom2: "chrX"}}}))
	expect.EQ(t, p.State(), StateHeaderRead)
	// But a processor without sets can't stream.
	var cerr *ConfigError
	require.True(t, errors.As(p.BuildIndexes(), &cerr))
	expect.EQ(t, p.State(), StateFailed)

	p, err = NewProcessor(DefaultOpts)
	require.NoError(t, err)
	_, err = p.Finish()
	assert.Error(t, err)
	expect.EQ(t, p.State(), StateFailed)
}

func TestStateString(t *testing.T) {
	expect.EQ(t, StateIndexesBuilt.String(), "IndexesBuilt")
	expect.EQ(t, StateFailed.String(), "Failed")
	expect.EQ(t, State(42).String(), "State(42)")
}
