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
package main

import (
	"bytes"
	"context"
	"io/ioutil"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/apa/interval"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

const countBEDPE = "chr1\t100\t250\tchr1\t500\t600\n" +
	"chr1\t0\t100\tchr2\t1000\t1050\tname\t.\n" +
	"chr1\t150\t200\tchr1\t500\t600\n" +
	"chrUn\t0\t1\tchr1\t0\t1\n"

var countInput = []hicslice.Record{
	{Chr1: 1, Bin1: 1, Chr2: 1, Bin2: 5, Value: 2},
	{Chr1: 1, Bin1: 2, Chr2: 1, Bin2: 5, Value: 1},
	// End bin is exclusive.
	{Chr1: 1, Bin1: 3, Chr2: 1, Bin2: 5, Value: 4},
	{Chr1: 1, Bin1: 0, Chr2: 2, Bin2: 10, Value: 0.5},
	// Stored as (chr2, chr1).
	{Chr1: 2, Bin1: 10, Chr2: 1, Bin2: 0, Value: 0.25},
	{Chr1: 1, Bin1: 1, Chr2: 1, Bin2: 5, Value: float32(math.NaN())},
	{Chr1: 1, Bin1: 1, Chr2: 1, Bin2: 5, Value: float32(math.Inf(1))},
	{Chr1: 1, Bin1: 1, Chr2: 1, Bin2: 5, Value: -1},
	// Intra entries are not transposed.
	{Chr1: 1, Bin1: 5, Chr2: 1, Bin2: 1, Value: 8},
}

func TestPairRegions(t *testing.T) {
	entries, err := interval.ReadBEDPE(strings.NewReader(countBEDPE))
	require.NoError(t, err)
	dict := hicslice.NewChromDict()
	require.NoError(t, dict.Add(1, "chr1"))
	require.NoError(t, dict.Add(2, "chr2"))
	pr, err := newPairRegions(entries, dict, 100)
	require.NoError(t, err)
	expect.EQ(t, len(pr.rects[hicslice.PairKey(1, 1)]), 2)
	expect.EQ(t, pr.rects[hicslice.PairKey(1, 2)], []binRect{{x0: 0, x1: 1, y0: 10, y1: 11}})
	expect.EQ(t, pr.rects[hicslice.PairKey(2, 1)], []binRect{{x0: 10, x1: 11, y0: 0, y1: 1}})

	for i, want := range []bool{true, true, false, true, true, true, true, true, false} {
		rec := countInput[i]
		expect.EQ(t, pr.contains(&rec), want, "record %d", i)
	}
	// Queries out of order still see every rectangle.
	rec := hicslice.Record{Chr1: 1, Bin1: 1, Chr2: 1, Bin2: 5}
	expect.True(t, pr.contains(&rec))
	rec = hicslice.Record{Chr1: 1, Bin1: -1, Chr2: 1, Bin2: 5}
	expect.False(t, pr.contains(&rec))
}

func TestCount(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, "tmpdir:", tmpdir)

	bedpePath := filepath.Join(tmpdir, "loops.bedpe")
	require.NoError(t, ioutil.WriteFile(bedpePath, []byte(countBEDPE), 0644))
	ctx := context.Background()
	for _, gz := range []bool{false, true} {
		inPath := filepath.Join(tmpdir, "in.hicslice")
		require.NoError(t, ioutil.WriteFile(inPath, testSlice(t, countInput, gz), 0644))
		var out bytes.Buffer
		require.NoError(t, count(ctx, inPath, &out, countOpts{bedpePath: bedpePath}))
		// Records overlapping several regions count once.
		expect.EQ(t, out.String(), "Records\tMatched\tCount\n9\t4\t3.750000\n", "gzip %v", gz)
	}

	var out bytes.Buffer
	err := count(ctx, filepath.Join(tmpdir, "in.hicslice"), &out, countOpts{})
	require.Error(t, err)
	expect.True(t, strings.Contains(err.Error(), "-bedpe"))

	badPath := filepath.Join(tmpdir, "bad.bedpe")
	require.NoError(t, ioutil.WriteFile(badPath, []byte("chr1\t10\t5\tchr1\t0\t1\n"), 0644))
	expect.NotNil(t, count(ctx, filepath.Join(tmpdir, "in.hicslice"), &out, countOpts{bedpePath: badPath}))
}
