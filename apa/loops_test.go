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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

const testBEDPE = `# loops
chr1	49500	50500	chr1	99000	101000	loop_a
chr1	10	11	chr2	0	3

chr2	1000	3001	chr2	5000	5000
`

func TestReadAnchorPairs(t *testing.T) {
	pairs, err := ReadAnchorPairs(strings.NewReader(testBEDPE))
	require.NoError(t, err)
	expect.EQ(t, pairs, []AnchorPair{
		{Chrom1: "chr1", Mid1: 50000, Chrom2: "chr1", Mid2: 100000, Line: 2},
		{Chrom1: "chr1", Mid1: 10, Chrom2: "chr2", Mid2: 1, Line: 3},
		{Chrom1: "chr2", Mid1: 2000, Chrom2: "chr2", Mid2: 5000, Line: 5},
	})
}

func TestReadAnchorPairsFromPath(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, "tmpdir:", tmpdir)
	path := filepath.Join(tmpdir, "loops.bedpe")
	require.NoError(t, os.WriteFile(path, []byte(testBEDPE), 0644))
	pairs, err := ReadAnchorPairsFromPath(vcontext.Background(), path)
	require.NoError(t, err)
	expect.EQ(t, len(pairs), 3)

	_, err = ReadAnchorPairsFromPath(vcontext.Background(), filepath.Join(tmpdir, "missing.bedpe"))
	expect.True(t, err != nil)
}

func TestNewCatalog(t *testing.T) {
	dict := testDict(t, "chr1", "chr2")
	pairs, err := ReadAnchorPairs(strings.NewReader(testBEDPE))
	require.NoError(t, err)
	c, err := NewCatalog("loops", dict, 1000, pairs)
	require.NoError(t, err)
	expect.EQ(t, c.Name(), "loops")
	expect.EQ(t, c.Len(), 3)
	expect.EQ(t, c.Entry(1), LoopEntry{Chr1: 1, Chr2: 2, Mid1: 10, Mid2: 1})
	x, y := c.Center(0)
	expect.EQ(t, x, int64(50))
	expect.EQ(t, y, int64(100))

	intra, nDropped := c.restrict(Intra)
	expect.EQ(t, intra.Len(), 2)
	expect.EQ(t, nDropped, 1)
	x, y = intra.Center(1)
	expect.EQ(t, x, int64(2))
	expect.EQ(t, y, int64(5))
	inter, nDropped := c.restrict(Inter)
	expect.EQ(t, inter.Len(), 1)
	expect.EQ(t, nDropped, 2)
}

func TestNewCatalogUnknownChromosome(t *testing.T) {
	dict := testDict(t, "chr1")
	pairs, err := ReadAnchorPairs(strings.NewReader(testBEDPE))
	require.NoError(t, err)
	_, err = NewCatalog("loops", dict, 1000, pairs)
	var uerr *UnknownChromosomeError
	require.True(t, errors.As(err, &uerr))
	expect.EQ(t, uerr.Set, "loops")
	expect.EQ(t, uerr.Chrom, "chr2")
	expect.EQ(t, uerr.Index, 1)
	expect.EQ(t, uerr.Line, 3)
	expect.True(t, strings.Contains(err.Error(), "line 3"))

	_, err = NewCatalog("loops", dict, 1000, []AnchorPair{{Chrom1: "chr1", Mid1: -1, Chrom2: "chr1"}})
	var cerr *ConfigError
	expect.True(t, errors.As(err, &cerr))
}
