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
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestParseLoopArgs(t *testing.T) {
	args, err := parseLoopArgs("ctcf=/data/a.bedpe, /data/random.loops.bedpe.gz")
	require.NoError(t, err)
	expect.EQ(t, args, []loopArg{
		{name: "ctcf", path: "/data/a.bedpe"},
		{name: "random", path: "/data/random.loops.bedpe.gz"},
	})

	for _, bad := range []string{"", ",", "=x.bedpe", "a=", "a.bedpe,a.bedpe.gz", "x=a.bedpe,x=b.bedpe"} {
		_, err := parseLoopArgs(bad)
		expect.NotNil(t, err, bad)
	}
}

func TestReadLoopSets(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, "tmpdir:", tmpdir)

	path := filepath.Join(tmpdir, "loops.bedpe")
	require.NoError(t, ioutil.WriteFile(path, []byte("chr1\t100\t200\tchr1\t5000\t5100\n"), 0644))
	sets, err := readLoopSets(context.Background(), []loopArg{{name: "x", path: path}})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	expect.EQ(t, sets[0].Name, "x")
	require.Len(t, sets[0].Pairs, 1)
	expect.EQ(t, sets[0].Pairs[0].Mid1, int64(150))
	expect.EQ(t, sets[0].Pairs[0].Mid2, int64(5050))

	_, err = readLoopSets(context.Background(), []loopArg{{name: "y", path: filepath.Join(tmpdir, "missing.bedpe")}})
	expect.NotNil(t, err)
}
