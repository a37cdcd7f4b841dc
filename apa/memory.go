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

// Rough per-item sizes, in bytes, used by EstimateMemory.
const (
	// Two interval endpoints per axis, plus the unmerged entries held while
	// building the unions.
	regionBytesPerLoop = 2 * (2*4 + 24)
	// One Candidate, plus a share of the bucket map.
	indexBytesPerLoop = 8 + 48
	// LoopEntry plus precomputed centers.
	catalogBytesPerLoop = 24 + 16
	// A sparse coverage entry, including map overhead.
	coverageBytesPerBin = 48
	// Fixed allowance for record batches and I/O buffers, per worker.
	workerOverheadBytes = batchQueueLen*batchSize*16 + 2<<20
)

// EstimateMemory returns an advisory estimate of the memory needed to process
// catalogs under opts, excluding coverage.  Coverage depends on the stream;
// it is accounted for as the coverage of every loop window, which is what
// normalization needs.
func EstimateMemory(catalogs []*Catalog, opts Opts) uint64 {
	nWorker := uint64(opts.Parallelism)
	if nWorker == 0 {
		nWorker = 1
	}
	width := uint64(2*opts.Window + 1)
	var nLoop uint64
	for _, c := range catalogs {
		nLoop += uint64(c.Len())
	}
	// Inter-chromosomal loops are indexed under both orientations.
	nIndexed := nLoop
	if opts.Mode == Inter {
		nIndexed *= 2
	}
	var est uint64
	est += nLoop * catalogBytesPerLoop
	est += nIndexed * indexBytesPerLoop
	// Region filters are cloned per worker, but clones share the intervals.
	est += nIndexed * regionBytesPerLoop
	est += nWorker * uint64(len(catalogs)) * width * width * 8
	est += nWorker * nLoop * 2 * width * coverageBytesPerBin
	est += nWorker * workerOverheadBytes
	return est
}
