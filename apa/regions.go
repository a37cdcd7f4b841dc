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

// Regions is the coarse record filter.  Per axis, it holds the union of the
// bins within window of some loop center on that axis, keyed by chromosome.
// A negative ProbablyContains result guarantees that no loop of the indexed
// catalogs can receive the record; a positive one is only a hint.
//
// A Regions built from several catalogs serves as a shared filter for all of
// them.  The interval sets are immutable, but queries update a search cache,
// so each goroutine needs its own Clone.
type Regions struct {
	mode Mode
	rows interval.BinUnion
	cols interval.BinUnion
}

// windowEntry returns the bin interval [center-window, center+window], with
// negative bins and bins above maxBin dropped.
func windowEntry(chr hicslice.ChromKey, center int64, window int) interval.IDEntry {
	start := center - int64(window)
	if start < 0 {
		start = 0
	}
	end := center + int64(window) + 1
	if end > maxBin+1 {
		end = maxBin + 1
	}
	if start > end {
		start = end
	}
	return interval.IDEntry{ID: int(chr), Start0: interval.PosType(start), End: interval.PosType(end)}
}

// NewRegions indexes the loops of catalogs that are accepted by mode.
func NewRegions(mode Mode, window int, catalogs ...*Catalog) (*Regions, error) {
	var rowEntries, colEntries []interval.IDEntry
	for _, c := range catalogs {
		for i := 0; i < c.Len(); i++ {
			ref := LoopRef(i)
			e := c.Entry(ref)
			if !mode.Accepts(e.Intra()) {
				continue
			}
			cx, cy := c.Center(ref)
			rowEntries = append(rowEntries, windowEntry(e.Chr1, cx, window))
			colEntries = append(colEntries, windowEntry(e.Chr2, cy, window))
			if !e.Intra() {
				// Contacts may be stored as (chr2, chr1).
				rowEntries = append(rowEntries, windowEntry(e.Chr2, cy, window))
				colEntries = append(colEntries, windowEntry(e.Chr1, cx, window))
			}
		}
	}
	r := &Regions{mode: mode}
	var err error
	if r.rows, err = interval.NewBinUnion(rowEntries); err != nil {
		return nil, err
	}
	if r.cols, err = interval.NewBinUnion(colEntries); err != nil {
		return nil, err
	}
	return r, nil
}

// ProbablyContains returns false if the contact between (chr1, binX) and
// (chr2, binY) can't contribute to any indexed loop.  Contacts with a
// negative bin or a bin above maxBin never contribute.
func (r *Regions) ProbablyContains(chr1, chr2 hicslice.ChromKey, binX, binY int32) bool {
	if binX < 0 || binY < 0 || binX > maxBin || binY > maxBin || !r.mode.Accepts(chr1 == chr2) {
		return false
	}
	return r.rows.ContainsByID(int(chr1), interval.PosType(binX)) &&
		r.cols.ContainsByID(int(chr2), interval.PosType(binY))
}

// NumBins returns the number of (chromosome, bin) positions covered on the
// row and column axes.
func (r *Regions) NumBins() (rows, cols int64) {
	return r.rows.Len(), r.cols.Len()
}

// Clone returns a Regions sharing the interval sets, with its own search
// state.
func (r *Regions) Clone() *Regions {
	return &Regions{mode: r.mode, rows: r.rows.Clone(), cols: r.cols.Clone()}
}
