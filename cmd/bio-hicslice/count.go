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
	"io"
	"math"
	"sort"

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/apa/interval"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

type countOpts struct {
	bedpePath string
}

// binRect is a BEDPE entry in bin coordinates: [x0, x1) x [y0, y1).
type binRect struct {
	x0, x1, y0, y1 int64
}

// pairRegions holds the rectangles of every chromosome pair, sorted by x0,
// behind a coarse per-axis filter.
type pairRegions struct {
	rects map[uint32][]binRect
	rows  interval.BinUnion
	cols  interval.BinUnion
}

// binRange returns the bins touched by [start, end): [start/res,
// ceil(end/res)).
func binRange(start, end interval.PosType, res int64) (int64, int64) {
	return int64(start) / res, (int64(end) + res - 1) / res
}

// clampEntry converts [lo, hi) into an interval-union entry, dropping bins
// that can't be represented.
func clampEntry(id hicslice.ChromKey, lo, hi int64) interval.IDEntry {
	if hi > interval.PosTypeMax-1 {
		hi = interval.PosTypeMax - 1
	}
	if lo > hi {
		lo = hi
	}
	return interval.IDEntry{ID: int(id), Start0: interval.PosType(lo), End: interval.PosType(hi)}
}

// newPairRegions bins entries at the slice resolution.  Contacts between two
// chromosomes may be stored in either order, so inter-chromosomal entries
// are also registered transposed.  Entries on chromosomes absent from dict
// are skipped with a warning.
func newPairRegions(entries []interval.PairEntry, dict *hicslice.ChromDict, resolution int32) (*pairRegions, error) {
	res := int64(resolution)
	pr := &pairRegions{rects: make(map[uint32][]binRect)}
	var rowEntries, colEntries []interval.IDEntry
	add := func(chr1, chr2 hicslice.ChromKey, r binRect) {
		key := hicslice.PairKey(chr1, chr2)
		pr.rects[key] = append(pr.rects[key], r)
		rowEntries = append(rowEntries, clampEntry(chr1, r.x0, r.x1))
		colEntries = append(colEntries, clampEntry(chr2, r.y0, r.y1))
	}
	nSkipped := 0
	for _, e := range entries {
		chr1, ok1 := dict.Key(e.First.ChrName)
		chr2, ok2 := dict.Key(e.Second.ChrName)
		if !ok1 || !ok2 {
			nSkipped++
			continue
		}
		var r binRect
		r.x0, r.x1 = binRange(e.First.Start0, e.First.End, res)
		r.y0, r.y1 = binRange(e.Second.Start0, e.Second.End, res)
		add(chr1, chr2, r)
		if chr1 != chr2 {
			add(chr2, chr1, binRect{x0: r.y0, x1: r.y1, y0: r.x0, y1: r.x1})
		}
	}
	if nSkipped > 0 {
		log.Printf("count: skipped %d BEDPE entries on chromosomes not in the slice header", nSkipped)
	}
	for _, rects := range pr.rects {
		sort.Slice(rects, func(i, j int) bool { return rects[i].x0 < rects[j].x0 })
	}
	var err error
	if pr.rows, err = interval.NewBinUnion(rowEntries); err != nil {
		return nil, err
	}
	if pr.cols, err = interval.NewBinUnion(colEntries); err != nil {
		return nil, err
	}
	return pr, nil
}

// contains returns whether the contact lies in at least one rectangle.
func (pr *pairRegions) contains(rec *hicslice.Record) bool {
	if !contains(&pr.rows, rec.Chr1, rec.Bin1) || !contains(&pr.cols, rec.Chr2, rec.Bin2) {
		return false
	}
	rects := pr.rects[hicslice.PairKey(rec.Chr1, rec.Chr2)]
	x, y := int64(rec.Bin1), int64(rec.Bin2)
	// Only rectangles starting at or before x can contain it.
	n := sort.Search(len(rects), func(i int) bool { return rects[i].x0 > x })
	for _, r := range rects[:n] {
		if x < r.x1 && y >= r.y0 && y < r.y1 {
			return true
		}
	}
	return false
}

// countResult is the output of countContacts.
type countResult struct {
	records int64
	matched int64
	total   float64
}

// countContacts sums the values of the records of sc that fall in at least
// one BEDPE region.  Each record counts once.  Non-positive, NaN and
// infinite values are ignored.
func countContacts(sc *hicslice.Scanner, pr *pairRegions) (countResult, error) {
	var (
		res countResult
		rec hicslice.Record
	)
	for sc.Scan(&rec) {
		v := float64(rec.Value)
		if !(v > 0) || math.IsInf(v, 1) {
			continue
		}
		if pr.contains(&rec) {
			res.matched++
			res.total += v
		}
	}
	res.records = sc.NumRecords()
	return res, sc.Err()
}

func readBEDPEPath(ctx context.Context, path string) (entries []interval.PairEntry, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	if entries, err = interval.ReadBEDPE(r); err != nil {
		err = errors.Wrapf(err, "count: %s", path)
	}
	return
}

func writeCount(w io.Writer, res countResult) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("Records")
	tw.WriteString("Matched")
	tw.WriteString("Count")
	if err := tw.EndLine(); err != nil {
		return err
	}
	tw.WriteInt64(res.records)
	tw.WriteInt64(res.matched)
	tw.WriteFloat64(res.total, 'f', 6)
	if err := tw.EndLine(); err != nil {
		return err
	}
	return tw.Flush()
}

func count(ctx context.Context, slicePath string, stdout io.Writer, opts countOpts) (err error) {
	if opts.bedpePath == "" {
		return errors.New("count: -bedpe required")
	}
	entries, err := readBEDPEPath(ctx, opts.bedpePath)
	if err != nil {
		return err
	}
	var in file.File
	if in, err = file.Open(ctx, slicePath); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	sc, err := hicslice.NewScanner(in.Reader(ctx))
	if err != nil {
		return err
	}
	defer sc.Close() // nolint: errcheck
	hdr := sc.Header()
	pr, err := newPairRegions(entries, hdr.Chroms, hdr.Resolution)
	if err != nil {
		return err
	}
	res, err := countContacts(sc, pr)
	if err != nil {
		return err
	}
	log.Printf("count: %d of %d record(s) in %d BEDPE region(s), total %g", res.matched, res.records, len(entries), res.total)
	return writeCount(stdout, res)
}
