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
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/apa/interval"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

type filterOpts struct {
	bedPath string
	region  string
	gzip    bool
}

// binRegions converts genomic intervals to bin intervals: [start, end) covers
// bins [start/res, (end-1)/res + 1).  Intervals on chromosomes absent from
// dict are skipped with a warning.
func binRegions(entries []interval.Entry, dict *hicslice.ChromDict, resolution int32) (interval.BinUnion, error) {
	res := interval.PosType(resolution)
	unknown := make(map[string]int)
	ids := make([]interval.IDEntry, 0, len(entries))
	for _, e := range entries {
		if e.End <= e.Start0 {
			continue
		}
		key, ok := dict.Key(e.ChrName)
		if !ok {
			unknown[e.ChrName]++
			continue
		}
		ids = append(ids, interval.IDEntry{ID: int(key), Start0: e.Start0 / res, End: (e.End-1)/res + 1})
	}
	names := make([]string, 0, len(unknown))
	for name := range unknown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Printf("filter: skipping %d interval(s) on %s, which is not in the slice header", unknown[name], name)
	}
	u, err := interval.NewBinUnion(ids)
	if err == nil {
		log.Printf("filter: regions cover %d bin(s) on %d chromosome(s)", u.Len(), len(u.IDs()))
	}
	return u, err
}

// contains returns whether bin of chr lies in u.
func contains(u *interval.BinUnion, chr hicslice.ChromKey, bin int32) bool {
	if bin < 0 || bin >= interval.PosTypeMax {
		return false
	}
	return u.ContainsByID(int(chr), interval.PosType(bin))
}

// filterRecords copies every record of sc with both ends in regions to w, and
// returns the number of records kept.
func filterRecords(sc *hicslice.Scanner, w *hicslice.Writer, regions interval.BinUnion) (int64, error) {
	// ContainsByID is fastest on runs of increasing positions on one
	// chromosome, so each end gets its own search state.
	first, second := regions.Clone(), regions.Clone()
	var rec hicslice.Record
	for sc.Scan(&rec) {
		if !contains(&first, rec.Chr1, rec.Bin1) || !contains(&second, rec.Chr2, rec.Bin2) {
			continue
		}
		if err := w.Write(&rec); err != nil {
			return w.NumRecords(), err
		}
	}
	return w.NumRecords(), sc.Err()
}

func loadRegions(opts filterOpts) ([]interval.Entry, error) {
	if opts.bedPath == "" && opts.region == "" {
		return nil, fmt.Errorf("filter: -bed and/or -region required")
	}
	var entries []interval.Entry
	if opts.bedPath != "" {
		var err error
		if entries, err = interval.ReadBEDEntriesFromPath(opts.bedPath, interval.NewBEDOpts{}); err != nil {
			return nil, err
		}
	}
	if opts.region != "" {
		e, err := interval.ParseRegionString(opts.region)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// filterSlice reads a slice stream from r and writes the filtered stream, with
// the same header, to out.
func filterSlice(r io.Reader, out io.Writer, entries []interval.Entry, gzip bool) (err error) {
	sc, err := hicslice.NewScanner(r)
	if err != nil {
		return err
	}
	defer func() {
		if e := sc.Close(); e != nil && err == nil {
			err = e
		}
	}()
	hdr := sc.Header()
	regions, err := binRegions(entries, hdr.Chroms, hdr.Resolution)
	if err != nil {
		return err
	}
	w, err := hicslice.NewWriter(out, hdr, hicslice.WriterOpts{Gzip: gzip})
	if err != nil {
		return err
	}
	nKept, err := filterRecords(sc, w, regions)
	if e := w.Close(); e != nil && err == nil {
		err = e
	}
	if err == nil {
		log.Printf("filter: kept %d of %d record(s)", nKept, sc.NumRecords())
	}
	return err
}

func filter(ctx context.Context, inPath, outPath string, opts filterOpts) (err error) {
	entries, err := loadRegions(opts)
	if err != nil {
		return err
	}
	var in, out file.File
	if in, err = file.Open(ctx, inPath); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	if out, err = file.Create(ctx, outPath); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, out, &err)
	return filterSlice(in.Reader(ctx), out.Writer(ctx), entries, opts.gzip)
}
