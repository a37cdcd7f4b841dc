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

	"github.com/grailbio/apa/apa"
	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

type coverageOpts struct {
	outPath          string
	mode             string
	progressInterval int64
}

// coverageFilter returns the predicate selecting the records counted for the
// given mode name.
func coverageFilter(mode string) (func(rec *hicslice.Record) bool, error) {
	if mode == "all" {
		return func(*hicslice.Record) bool { return true }, nil
	}
	m, err := apa.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("coverage: %v; 'all' is also accepted", err)
	}
	return func(rec *hicslice.Record) bool { return m.Accepts(rec.Intra()) }, nil
}

// accumulateCoverage adds every record of sc accepted by keep to a new
// Coverage.  Diagonal contacts count once.
func accumulateCoverage(sc *hicslice.Scanner, keep func(rec *hicslice.Record) bool, progressInterval int64) (*apa.Coverage, error) {
	cov := apa.NewCoverage(apa.CoverageOpts{})
	var rec hicslice.Record
	next := progressInterval
	for sc.Scan(&rec) {
		if progressInterval > 0 && sc.NumRecords() >= next {
			log.Printf("%d records processed", sc.NumRecords())
			next += progressInterval
		}
		if !keep(&rec) {
			continue
		}
		cov.Add(rec.Chr1, rec.Bin1, float64(rec.Value))
		if !rec.Diagonal() {
			cov.Add(rec.Chr2, rec.Bin2, float64(rec.Value))
		}
	}
	return cov, sc.Err()
}

func coverage(ctx context.Context, slicePath string, stdout io.Writer, opts coverageOpts) (err error) {
	keep, err := coverageFilter(opts.mode)
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
	cov, err := accumulateCoverage(sc, keep, opts.progressInterval)
	if err != nil {
		return err
	}
	log.Printf("%s: %d record(s), %d nonzero bin(s)", slicePath, sc.NumRecords(), cov.NumBins())
	dict := sc.Header().Chroms
	if opts.outPath == "" {
		return cov.WriteTSV(stdout, dict)
	}
	return apa.WriteCoverage(ctx, opts.outPath, cov, dict)
}
