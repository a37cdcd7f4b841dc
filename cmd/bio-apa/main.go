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
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/apa/apa"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

var (
	loops                = flag.String("loops", "", "Comma-separated list of loop BEDPE paths, each optionally prefixed by '<name>='. The name defaults to the file name without extensions. Required")
	window               = flag.Int("window", apa.DefaultOpts.Window, "Number of bins on each side of a loop center")
	mode                 = flag.String("mode", apa.DefaultOpts.Mode.String(), "Contacts and loops considered; 'intra' or 'inter'")
	minDist              = flag.Int64("min-dist", apa.DefaultOpts.MinDist, "Minimum distance between the anchors of intra-chromosomal loops, in base pairs")
	maxDist              = flag.Int64("max-dist", apa.DefaultOpts.MaxDist, "Maximum distance between the anchors of intra-chromosomal loops, in base pairs")
	distanceBufferFactor = flag.Int("distance-buffer-factor", apa.DefaultOpts.DistanceBufferFactor, "Widen the min-dist/max-dist contact band by this many windows on each side")
	sharedRegions        = flag.Bool("shared-regions", apa.DefaultOpts.SharedRegions, "Use one region filter for all loop sets instead of one per set")
	parallelism          = flag.Int("parallelism", apa.DefaultOpts.Parallelism, "Number of record-processing workers; 0 = runtime.NumCPU()")
	maxMemory            = flag.Uint64("max-memory", 0, "If nonzero, fail before streaming when the estimated memory use exceeds this many bytes")
	outPrefix            = flag.String("out", "bio-apa", "Output path prefix")
	bgzip                = flag.Bool("bgzip", false, "bgzip-compress the matrix files")
	coverageOut          = flag.String("coverage-out", "", "If nonempty, also write the per-bin coverage table to this path (bgzipped if it ends in .gz)")
)

func bioAPAUsage() {
	fmt.Printf("Usage: %s [OPTIONS] --loops=bedpe[,bedpe...] slicepath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioAPAUsage
	shutdown := grail.Init()
	defer shutdown()

	allArgs := flag.Args()
	nPositionalArgs := flag.NArg()
	positionalArgs := allArgs[len(allArgs)-nPositionalArgs:]
	if nPositionalArgs != 1 {
		log.Fatalf("Expected exactly one positional argument (slicepath); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	if *loops == "" {
		log.Fatalf("--loops is required")
	}
	ctx := vcontext.Background()
	m, err := apa.ParseMode(*mode)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts := apa.DefaultOpts
	opts.Window = *window
	opts.Mode = m
	opts.MinDist = *minDist
	opts.MaxDist = *maxDist
	opts.DistanceBufferFactor = *distanceBufferFactor
	opts.SharedRegions = *sharedRegions
	opts.Parallelism = *parallelism
	opts.MaxMemory = *maxMemory
	if err := opts.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	args, err := parseLoopArgs(*loops)
	if err != nil {
		log.Fatalf("%v", err)
	}
	sets, err := readLoopSets(ctx, args)
	if err != nil {
		log.Panicf("%v", err)
	}
	if err := run(ctx, positionalArgs[0], sets, opts); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}

// run streams the slice file at slicePath once for all sets and writes the
// outputs.
func run(ctx context.Context, slicePath string, sets []apa.AnchorSet, opts apa.Opts) (err error) {
	var in file.File
	if in, err = file.Open(ctx, slicePath); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	summary, err := apa.Run(ctx, in.Reader(ctx), sets, opts)
	if err != nil {
		return err
	}
	for _, r := range summary.Results {
		log.Printf("%s: %d loop(s), %d contribution(s)", r.Name, r.Loops, r.Contributions)
	}
	for _, sc := range summary.Stats.Stages {
		log.Debug.Printf("stage %s rejected %d record(s)", sc.Stage, sc.Rejected)
	}
	e := errors.Once{}
	e.Set(apa.WriteResults(ctx, *outPrefix, summary.Results, *bgzip, opts.Parallelism))
	if *coverageOut != "" {
		e.Set(apa.WriteCoverage(ctx, *coverageOut, summary.Coverage, summary.Header.Chroms))
	}
	return e.Err()
}
