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
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// State is a Processor lifecycle stage.
type State int

const (
	// StateInit is the state of a new Processor.
	StateInit State = iota
	// StateHeaderRead follows SetHeader; loop sets can now be added.
	StateHeaderRead
	// StateIndexesBuilt follows BuildIndexes; the stream can now be read.
	StateIndexesBuilt
	// StateStreaming is entered by Stream and kept until Finish.
	StateStreaming
	// StateNormalizing is the state during Finish.
	StateNormalizing
	// StateDone follows a successful Finish.
	StateDone
	// StateFailed is entered on any error.  It is terminal.
	StateFailed
)

var stateNames = [...]string{
	StateInit:         "Init",
	StateHeaderRead:   "HeaderRead",
	StateIndexesBuilt: "IndexesBuilt",
	StateStreaming:    "Streaming",
	StateNormalizing:  "Normalizing",
	StateDone:         "Done",
	StateFailed:       "Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// loopSet is a set registered with a Processor.
type loopSet struct {
	catalog *Catalog
	index   *LoopIndex
	// regions is nil when the processor uses a shared filter.
	regions *Regions
}

// Result is the APA outcome for one set.
type Result struct {
	Name string
	// Matrix is the normalized pile-up.
	Matrix *Matrix
	// Loops is the number of loops in the set, after mode filtering.
	Loops int
	// Contributions is the number of (record, loop) pairs added to Matrix.
	Contributions int64
	// RowSums and ColSums are the scaled coverage marginals Matrix was
	// normalized with.
	RowSums []float64
	ColSums []float64
}

// Processor computes APA matrices for any number of loop sets in a single
// pass over a contact stream.  Its methods must be called in lifecycle
// order:
//
//   SetHeader, AddSet (once per set), BuildIndexes, Stream, Finish
//
// Processor methods are not threadsafe.
type Processor struct {
	opts         Opts
	state        State
	header       hicslice.Header
	coverageOpts CoverageOpts
	sets         []loopSet
	shared       *Regions
	// main holds the accumulators after Stream.
	main *worker
}

// NewProcessor validates opts and returns a Processor in StateInit.
func NewProcessor(opts Opts) (*Processor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Parallelism == 0 {
		opts.Parallelism = runtime.NumCPU()
	}
	return &Processor{opts: opts, state: StateInit}, nil
}

// State returns the lifecycle state.
func (p *Processor) State() State {
	return p.state
}

func (p *Processor) expect(fn string, want State) error {
	if p.state != want {
		err := fmt.Errorf("apa.Processor.%s: called in state %v, want %v", fn, p.state, want)
		p.state = StateFailed
		return err
	}
	return nil
}

func (p *Processor) fail(err error) error {
	p.state = StateFailed
	return err
}

// SetHeader records the stream header.
func (p *Processor) SetHeader(h hicslice.Header) error {
	if err := p.expect("SetHeader", StateInit); err != nil {
		return err
	}
	if h.Resolution <= 0 || h.Chroms == nil {
		return p.fail(&hicslice.FormatError{Field: "resolution", Msg: fmt.Sprintf("invalid header (resolution %d)", h.Resolution)})
	}
	p.header = h
	p.state = StateHeaderRead
	return nil
}

// AddSet resolves set against the header and registers it.  Loops whose
// intra/inter-ness disagrees with the mode are dropped.  An error rejects
// only this set; the Processor stays usable.
func (p *Processor) AddSet(set AnchorSet) error {
	if p.state != StateHeaderRead {
		return p.expect("AddSet", StateHeaderRead)
	}
	catalog, err := NewCatalog(set.Name, p.header.Chroms, p.header.Resolution, set.Pairs)
	if err != nil {
		return err
	}
	catalog, nDropped := catalog.restrict(p.opts.Mode)
	if nDropped > 0 {
		log.Printf("apa: set %s: dropped %d loop(s) not matching mode %v", set.Name, nDropped, p.opts.Mode)
	}
	p.sets = append(p.sets, loopSet{catalog: catalog})
	log.Debug.Printf("apa: set %s: %d loop(s)", set.Name, catalog.Len())
	return nil
}

// Catalogs returns the registered catalogs, in AddSet order.
func (p *Processor) Catalogs() []*Catalog {
	catalogs := make([]*Catalog, len(p.sets))
	for i := range p.sets {
		catalogs[i] = p.sets[i].catalog
	}
	return catalogs
}

// BuildIndexes builds the region filters and loop indexes, and runs the
// memory check.
func (p *Processor) BuildIndexes() error {
	if err := p.expect("BuildIndexes", StateHeaderRead); err != nil {
		return err
	}
	if len(p.sets) == 0 {
		return p.fail(&ConfigError{Field: "loop sets", Msg: "none given"})
	}
	catalogs := p.Catalogs()
	if p.opts.MaxMemory > 0 {
		if est := EstimateMemory(catalogs, p.opts); est > p.opts.MaxMemory {
			return p.fail(&ResourceError{Estimated: est, Limit: p.opts.MaxMemory})
		}
	}
	var err error
	if p.opts.SharedRegions {
		if p.shared, err = NewRegions(p.opts.Mode, p.opts.Window, catalogs...); err != nil {
			return p.fail(err)
		}
		rows, cols := p.shared.NumBins()
		log.Debug.Printf("apa: shared regions cover %d row bin(s), %d column bin(s)", rows, cols)
	}
	for i := range p.sets {
		s := &p.sets[i]
		s.index = NewLoopIndex(s.catalog, p.opts.Window)
		if !p.opts.SharedRegions {
			if s.regions, err = NewRegions(p.opts.Mode, p.opts.Window, s.catalog); err != nil {
				return p.fail(err)
			}
		}
	}
	p.state = StateIndexesBuilt
	return nil
}

// progress logs every opts.ProgressInterval records.
type progress struct {
	interval int64
	next     int64
}

func newProgress(interval int64) progress {
	return progress{interval: interval, next: interval}
}

func (pr *progress) update(n int64) {
	if pr.interval > 0 && n >= pr.next {
		log.Printf("apa: %d records processed", n)
		pr.next += pr.interval
	}
}

// Stream reads every record of sc.  A trailing partial record ends the
// stream cleanly.  ctx is checked once per record.
func (p *Processor) Stream(ctx context.Context, sc *hicslice.Scanner) error {
	if err := p.expect("Stream", StateIndexesBuilt); err != nil {
		return err
	}
	p.state = StateStreaming
	var err error
	if p.opts.Parallelism > 1 {
		err = p.streamParallel(ctx, sc, p.opts.Parallelism)
	} else {
		err = p.streamSerial(ctx, sc)
	}
	if err != nil {
		return p.fail(err)
	}
	log.Printf("apa: stream done, %d record(s), %d candidate(s)", p.main.stats.Records, p.main.stats.Candidates)
	return nil
}

func (p *Processor) streamSerial(ctx context.Context, sc *hicslice.Scanner) error {
	w := p.newWorker()
	pr := newProgress(p.opts.ProgressInterval)
	done := ctx.Done()
	var rec hicslice.Record
	for sc.Scan(&rec) {
		select {
		case <-done:
			return ctx.Err()
		default:
		}
		w.process(&rec)
		pr.update(w.stats.Records)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	w.finishStats()
	p.main = w
	return nil
}

// Finish normalizes every set's matrix and returns the results, in AddSet
// order.
func (p *Processor) Finish() ([]Result, error) {
	if err := p.expect("Finish", StateStreaming); err != nil {
		return nil, err
	}
	p.state = StateNormalizing
	results := make([]Result, len(p.sets))
	err := traverse.Each(len(p.sets), func(i int) error {
		s := &p.sets[i]
		m := p.main.sets[i].matrix
		rowSums, colSums := marginals(p.main.coverage, s.catalog, p.opts.Window)
		if err := m.Normalize(rowSums, colSums); err != nil {
			return err
		}
		results[i] = Result{
			Name:          s.catalog.Name(),
			Matrix:        m,
			Loops:         s.catalog.Len(),
			Contributions: p.main.sets[i].contributions,
			RowSums:       rowSums,
			ColSums:       colSums,
		}
		log.Debug.Printf("apa: set %s: %d contribution(s), normalized sum %g", results[i].Name, results[i].Contributions, m.Sum())
		return nil
	})
	if err != nil {
		return nil, p.fail(err)
	}
	p.state = StateDone
	return results, nil
}

// Coverage returns the coverage accumulated by Stream, or nil before.
func (p *Processor) Coverage() *Coverage {
	if p.main == nil {
		return nil
	}
	return p.main.coverage
}

// Stats returns the counters of Stream.
func (p *Processor) Stats() Stats {
	if p.main == nil {
		return Stats{}
	}
	return p.main.stats
}

// Summary is the outcome of Run.
type Summary struct {
	Header   hicslice.Header
	Results  []Result
	Coverage *Coverage
	Stats    Stats
}

// Run computes APA for sets over the HICSLICE stream r, which may be gzip
// compressed.
func Run(ctx context.Context, r io.Reader, sets []AnchorSet, opts Opts) (*Summary, error) {
	p, err := NewProcessor(opts)
	if err != nil {
		return nil, err
	}
	sc, err := hicslice.NewScanner(r)
	if err != nil {
		p.fail(err)
		return nil, err
	}
	defer sc.Close() // nolint: errcheck
	if err = p.SetHeader(sc.Header()); err != nil {
		return nil, err
	}
	for _, set := range sets {
		if err = p.AddSet(set); err != nil {
			p.fail(err)
			return nil, err
		}
	}
	if err = p.BuildIndexes(); err != nil {
		return nil, err
	}
	if err = p.Stream(ctx, sc); err != nil {
		return nil, err
	}
	results, err := p.Finish()
	if err != nil {
		return nil, err
	}
	return &Summary{
		Header:   sc.Header(),
		Results:  results,
		Coverage: p.Coverage(),
		Stats:    p.Stats(),
	}, nil
}
