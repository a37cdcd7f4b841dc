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
)

// setMatch is the per-set matching state of a worker.
type setMatch struct {
	// regions is nil when the worker uses a shared filter.
	regions       *Regions
	index         *LoopIndex
	matrix        *Matrix
	contributions int64
}

// worker owns a private copy of every accumulator, so that several workers
// can process disjoint parts of the stream without locking.
type worker struct {
	pipe     pipeline
	coverage *Coverage
	shared   *Regions
	sets     []setMatch
	stats    Stats

	rc    recordContext
	cands []Candidate
}

func (p *Processor) newWorker() *worker {
	w := &worker{coverage: NewCoverage(p.coverageOpts)}
	stages := []recordStage{
		positiveValueStage(),
		modeStage(p.opts.Mode),
		coverageStage(w.coverage),
	}
	if p.opts.Mode == Intra {
		minBins, maxBins := distanceBand(&p.opts, p.header.Resolution)
		stages = append(stages, distanceStage(minBins, maxBins))
	}
	w.pipe = newPipeline(stages...)
	if p.shared != nil {
		w.shared = p.shared.Clone()
	}
	w.sets = make([]setMatch, len(p.sets))
	for i, s := range p.sets {
		w.sets[i] = setMatch{
			index:  s.index,
			matrix: NewMatrix(p.opts.width()),
		}
		if s.regions != nil {
			w.sets[i].regions = s.regions.Clone()
		}
	}
	return w
}

// process runs one record through the filter chain and adds it to every
// matrix it contributes to.
func (w *worker) process(rec *hicslice.Record) {
	w.stats.Records++
	w.rc.reset(rec)
	if !w.pipe.run(&w.rc) {
		return
	}
	if w.shared != nil && !w.shared.ProbablyContains(rec.Chr1, rec.Chr2, rec.Bin1, rec.Bin2) {
		w.stats.RegionRejected++
		return
	}
	w.stats.Candidates++
	for i := range w.sets {
		s := &w.sets[i]
		if s.regions != nil && !s.regions.ProbablyContains(rec.Chr1, rec.Chr2, rec.Bin1, rec.Bin2) {
			continue
		}
		w.cands = s.index.NearbyLoops(rec.Chr1, rec.Chr2, rec.Bin1, rec.Bin2, w.cands)
		for _, cand := range w.cands {
			x, y, ok := s.index.Offset(cand, rec.Bin1, rec.Bin2)
			if !ok {
				continue
			}
			s.matrix.Add(x, y, w.rc.value)
			s.contributions++
		}
	}
}

// finishStats copies the pipeline counters into w.stats.
func (w *worker) finishStats() {
	w.stats.Stages = make([]StageCount, len(w.pipe.stages))
	for i, stage := range w.pipe.stages {
		w.stats.Stages[i] = StageCount{Stage: stage.name, Rejected: w.pipe.rejected[i]}
	}
}

// merge adds other's accumulators into w.  Both must have been created by
// the same Processor.
func (w *worker) merge(other *worker) error {
	w.coverage.Merge(other.coverage)
	for i := range w.sets {
		if err := w.sets[i].matrix.Merge(other.sets[i].matrix); err != nil {
			return err
		}
		w.sets[i].contributions += other.sets[i].contributions
	}
	w.stats.merge(other.stats)
	return nil
}
