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
	"math"

	"github.com/grailbio/apa/encoding/hicslice"
)

// recordContext carries one record through the filter stages.
type recordContext struct {
	rec   *hicslice.Record
	value float64
	intra bool
}

func (rc *recordContext) reset(rec *hicslice.Record) {
	rc.rec = rec
	rc.value = float64(rec.Value)
	rc.intra = rec.Chr1 == rec.Chr2
}

// recordStage is one step of the per-record chain.  apply returns false to
// drop the record.
type recordStage struct {
	name  string
	apply func(rc *recordContext) bool
}

// positiveValueStage drops NaN, infinite and non-positive values.
func positiveValueStage() recordStage {
	return recordStage{
		name: "value",
		apply: func(rc *recordContext) bool {
			return rc.value > 0 && !math.IsInf(rc.value, 1)
		},
	}
}

// modeStage drops records whose intra/inter-ness disagrees with mode.
func modeStage(mode Mode) recordStage {
	return recordStage{
		name: "mode",
		apply: func(rc *recordContext) bool {
			return mode.Accepts(rc.intra)
		},
	}
}

// coverageStage adds the record to cov at both ends, once for a diagonal
// self-contact.  It never drops a record.
func coverageStage(cov *Coverage) recordStage {
	return recordStage{
		name: "coverage",
		apply: func(rc *recordContext) bool {
			rec := rc.rec
			cov.Add(rec.Chr1, rec.Bin1, rc.value)
			if !rec.Diagonal() {
				cov.Add(rec.Chr2, rec.Bin2, rc.value)
			}
			return true
		},
	}
}

// distanceBand returns the accepted range of |bin1-bin2| for intra-chromosomal
// records.  The band extends bufferFactor windows past the loop distance
// bounds, since a loop's window reaches that far from its center.
func distanceBand(opts *Opts, resolution int32) (minBins, maxBins int64) {
	buffer := int64(opts.DistanceBufferFactor) * int64(opts.Window)
	minBins = opts.MinDist/int64(resolution) - buffer
	maxBins = opts.MaxDist/int64(resolution) + buffer
	return
}

// distanceStage drops intra-chromosomal records whose bin distance falls
// outside [minBins, maxBins].  Inter-chromosomal records pass.
func distanceStage(minBins, maxBins int64) recordStage {
	return recordStage{
		name: "distance",
		apply: func(rc *recordContext) bool {
			if !rc.intra {
				return true
			}
			d := int64(rc.rec.Bin1) - int64(rc.rec.Bin2)
			if d < 0 {
				d = -d
			}
			return d >= minBins && d <= maxBins
		},
	}
}

// pipeline runs stages in order, short-circuiting on the first rejection.
type pipeline struct {
	stages   []recordStage
	rejected []int64
	passed   int64
}

func newPipeline(stages ...recordStage) pipeline {
	return pipeline{stages: stages, rejected: make([]int64, len(stages))}
}

func (p *pipeline) run(rc *recordContext) bool {
	for i := range p.stages {
		if !p.stages[i].apply(rc) {
			p.rejected[i]++
			return false
		}
	}
	p.passed++
	return true
}

// StageCount is the number of records rejected by one filter stage.
type StageCount struct {
	Stage    string
	Rejected int64
}

// Stats summarizes a pass over the stream.
type Stats struct {
	// Records is the number of records read.
	Records int64
	// Stages lists per-stage rejections, in pipeline order.
	Stages []StageCount
	// RegionRejected is the number of records that passed every stage but
	// fell outside the shared region filter.
	RegionRejected int64
	// Candidates is the number of records that reached the per-set matching.
	Candidates int64
}

func (s *Stats) merge(other Stats) {
	s.Records += other.Records
	if s.Stages == nil {
		s.Stages = append([]StageCount(nil), other.Stages...)
	} else {
		for i := range other.Stages {
			s.Stages[i].Rejected += other.Stages[i].Rejected
		}
	}
	s.RegionRejected += other.RegionRejected
	s.Candidates += other.Candidates
}
