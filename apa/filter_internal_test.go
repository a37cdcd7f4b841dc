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
	"testing"

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/testutil/expect"
)

func applyStage(s recordStage, rec hicslice.Record) bool {
	var rc recordContext
	rc.reset(&rec)
	return s.apply(&rc)
}

func TestPositiveValueStage(t *testing.T) {
	s := positiveValueStage()
	for _, tt := range []struct {
		value float32
		want  bool
	}{
		{1, true},
		{1e-30, true},
		{0, false},
		{-2, false},
		{float32(math.NaN()), false},
		{float32(math.Inf(1)), false},
		{float32(math.Inf(-1)), false},
	} {
		expect.EQ(t, applyStage(s, hicslice.Record{Value: tt.value}), tt.want, "value %v", tt.value)
	}
}

func TestModeStage(t *testing.T) {
	intra := hicslice.Record{Chr1: 1, Chr2: 1, Value: 1}
	inter := hicslice.Record{Chr1: 1, Chr2: 2, Value: 1}
	expect.True(t, applyStage(modeStage(Intra), intra))
	expect.False(t, applyStage(modeStage(Intra), inter))
	expect.False(t, applyStage(modeStage(Inter), intra))
	expect.True(t, applyStage(modeStage(Inter), inter))
}

func TestCoverageStageDiagonal(t *testing.T) {
	cov := NewCoverage(CoverageOpts{})
	s := coverageStage(cov)
	expect.True(t, applyStage(s, hicslice.Record{Chr1: 1, Bin1: 5, Chr2: 1, Bin2: 5, Value: 2}))
	expect.EQ(t, cov.At(1, 5), 2.0)
	expect.True(t, applyStage(s, hicslice.Record{Chr1: 1, Bin1: 5, Chr2: 1, Bin2: 6, Value: 1}))
	expect.EQ(t, cov.At(1, 5), 3.0)
	expect.EQ(t, cov.At(1, 6), 1.0)
	// Same bin index on different chromosomes is not a diagonal.
	expect.True(t, applyStage(s, hicslice.Record{Chr1: 1, Bin1: 5, Chr2: 2, Bin2: 5, Value: 1}))
	expect.EQ(t, cov.At(1, 5), 4.0)
	expect.EQ(t, cov.At(2, 5), 1.0)
}

func TestDistanceStage(t *testing.T) {
	opts := DefaultOpts
	opts.Window = 2
	opts.MinDist = 20000
	opts.MaxDist = 50000
	minBins, maxBins := distanceBand(&opts, 1000)
	expect.EQ(t, minBins, int64(14))
	expect.EQ(t, maxBins, int64(56))
	s := distanceStage(minBins, maxBins)
	for _, tt := range []struct {
		bin1, bin2 int32
		want       bool
	}{
		{100, 114, true},
		{114, 100, true},
		{100, 113, false},
		{100, 156, true},
		{156, 100, true},
		{100, 157, false},
	} {
		expect.EQ(t, applyStage(s, hicslice.Record{Chr1: 1, Bin1: tt.bin1, Chr2: 1, Bin2: tt.bin2, Value: 1}), tt.want, "%d-%d", tt.bin1, tt.bin2)
	}
	expect.True(t, applyStage(s, hicslice.Record{Chr1: 1, Bin1: 0, Chr2: 2, Bin2: 1000, Value: 1}))

	opts.DistanceBufferFactor = 0
	minBins, maxBins = distanceBand(&opts, 1000)
	expect.EQ(t, minBins, int64(20))
	expect.EQ(t, maxBins, int64(50))
}

func TestPipelineShortCircuit(t *testing.T) {
	cov := NewCoverage(CoverageOpts{})
	p := newPipeline(positiveValueStage(), modeStage(Intra), coverageStage(cov), distanceStage(0, 10))
	recs := []hicslice.Record{
		{Chr1: 1, Bin1: 0, Chr2: 1, Bin2: 1, Value: float32(math.NaN())},
		{Chr1: 1, Bin1: 0, Chr2: 1, Bin2: 1, Value: 0},
		{Chr1: 1, Bin1: 0, Chr2: 2, Bin2: 1, Value: 1},
		{Chr1: 1, Bin1: 0, Chr2: 1, Bin2: 50, Value: 1},
		{Chr1: 1, Bin1: 0, Chr2: 1, Bin2: 5, Value: 1},
	}
	var rc recordContext
	var passed []bool
	for i := range recs {
		rc.reset(&recs[i])
		passed = append(passed, p.run(&rc))
	}
	expect.EQ(t, passed, []bool{false, false, false, false, true})
	expect.EQ(t, p.rejected, []int64{2, 1, 0, 1})
	expect.EQ(t, p.passed, int64(1))
	// Rejected by value or mode: no coverage.  Rejected by distance: counted.
	expect.EQ(t, cov.At(1, 0), 2.0)
	expect.EQ(t, cov.At(1, 50), 1.0)
	expect.EQ(t, cov.At(2, 1), 0.0)
}
