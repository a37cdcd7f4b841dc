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
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/base/tsv"
)

// CoverageOpts controls Coverage allocation.
type CoverageOpts struct {
	// SizeHint optionally gives the expected number of touched bins per
	// chromosome.  It only pre-sizes maps.
	SizeHint map[hicslice.ChromKey]int
}

// Coverage accumulates the contact mass seen at each (chromosome, bin).
// Storage is sparse: at fine resolutions most bins are never touched.
// Coverage is not threadsafe.
type Coverage struct {
	opts CoverageOpts
	bins map[hicslice.ChromKey]map[int32]float64
	// extent is one past the largest bin observed, per chromosome.
	extent map[hicslice.ChromKey]int64
}

// NewCoverage returns an empty Coverage.
func NewCoverage(opts CoverageOpts) *Coverage {
	return &Coverage{
		opts:   opts,
		bins:   make(map[hicslice.ChromKey]map[int32]float64),
		extent: make(map[hicslice.ChromKey]int64),
	}
}

func (c *Coverage) chromBins(chr hicslice.ChromKey) map[int32]float64 {
	m := c.bins[chr]
	if m == nil {
		m = make(map[int32]float64, c.opts.SizeHint[chr])
		c.bins[chr] = m
	}
	return m
}

// Add adds value to (chr, bin).  Non-positive, NaN and infinite values, and
// negative bins, are ignored.
func (c *Coverage) Add(chr hicslice.ChromKey, bin int32, value float64) {
	if !(value > 0) || math.IsInf(value, 1) || bin < 0 {
		return
	}
	c.chromBins(chr)[bin] += value
	if end := int64(bin) + 1; end > c.extent[chr] {
		c.extent[chr] = end
	}
}

// At returns the mass at (chr, bin), or 0.
func (c *Coverage) At(chr hicslice.ChromKey, bin int64) float64 {
	if bin < 0 || bin > math.MaxInt32 {
		return 0
	}
	return c.bins[chr][int32(bin)]
}

// LocalSums returns a length-n slice whose element i is the mass at
// (chr, binStart+i).
func (c *Coverage) LocalSums(chr hicslice.ChromKey, binStart int64, n int) []float64 {
	sums := make([]float64, n)
	c.addLocalSums(sums, chr, binStart)
	return sums
}

// addLocalSums adds the mass at (chr, binStart+i) to dst[i].
func (c *Coverage) addLocalSums(dst []float64, chr hicslice.ChromKey, binStart int64) {
	m := c.bins[chr]
	if m == nil {
		return
	}
	for i := range dst {
		bin := binStart + int64(i)
		if bin < 0 || bin > math.MaxInt32 {
			continue
		}
		dst[i] += m[int32(bin)]
	}
}

// Extent returns one past the largest bin observed on chr, or 0.
func (c *Coverage) Extent(chr hicslice.ChromKey) int64 {
	return c.extent[chr]
}

// NumBins returns the number of (chromosome, bin) entries stored.
func (c *Coverage) NumBins() int {
	n := 0
	for _, m := range c.bins {
		n += len(m)
	}
	return n
}

// Chroms returns the chromosomes with at least one entry, in increasing key
// order.
func (c *Coverage) Chroms() []hicslice.ChromKey {
	keys := make([]hicslice.ChromKey, 0, len(c.bins))
	for chr := range c.bins {
		keys = append(keys, chr)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Merge adds every entry of other to c.
func (c *Coverage) Merge(other *Coverage) {
	for chr, om := range other.bins {
		m := c.chromBins(chr)
		for bin, v := range om {
			m[bin] += v
		}
		if other.extent[chr] > c.extent[chr] {
			c.extent[chr] = other.extent[chr]
		}
	}
}

// WriteTSV writes a "Chromosome Bin Coverage" table to w, sorted by
// chromosome key and then bin.  Chromosome names come from dict; keys absent
// from dict are written as numbers.
func (c *Coverage) WriteTSV(w io.Writer, dict *hicslice.ChromDict) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("Chromosome")
	tw.WriteString("Bin")
	tw.WriteString("Coverage")
	if err := tw.EndLine(); err != nil {
		return err
	}
	var bins []int32
	for _, chr := range c.Chroms() {
		name, ok := dict.Name(chr)
		if !ok {
			name = strconv.Itoa(int(chr))
		}
		m := c.bins[chr]
		bins = bins[:0]
		for bin := range m {
			bins = append(bins, bin)
		}
		sort.Slice(bins, func(i, j int) bool { return bins[i] < bins[j] })
		for _, bin := range bins {
			tw.WriteString(name)
			tw.WriteUint32(uint32(bin))
			tw.WriteString(strconv.FormatFloat(m[bin], 'f', 3, 64))
			if err := tw.EndLine(); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}
