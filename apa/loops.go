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

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/apa/interval"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// AnchorPair is one candidate loop: a genomic midpoint on each of two
// chromosomes.
type AnchorPair struct {
	Chrom1 string
	Mid1   int64
	Chrom2 string
	Mid2   int64
	// Line is the 1-based source line, or 0 when the pair was not read from a
	// file.
	Line int
}

// AnchorSet is a named set of candidate loops, processed into one matrix.
type AnchorSet struct {
	Name  string
	Pairs []AnchorPair
}

// ReadAnchorPairs parses BEDPE text into anchor pairs.  Each anchor's
// midpoint is (start+end)/2.
func ReadAnchorPairs(r io.Reader) ([]AnchorPair, error) {
	entries, err := interval.ReadBEDPE(r)
	if err != nil {
		return nil, err
	}
	pairs := make([]AnchorPair, len(entries))
	for i, e := range entries {
		pairs[i] = AnchorPair{
			Chrom1: e.First.ChrName,
			Mid1:   e.First.Mid(),
			Chrom2: e.Second.ChrName,
			Mid2:   e.Second.Mid(),
			Line:   e.Line,
		}
	}
	return pairs, nil
}

// ReadAnchorPairsFromPath is a wrapper for ReadAnchorPairs that takes a path.
// Compressed files are recognized by their extension.
func ReadAnchorPairsFromPath(ctx context.Context, path string) (pairs []AnchorPair, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	if pairs, err = ReadAnchorPairs(r); err != nil {
		err = errors.Wrapf(err, "apa.ReadAnchorPairsFromPath %s", path)
	}
	return
}

// LoopEntry is an anchor pair resolved against a stream's chromosome
// dictionary.
type LoopEntry struct {
	Chr1, Chr2 hicslice.ChromKey
	Mid1, Mid2 int64
}

// Intra returns whether both anchors are on the same chromosome.
func (e *LoopEntry) Intra() bool {
	return e.Chr1 == e.Chr2
}

// LoopRef identifies an entry of a Catalog.  It stays valid for the
// lifetime of the catalog.
type LoopRef int32

type loopCenter struct {
	x, y int64
}

// Catalog is an immutable list of loops for one set, with center bins
// precomputed at the stream resolution.
type Catalog struct {
	name       string
	resolution int64
	entries    []LoopEntry
	centers    []loopCenter
}

// NewCatalog resolves pairs against dict.  A chromosome missing from dict
// fails the whole set with *UnknownChromosomeError.
func NewCatalog(name string, dict *hicslice.ChromDict, resolution int32, pairs []AnchorPair) (*Catalog, error) {
	if resolution <= 0 {
		return nil, &ConfigError{Field: "resolution", Msg: fmt.Sprintf("%d is not positive", resolution)}
	}
	c := &Catalog{
		name:       name,
		resolution: int64(resolution),
		entries:    make([]LoopEntry, 0, len(pairs)),
		centers:    make([]loopCenter, 0, len(pairs)),
	}
	for i, p := range pairs {
		chr1, ok := dict.Key(p.Chrom1)
		if !ok {
			return nil, &UnknownChromosomeError{Set: name, Chrom: p.Chrom1, Index: i, Line: p.Line}
		}
		chr2, ok := dict.Key(p.Chrom2)
		if !ok {
			return nil, &UnknownChromosomeError{Set: name, Chrom: p.Chrom2, Index: i, Line: p.Line}
		}
		if p.Mid1 < 0 || p.Mid2 < 0 {
			return nil, &ConfigError{Field: "anchor", Msg: fmt.Sprintf("set %s pair %d has a negative midpoint", name, i)}
		}
		c.entries = append(c.entries, LoopEntry{Chr1: chr1, Chr2: chr2, Mid1: p.Mid1, Mid2: p.Mid2})
		c.centers = append(c.centers, loopCenter{x: p.Mid1 / c.resolution, y: p.Mid2 / c.resolution})
	}
	return c, nil
}

// Name returns the set name.
func (c *Catalog) Name() string { return c.name }

// Len returns the number of loops.
func (c *Catalog) Len() int { return len(c.entries) }

// Entry returns the loop identified by ref.
func (c *Catalog) Entry(ref LoopRef) LoopEntry { return c.entries[ref] }

// Center returns the center bins of the loop identified by ref.
func (c *Catalog) Center(ref LoopRef) (x, y int64) {
	lc := c.centers[ref]
	return lc.x, lc.y
}

// restrict returns the catalog of loops accepted by mode, and the number of
// loops dropped.
func (c *Catalog) restrict(mode Mode) (*Catalog, int) {
	out := &Catalog{name: c.name, resolution: c.resolution}
	for i := range c.entries {
		if mode.Accepts(c.entries[i].Intra()) {
			out.entries = append(out.entries, c.entries[i])
			out.centers = append(out.centers, c.centers[i])
		}
	}
	return out, len(c.entries) - len(out.entries)
}
