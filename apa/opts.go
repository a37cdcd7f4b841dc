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
	"fmt"
	"math"
)

// Mode selects which contacts and loops are considered.
type Mode int

const (
	// Intra considers contacts and loops with both ends on one chromosome.
	Intra Mode = iota
	// Inter considers contacts and loops spanning two chromosomes.
	Inter
)

func (m Mode) String() string {
	switch m {
	case Intra:
		return "intra"
	case Inter:
		return "inter"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Accepts returns whether a contact or loop with the given intra-ness belongs
// to this mode.
func (m Mode) Accepts(intra bool) bool {
	return intra == (m == Intra)
}

// ParseMode parses "intra" or "inter".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "intra":
		return Intra, nil
	case "inter":
		return Inter, nil
	}
	return Intra, &ConfigError{Field: "mode", Msg: fmt.Sprintf("%q is not one of intra, inter", s)}
}

// MaxWindow is the largest supported window, in bins.
const MaxWindow = 1000

// Opts configures an APA run.
type Opts struct {
	// Window is the number of bins on each side of a loop center; matrices
	// have side 2*Window+1.
	Window int
	Mode   Mode
	// MinDist and MaxDist bound the genomic distance between the two anchors
	// of intra-chromosomal loops, in base pairs.  Ignored in Inter mode.
	MinDist int64
	MaxDist int64
	// DistanceBufferFactor widens the intra-mode distance band by this many
	// windows on each side, so that contacts near the band edges still reach
	// loops whose anchors were generated right at the bounds.
	DistanceBufferFactor int
	// SharedRegions builds one region filter over the union of all sets,
	// instead of one filter per set.
	SharedRegions bool
	// Parallelism is the number of record-processing workers.  1 runs the
	// single-threaded pass; 0 means runtime.NumCPU().
	Parallelism int
	// MaxMemory, if nonzero, fails the run before streaming when the
	// estimated memory footprint exceeds it.
	MaxMemory uint64
	// ProgressInterval is the number of records between progress log lines.
	// 0 disables progress logging.
	ProgressInterval int64
}

// DefaultOpts is the default configuration.
var DefaultOpts = Opts{
	Window:               10,
	Mode:                 Intra,
	MinDist:              0,
	MaxDist:              math.MaxInt32,
	DistanceBufferFactor: 3,
	SharedRegions:        true,
	Parallelism:          1,
	ProgressInterval:     1 << 24,
}

// Validate checks opts, returning a *ConfigError describing the first
// problem found.
func (opts *Opts) Validate() error {
	if opts.Window <= 0 || opts.Window > MaxWindow {
		return &ConfigError{Field: "window", Msg: fmt.Sprintf("%d is not in [1, %d]", opts.Window, MaxWindow)}
	}
	if opts.Mode != Intra && opts.Mode != Inter {
		return &ConfigError{Field: "mode", Msg: opts.Mode.String()}
	}
	if opts.MinDist < 0 {
		return &ConfigError{Field: "min distance", Msg: fmt.Sprintf("%d is negative", opts.MinDist)}
	}
	if opts.MaxDist < opts.MinDist {
		return &ConfigError{Field: "max distance", Msg: fmt.Sprintf("%d is less than min distance %d", opts.MaxDist, opts.MinDist)}
	}
	if opts.MaxDist > math.MaxInt32 {
		return &ConfigError{Field: "max distance", Msg: fmt.Sprintf("%d exceeds %d", opts.MaxDist, int64(math.MaxInt32))}
	}
	if opts.DistanceBufferFactor < 0 {
		return &ConfigError{Field: "distance buffer factor", Msg: fmt.Sprintf("%d is negative", opts.DistanceBufferFactor)}
	}
	if opts.Parallelism < 0 {
		return &ConfigError{Field: "parallelism", Msg: fmt.Sprintf("%d is negative", opts.Parallelism)}
	}
	if opts.ProgressInterval < 0 {
		return &ConfigError{Field: "progress interval", Msg: fmt.Sprintf("%d is negative", opts.ProgressInterval)}
	}
	return nil
}

// width returns the matrix side length.
func (opts *Opts) width() int {
	return 2*opts.Window + 1
}
