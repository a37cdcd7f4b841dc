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

import "fmt"

// ConfigError reports an invalid run configuration.  It is returned before
// the contact stream is opened.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("apa: invalid %s: %s", e.Field, e.Msg)
}

// UnknownChromosomeError is returned when a loop anchor names a chromosome
// that is absent from the stream header.  The whole set is rejected.
type UnknownChromosomeError struct {
	// Set is the name of the loop set.
	Set   string
	Chrom string
	// Index is the 0-based position of the anchor pair in the set, and Line
	// its source line (0 if unknown).
	Index int
	Line  int
}

func (e *UnknownChromosomeError) Error() string {
	where := fmt.Sprintf("anchor pair %d", e.Index)
	if e.Line > 0 {
		where = fmt.Sprintf("line %d", e.Line)
	}
	return fmt.Sprintf("apa: set %s, %s: chromosome %s not in slice header", e.Set, where, e.Chrom)
}

// ResourceError is returned by the preflight memory check when the estimated
// footprint exceeds Opts.MaxMemory.
type ResourceError struct {
	Estimated uint64
	Limit     uint64
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("apa: estimated memory %d bytes exceeds limit of %d bytes", e.Estimated, e.Limit)
}
