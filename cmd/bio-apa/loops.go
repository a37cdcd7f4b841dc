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
	"path/filepath"
	"strings"

	"github.com/grailbio/apa/apa"
	"github.com/grailbio/base/traverse"
)

// loopArg is one element of the --loops flag.
type loopArg struct {
	name string
	path string
}

// setName derives a loop set name from path: the base name, up to the first
// dot.
func setName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

// parseLoopArgs parses a comma-separated list of "path" or "name=path"
// elements.  Set names must be unique, since they name the output files.
func parseLoopArgs(flagVal string) ([]loopArg, error) {
	var args []loopArg
	seen := make(map[string]bool)
	for _, elem := range strings.Split(flagVal, ",") {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		arg := loopArg{path: elem}
		if i := strings.IndexByte(elem, '='); i >= 0 {
			arg.name, arg.path = elem[:i], elem[i+1:]
			if arg.name == "" || arg.path == "" {
				return nil, fmt.Errorf("--loops: malformed element %q, want name=path", elem)
			}
		} else {
			arg.name = setName(elem)
		}
		if seen[arg.name] {
			return nil, fmt.Errorf("--loops: set name %q used twice", arg.name)
		}
		seen[arg.name] = true
		args = append(args, arg)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("--loops: no loop files given")
	}
	return args, nil
}

// readLoopSets loads every BEDPE file of args.
func readLoopSets(ctx context.Context, args []loopArg) ([]apa.AnchorSet, error) {
	sets := make([]apa.AnchorSet, len(args))
	err := traverse.Each(len(args), func(i int) error {
		pairs, err := apa.ReadAnchorPairsFromPath(ctx, args[i].path)
		if err != nil {
			return err
		}
		sets[i] = apa.AnchorSet{Name: args[i].name, Pairs: pairs}
		return nil
	})
	return sets, err
}
