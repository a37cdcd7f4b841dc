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
	"io"
	"strings"

	"github.com/grailbio/apa/encoding/hicslice"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/bgzf"
)

// MatrixPath returns the output path of the matrix of set name:
// <prefix>.<name>.apa.txt, with a .gz suffix when bgzip is set.
func MatrixPath(prefix, name string, bgzip bool) string {
	path := prefix + "." + name + ".apa.txt"
	if bgzip {
		path += ".gz"
	}
	return path
}

// createText creates path and calls write with a writer for it, through
// bgzf when bgzip is set.
func createText(ctx context.Context, path string, bgzip bool, parallelism int, write func(w io.Writer) error) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if !bgzip {
		return write(dst.Writer(ctx))
	}
	bgzfWriter := bgzf.NewWriter(dst.Writer(ctx), parallelism)
	defer func() {
		if e := bgzfWriter.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return write(bgzfWriter)
}

// WriteResults writes the matrix of every result to MatrixPath(prefix,
// result.Name, bgzip).
func WriteResults(ctx context.Context, prefix string, results []Result, bgzip bool, parallelism int) error {
	if parallelism <= 0 {
		parallelism = 1
	}
	return traverse.Each(len(results), func(i int) error {
		path := MatrixPath(prefix, results[i].Name, bgzip)
		if err := createText(ctx, path, bgzip, parallelism, results[i].Matrix.Write); err != nil {
			return err
		}
		log.Printf("apa: wrote %s", path)
		return nil
	})
}

// WriteCoverage writes cov as a TSV table to path, bgzf-compressed if path
// ends in .gz.
func WriteCoverage(ctx context.Context, path string, cov *Coverage, dict *hicslice.ChromDict) error {
	return createText(ctx, path, strings.HasSuffix(path, ".gz"), 1, func(w io.Writer) error {
		return cov.WriteTSV(w, dict)
	})
}
