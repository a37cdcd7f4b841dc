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
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/montanaflynn/stats"
)

// Matrix is a square pile-up of contact signal around loop centers.  Cells
// only grow through Add and Merge, until Normalize replaces them once.
type Matrix struct {
	width      int
	cells      []float64
	normalized bool
}

// NewMatrix returns a zero width x width matrix.
func NewMatrix(width int) *Matrix {
	return &Matrix{width: width, cells: make([]float64, width*width)}
}

// Width returns the side length.
func (m *Matrix) Width() int { return m.width }

// At returns cell (row, col).  It panics if either coordinate is out of
// range.
func (m *Matrix) At(row, col int) float64 {
	if row < 0 || row >= m.width || col < 0 || col >= m.width {
		panic(fmt.Sprintf("apa.Matrix.At: (%d, %d) out of range for width %d", row, col, m.width))
	}
	return m.cells[row*m.width+col]
}

// Add adds v to cell (x, y).  Out-of-range coordinates are ignored: a record
// can pass the coarse filters and still fall outside the window.
func (m *Matrix) Add(x, y int, v float64) {
	if x < 0 || x >= m.width || y < 0 || y >= m.width {
		return
	}
	m.cells[x*m.width+y] += v
}

// Merge adds other cell-wise into m.
func (m *Matrix) Merge(other *Matrix) error {
	if other.width != m.width {
		return fmt.Errorf("apa.Matrix.Merge: width mismatch (%d vs %d)", m.width, other.width)
	}
	if m.normalized || other.normalized {
		return fmt.Errorf("apa.Matrix.Merge: normalized matrices can't be merged")
	}
	for i, v := range other.cells {
		m.cells[i] += v
	}
	return nil
}

// Normalize replaces every cell (r, c) with raw(r, c)/(rowSums[r]*colSums[c])
// if the product is positive, and with 0 otherwise.  It can only be called
// once.
func (m *Matrix) Normalize(rowSums, colSums []float64) error {
	if m.normalized {
		return fmt.Errorf("apa.Matrix.Normalize: already normalized")
	}
	if len(rowSums) != m.width || len(colSums) != m.width {
		return fmt.Errorf("apa.Matrix.Normalize: marginal lengths %d, %d don't match width %d", len(rowSums), len(colSums), m.width)
	}
	for r := 0; r < m.width; r++ {
		row := m.cells[r*m.width : (r+1)*m.width]
		for c := range row {
			if normVal := rowSums[r] * colSums[c]; normVal > 0 {
				row[c] /= normVal
			} else {
				row[c] = 0
			}
		}
	}
	m.normalized = true
	return nil
}

// Normalized returns whether Normalize has been called.
func (m *Matrix) Normalized() bool { return m.normalized }

// Sum returns the sum of all cells.
func (m *Matrix) Sum() float64 {
	var sum float64
	for _, v := range m.cells {
		sum += v
	}
	return sum
}

// Rows returns a copy of the cells, one slice per row.
func (m *Matrix) Rows() [][]float64 {
	rows := make([][]float64, m.width)
	for r := range rows {
		rows[r] = append([]float64(nil), m.cells[r*m.width:(r+1)*m.width]...)
	}
	return rows
}

// Write writes one line per row, with tab-separated cells in fixed
// 6-decimal notation.
func (m *Matrix) Write(w io.Writer) error {
	tw := tsv.NewWriter(w)
	for r := 0; r < m.width; r++ {
		for c := 0; c < m.width; c++ {
			tw.WriteString(strconv.FormatFloat(m.cells[r*m.width+c], 'f', 6, 64))
		}
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// ScaleByAverage divides every element of vec by the mean of its strictly
// positive elements.  If there are none, the mean is taken to be 1, so an
// all-zero vector is left unchanged.
func ScaleByAverage(vec []float64) {
	positive := make([]float64, 0, len(vec))
	for _, v := range vec {
		if v > 0 {
			positive = append(positive, v)
		}
	}
	mean := 1.0
	if len(positive) > 0 {
		var err error
		if mean, err = stats.Mean(positive); err != nil || !(mean > 0) {
			mean = 1.0
		}
	}
	for i := range vec {
		vec[i] /= mean
	}
}

// marginals returns the row and column coverage sums of a set: for every
// loop, the coverage in the window around its center on each axis, summed
// position-wise, then scaled by average.
func marginals(cov *Coverage, c *Catalog, window int) (rowSums, colSums []float64) {
	width := 2*window + 1
	rowSums = make([]float64, width)
	colSums = make([]float64, width)
	for i := 0; i < c.Len(); i++ {
		ref := LoopRef(i)
		e := c.Entry(ref)
		cx, cy := c.Center(ref)
		cov.addLocalSums(rowSums, e.Chr1, cx-int64(window))
		cov.addLocalSums(colSums, e.Chr2, cy-int64(window))
	}
	ScaleByAverage(rowSums)
	ScaleByAverage(colSums)
	return
}
