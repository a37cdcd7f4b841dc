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
package hicslice

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/gzip"
)

// WriterOpts controls Writer output.
type WriterOpts struct {
	// Gzip compresses the whole stream.
	Gzip bool
}

// Writer emits a HICSLICE stream.  Close must be called to flush buffered
// data; it does not close the underlying writer.
type Writer struct {
	w       *bufio.Writer
	gz      *gzip.Writer
	buf     [RecordSize]byte
	nRecord int64
}

// NewWriter writes h to w and returns a Writer ready for records.
func NewWriter(w io.Writer, h Header, opts WriterOpts) (*Writer, error) {
	sw := &Writer{}
	if opts.Gzip {
		sw.gz = gzip.NewWriter(w)
		w = sw.gz
	}
	sw.w = bufio.NewWriterSize(w, scannerBufSize)
	if err := WriteHeader(sw.w, h); err != nil {
		return nil, err
	}
	return sw, nil
}

// Write appends one record.
func (w *Writer) Write(rec *Record) error {
	encodeRecord(w.buf[:], rec)
	w.nRecord++
	_, err := w.w.Write(w.buf[:])
	return err
}

// NumRecords returns the number of records written.
func (w *Writer) NumRecords() int64 {
	return w.nRecord
}

// Close flushes buffered output and finishes the gzip stream, if any.
func (w *Writer) Close() (err error) {
	err = w.w.Flush()
	if w.gz != nil {
		if e := w.gz.Close(); e != nil && err == nil {
			err = e
		}
	}
	return
}
