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
	"errors"
	"io"

	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"
)

const scannerBufSize = 1 << 20

var errEOF = errors.New("eof")

// Scanner reads the records of a HICSLICE stream.  The Scan method fills the
// next record, returning a boolean indicating whether the read succeeded.
// Scanners are not threadsafe.
type Scanner struct {
	hdr Header
	r   *bufio.Reader
	gz  *gzip.Reader
	err error
	buf [RecordSize]byte

	nRecord   int64
	nTrailing int
}

// IsGzip returns whether the stream behind br starts with the gzip magic.
func IsGzip(br *bufio.Reader) bool {
	magic, _ := br.Peek(2)
	return len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b
}

// NewScanner reads the stream header from r, transparently decompressing
// gzip input, and returns a Scanner positioned at the first record.  Header
// problems are reported as *FormatError or *DuplicateKeyError.
func NewScanner(r io.Reader) (*Scanner, error) {
	s := &Scanner{}
	br := bufio.NewReaderSize(r, scannerBufSize)
	if IsGzip(br) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "hicslice.NewScanner: gzip header")
		}
		s.gz = gz
		br = bufio.NewReaderSize(gz, scannerBufSize)
	}
	s.r = br
	hdr, err := ReadHeader(br)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.hdr = hdr
	return s, nil
}

// Header returns the stream header.
func (s *Scanner) Header() Header {
	return s.hdr
}

// Scan reads the next record into rec.  Once Scan returns false, it never
// returns true again; the caller should then check Err to tell a read error
// from the end of the stream.  A partial trailing record ends the stream
// without error.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil {
		return false
	}
	n, err := io.ReadFull(s.r, s.buf[:])
	if err != nil {
		switch err {
		case io.EOF:
			s.err = errEOF
		case io.ErrUnexpectedEOF:
			// Either a partial record, or a gzip stream cut off mid-member.
			// Both happen when reading a file that is still being written.
			s.nTrailing = n
			s.err = errEOF
			log.Printf("hicslice.Scanner: ignoring %d trailing byte(s) after record %d", n, s.nRecord)
		default:
			s.err = err
		}
		return false
	}
	decodeRecord(s.buf[:], rec)
	s.nRecord++
	return true
}

// Err returns the error that stopped Scan, or nil at a clean end of stream.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}

// NumRecords returns the number of records returned by Scan so far.
func (s *Scanner) NumRecords() int64 {
	return s.nRecord
}

// TrailingBytes returns the size of the partial record that ended the stream,
// if any.
func (s *Scanner) TrailingBytes() int {
	return s.nTrailing
}

// Close releases decompression state.  It does not close the underlying
// reader.
func (s *Scanner) Close() error {
	if s.gz != nil {
		return s.gz.Close()
	}
	return nil
}
