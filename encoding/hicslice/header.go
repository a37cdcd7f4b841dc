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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the literal every HICSLICE stream starts with.
const Magic = "HICSLICE"

// maxNameLen bounds chromosome name lengths so that a corrupt length field
// can't trigger a huge allocation.
const maxNameLen = 1 << 16

// ChromKey is the compact chromosome identifier used by contact records.  It
// is only meaningful together with the ChromDict of the stream it came from.
type ChromKey int16

// FormatError is returned when a stream header is malformed: bad magic,
// truncated header fields, or non-positive resolution, chromosome count or
// name length.
type FormatError struct {
	// Field names the header field that failed to parse.
	Field string
	// Msg describes the problem.
	Msg string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("hicslice: malformed header field %s: %s", e.Field, e.Msg)
}

// DuplicateKeyError is returned when a header maps two chromosomes to the
// same key, or one chromosome name to two keys.  Such headers are rejected
// instead of letting the later entry silently replace the earlier one.
type DuplicateKeyError struct {
	Key  ChromKey
	Name string
	// Prev is the conflicting name (for a repeated key) or the empty string
	// (for a repeated name).
	Prev string
}

func (e *DuplicateKeyError) Error() string {
	if e.Prev != "" {
		return fmt.Sprintf("hicslice: chromosome key %d assigned to both %s and %s", e.Key, e.Prev, e.Name)
	}
	return fmt.Sprintf("hicslice: chromosome %s listed twice (second key %d)", e.Name, e.Key)
}

// ChromDict is the bidirectional chromosome name <-> key map carried in a
// stream header.  It is immutable once the header has been read.
type ChromDict struct {
	names map[ChromKey]string
	keys  map[string]ChromKey
	// order holds the keys in header order.
	order []ChromKey
}

// NewChromDict returns an empty dictionary.
func NewChromDict() *ChromDict {
	return &ChromDict{
		names: make(map[ChromKey]string),
		keys:  make(map[string]ChromKey),
	}
}

// Add registers a chromosome.  It fails with *DuplicateKeyError if either the
// key or the name is already present.
func (d *ChromDict) Add(key ChromKey, name string) error {
	if prev, ok := d.names[key]; ok {
		return &DuplicateKeyError{Key: key, Name: name, Prev: prev}
	}
	if _, ok := d.keys[name]; ok {
		return &DuplicateKeyError{Key: key, Name: name}
	}
	d.names[key] = name
	d.keys[name] = key
	d.order = append(d.order, key)
	return nil
}

// Key returns the key for the named chromosome.
func (d *ChromDict) Key(name string) (ChromKey, bool) {
	key, ok := d.keys[name]
	return key, ok
}

// Name returns the chromosome name for key.
func (d *ChromDict) Name(key ChromKey) (string, bool) {
	name, ok := d.names[key]
	return name, ok
}

// Len returns the number of chromosomes.
func (d *ChromDict) Len() int {
	return len(d.order)
}

// Keys returns all keys in header order.  The caller must not modify the
// returned slice.
func (d *ChromDict) Keys() []ChromKey {
	return d.order
}

// Header is the parsed stream header.
type Header struct {
	// Resolution is the bin width in base pairs.
	Resolution int32
	// Chroms maps chromosome names to record keys.
	Chroms *ChromDict
}

// headerReader wraps the little-endian field reads, turning short reads into
// FormatErrors.
type headerReader struct {
	r   io.Reader
	buf [4]byte
}

func (hr *headerReader) readFull(field string, b []byte) error {
	if _, err := io.ReadFull(hr.r, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &FormatError{Field: field, Msg: "truncated header"}
		}
		return err
	}
	return nil
}

func (hr *headerReader) int32(field string) (int32, error) {
	if err := hr.readFull(field, hr.buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(hr.buf[:4])), nil
}

func (hr *headerReader) int16(field string) (int16, error) {
	if err := hr.readFull(field, hr.buf[:2]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(hr.buf[:2])), nil
}

// ReadHeader parses a header from the start of an uncompressed stream.  On
// success, r is positioned at the first record.
func ReadHeader(r io.Reader) (h Header, err error) {
	hr := headerReader{r: r}
	var magic [len(Magic)]byte
	if err = hr.readFull("magic", magic[:]); err != nil {
		return
	}
	if string(magic[:]) != Magic {
		err = &FormatError{Field: "magic", Msg: fmt.Sprintf("expected %q, got %q", Magic, magic[:])}
		return
	}
	if h.Resolution, err = hr.int32("resolution"); err != nil {
		return
	}
	if h.Resolution <= 0 {
		err = &FormatError{Field: "resolution", Msg: fmt.Sprintf("must be positive, got %d", h.Resolution)}
		return
	}
	var nChrom int32
	if nChrom, err = hr.int32("chromosome count"); err != nil {
		return
	}
	if nChrom <= 0 {
		err = &FormatError{Field: "chromosome count", Msg: fmt.Sprintf("must be positive, got %d", nChrom)}
		return
	}
	h.Chroms = NewChromDict()
	for i := int32(0); i < nChrom; i++ {
		var nameLen int32
		if nameLen, err = hr.int32("chromosome name length"); err != nil {
			return
		}
		if nameLen <= 0 || nameLen > maxNameLen {
			err = &FormatError{Field: "chromosome name length", Msg: fmt.Sprintf("entry %d of %d has length %d", i, nChrom, nameLen)}
			return
		}
		nameBuf := make([]byte, nameLen)
		if err = hr.readFull("chromosome name", nameBuf); err != nil {
			return
		}
		// Writers occasionally include a C-string terminator in the length.
		if nulPos := bytes.IndexByte(nameBuf, 0); nulPos >= 0 {
			nameBuf = nameBuf[:nulPos]
		}
		if len(nameBuf) == 0 {
			err = &FormatError{Field: "chromosome name", Msg: fmt.Sprintf("entry %d of %d is empty", i, nChrom)}
			return
		}
		var key int16
		if key, err = hr.int16("chromosome key"); err != nil {
			return
		}
		if err = h.Chroms.Add(ChromKey(key), string(nameBuf)); err != nil {
			return
		}
	}
	return
}

// WriteHeader serializes h, with chromosomes in dictionary order.
func WriteHeader(w io.Writer, h Header) error {
	if h.Resolution <= 0 {
		return &FormatError{Field: "resolution", Msg: fmt.Sprintf("must be positive, got %d", h.Resolution)}
	}
	if h.Chroms == nil || h.Chroms.Len() == 0 {
		return &FormatError{Field: "chromosome count", Msg: "no chromosomes"}
	}
	var buf bytes.Buffer
	buf.WriteString(Magic)
	var scratch [4]byte
	putInt32 := func(v int32) {
		binary.LittleEndian.PutUint32(scratch[:], uint32(v))
		buf.Write(scratch[:4])
	}
	putInt32(h.Resolution)
	putInt32(int32(h.Chroms.Len()))
	for _, key := range h.Chroms.Keys() {
		name, _ := h.Chroms.Name(key)
		putInt32(int32(len(name)))
		buf.WriteString(name)
		binary.LittleEndian.PutUint16(scratch[:2], uint16(key))
		buf.Write(scratch[:2])
	}
	_, err := w.Write(buf.Bytes())
	return err
}
