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
	"encoding/binary"
	"math"
)

// RecordSize is the encoded size of one contact record.
const RecordSize = 16

// Record is one observed contact between (Chr1, Bin1) and (Chr2, Bin2).
type Record struct {
	Chr1  ChromKey
	Bin1  int32
	Chr2  ChromKey
	Bin2  int32
	Value float32
}

// Intra returns whether both ends of the contact are on the same chromosome.
func (r *Record) Intra() bool {
	return r.Chr1 == r.Chr2
}

// Diagonal returns whether the contact is a self-contact of a single bin.
func (r *Record) Diagonal() bool {
	return r.Chr1 == r.Chr2 && r.Bin1 == r.Bin2
}

// PairKey packs the chromosome pair into a single ordered key.  (chr1, chr2)
// and (chr2, chr1) map to different keys.
func PairKey(chr1, chr2 ChromKey) uint32 {
	return uint32(uint16(chr1))<<16 | uint32(uint16(chr2))
}

func decodeRecord(b []byte, r *Record) {
	_ = b[RecordSize-1]
	r.Chr1 = ChromKey(binary.LittleEndian.Uint16(b[0:2]))
	r.Bin1 = int32(binary.LittleEndian.Uint32(b[2:6]))
	r.Chr2 = ChromKey(binary.LittleEndian.Uint16(b[6:8]))
	r.Bin2 = int32(binary.LittleEndian.Uint32(b[8:12]))
	r.Value = math.Float32frombits(binary.LittleEndian.Uint32(b[12:16]))
}

func encodeRecord(b []byte, r *Record) {
	_ = b[RecordSize-1]
	binary.LittleEndian.PutUint16(b[0:2], uint16(r.Chr1))
	binary.LittleEndian.PutUint32(b[2:6], uint32(r.Bin1))
	binary.LittleEndian.PutUint16(b[6:8], uint16(r.Chr2))
	binary.LittleEndian.PutUint32(b[8:12], uint32(r.Bin2))
	binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(r.Value))
}
