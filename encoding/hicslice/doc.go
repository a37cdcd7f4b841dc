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

/*Package hicslice reads and writes HICSLICE contact streams.

A HICSLICE stream is a header followed by fixed-size contact records, all
little-endian and tightly packed:

  [8]byte  magic, "HICSLICE"
  int32    resolution (bp per bin), > 0
  int32    number of chromosomes N, > 0
  N times:
    int32  name length L, > 0
    [L]byte name
    int16  chromosome key
  records until end-of-stream, 16 bytes each:
    int16 chr1 key, int32 bin1, int16 chr2 key, int32 bin2, float32 value

The whole stream may be gzip-compressed (plain gzip, multi-member gzip and
bgzf are all accepted).  A trailing partial record is treated as the end of
the stream, since slice files are often read while still being written.
*/
package hicslice
