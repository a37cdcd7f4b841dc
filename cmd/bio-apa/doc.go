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

/*
bio-apa computes Aggregate Peak Analysis (APA) matrices from a HICSLICE
contact file and one or more sets of candidate loops.

Each loop set is a BEDPE file; the two anchors of a loop are the midpoints of
its two intervals.  For every set, bio-apa sums the contacts in a
(2*window+1)-bin square around every loop center, normalizes the sum for
local coverage bias, and writes the matrix to
<out>.<set name>.apa.txt[.gz].

The contact file may be gzip compressed; a partial trailing record, as left
by a writer that hasn't finished, is ignored.

Sample usage:
bio-apa \
    --loops ctcf=ctcf.bedpe.gz,random.bedpe \
    --window 10 \
    --min-dist 30000 \
    --out output-prefix \
    sample.hicslice.gz
*/
package main
