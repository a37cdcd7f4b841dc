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
Package apa implements Aggregate Peak Analysis over HICSLICE contact streams.

Given a stream of binned pairwise contacts and one or more sets of candidate
loops (pairs of anchor midpoints), it makes a single pass over the stream
and, per set, piles up the contact signal in a (2*window+1)-square
neighborhood around every loop center.  The pile-up is then normalized by
the local 1D coverage around each loop's anchors.

Records are rejected as early as possible: first by value and by
intra/inter-chromosomal mode, then by a distance band (intra mode only),
then by per-axis bin-interval unions around the loop centers (Regions), and
finally by an exact window test against the loops retrieved from a bucketed
spatial index (LoopIndex).  Coverage is accumulated for every record that
passes the first two checks.
*/
package apa
