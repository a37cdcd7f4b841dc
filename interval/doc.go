/*Package interval implements interval-union operations in a manner optimized
  for sets of genomic coordinates: bin ranges around loop anchors, and the
  regions listed in BED files.
  (Note the 'union'.  Overlapping intervals are merged, not tracked
  separately.)
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what HICSLICE bin coordinates are limited to.
*/
package interval
