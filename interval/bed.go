package interval

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		// These simple loops are better than any of the standard library
		// string-split functions when only a few short tokens are expected.
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// isHeaderLine returns whether a BED-like line carries no interval: comments,
// and browser/track lines.
func isHeaderLine(firstToken []byte) bool {
	tok := gunsafe.BytesToString(firstToken)
	return strings.HasPrefix(tok, "#") || tok == "track" || tok == "browser"
}

// parseCoord parses one BED coordinate column.
func parseCoord(token []byte, lineIdx int, funcName string) (PosType, error) {
	v, err := strconv.Atoi(gunsafe.BytesToString(token))
	if err != nil {
		return 0, fmt.Errorf("interval.%s: line %d: %v", funcName, lineIdx, err)
	}
	if v < 0 || v >= PosTypeMax {
		return 0, fmt.Errorf("interval.%s: line %d: coordinate %d out of range", funcName, lineIdx, v)
	}
	return PosType(v), nil
}

// NewBEDOpts defines behavior of this package's BED-loading function(s).
type NewBEDOpts struct {
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// ReadBEDEntries loads the first three columns of every interval line of a
// BED file.  Unlike a union, the entries are returned in file order, and
// need not be sorted.
func ReadBEDEntries(reader io.Reader, opts NewBEDOpts) (entries []Entry, err error) {
	var startSubtract PosType
	if opts.OneBasedInput {
		startSubtract++
	}
	scanner := bufio.NewScanner(reader)
	var tokens [3][]byte
	lineIdx := 0
	totBases := 0
	for scanner.Scan() {
		lineIdx++
		// scanner.Bytes() does not allocate; the chromosome name is copied below.
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || isHeaderLine(tokens[0]) {
			continue
		}
		if nToken != 3 {
			err = fmt.Errorf("interval.ReadBEDEntries: line %d has fewer tokens than expected", lineIdx)
			return
		}
		var start, end PosType
		if start, err = parseCoord(tokens[1], lineIdx, "ReadBEDEntries"); err != nil {
			return
		}
		if end, err = parseCoord(tokens[2], lineIdx, "ReadBEDEntries"); err != nil {
			return
		}
		if start < startSubtract {
			err = fmt.Errorf("interval.ReadBEDEntries: negative start coordinate on line %d", lineIdx)
			return
		}
		start -= startSubtract
		if end < start {
			err = fmt.Errorf("interval.ReadBEDEntries: invalid coordinate pair on line %d", lineIdx)
			return
		}
		entries = append(entries, Entry{ChrName: string(tokens[0]), Start0: start, End: end})
		totBases += int(end - start)
	}
	if err = scanner.Err(); err != nil {
		return
	}
	log.Printf("BED loaded, %d interval(s), %d base(s) listed.", len(entries), totBases)
	return
}

// ReadBEDEntriesFromPath is a wrapper for ReadBEDEntries that takes a path
// instead of an io.Reader.
func ReadBEDEntriesFromPath(path string, opts NewBEDOpts) (entries []Entry, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return ReadBEDEntries(reader, opts)
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, PosTypeMax - 1] is returned if there is no positional restriction.
func ParseRegionString(region string) (result Entry, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		result.ChrName = region
		result.Start0 = 0
		result.End = PosTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty contig ID")
		return
	}
	result.ChrName = region[0:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 <= 0 {
			err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr)
			return
		}
		result.Start0 = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1 int
	if start1, err = strconv.Atoi(start1Str); err != nil {
		return
	}
	if start1 <= 0 {
		err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", start1Str)
		return
	}
	var end0 int
	if end0, err = strconv.Atoi(endStr); err != nil {
		return
	}
	// end0 == PosTypeMax is prohibited so that endpoint slices never contain
	// repeats.
	if end0 < start1 || end0 >= PosTypeMax {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}
