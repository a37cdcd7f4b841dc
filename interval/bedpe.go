package interval

import (
	"bufio"
	"fmt"
	"io"
)

// PairEntry is one BEDPE line: two 0-based half-open intervals, possibly on
// different chromosomes.
type PairEntry struct {
	First  Entry
	Second Entry
	// Line is the 1-based source line number.
	Line int
}

// Mid returns the integer midpoint (start+end)/2 of e.
func (e Entry) Mid() int64 {
	return (int64(e.Start0) + int64(e.End)) / 2
}

// ReadBEDPE parses the first six columns of every BEDPE line from reader:
//   chrom1 start1 end1 chrom2 start2 end2
// Extra columns are ignored.  Blank lines, comment lines and track/browser
// lines are skipped.  Negative coordinates and end < start are errors.
func ReadBEDPE(reader io.Reader) (entries []PairEntry, err error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var tokens [6][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || isHeaderLine(tokens[0]) {
			continue
		}
		if nToken != 6 {
			err = fmt.Errorf("interval.ReadBEDPE: line %d has %d column(s), expected at least 6", lineIdx, nToken)
			return
		}
		pe := PairEntry{Line: lineIdx}
		if pe.First, err = parseBEDPEHalf(tokens[0:3], lineIdx); err != nil {
			return
		}
		if pe.Second, err = parseBEDPEHalf(tokens[3:6], lineIdx); err != nil {
			return
		}
		entries = append(entries, pe)
	}
	err = scanner.Err()
	return
}

func parseBEDPEHalf(tokens [][]byte, lineIdx int) (e Entry, err error) {
	if e.Start0, err = parseCoord(tokens[1], lineIdx, "ReadBEDPE"); err != nil {
		return
	}
	if e.End, err = parseCoord(tokens[2], lineIdx, "ReadBEDPE"); err != nil {
		return
	}
	if e.End < e.Start0 {
		err = fmt.Errorf("interval.ReadBEDPE: line %d: end %d before start %d", lineIdx, e.End, e.Start0)
		return
	}
	e.ChrName = string(tokens[0])
	return
}
