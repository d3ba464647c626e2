// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feature

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/cpgzoo/internal/profile"
)

// ReadAnno reads genomic annotation intervals for one chromosome from a
// BED-like file: TSV rows of chromosome, start, and end, optionally
// gzipped (R5.3). Intervals are sorted by start and overlapping or
// touching intervals are merged. Coordinates are kept as they appear in
// the file; both bounds are treated as inclusive by InIntervals.
func ReadAnno(path, chromo string) (starts, ends []int, err error) {
	r, err := profile.OpenData(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening annotation file: %w", err)
	}
	defer r.Close()

	want := profile.NormChromo(chromo)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, nil, fmt.Errorf("%s:%d: expected chromosome, start, and end columns", path, lineNo)
		}
		if profile.NormChromo(fields[0]) != want {
			continue
		}
		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, nil, fmt.Errorf("%s:%d: parsing start: %w", path, lineNo, err)
		}
		end, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, nil, fmt.Errorf("%s:%d: parsing end: %w", path, lineNo, err)
		}
		starts = append(starts, start)
		ends = append(ends, end)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	sortIntervals(starts, ends)
	starts, ends = JoinOverlapping(starts, ends)
	return starts, ends, nil
}

// sortIntervals orders both slices by start position.
func sortIntervals(starts, ends []int) {
	order := make([]int, len(starts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return starts[order[a]] < starts[order[b]]
	})
	ss := make([]int, len(starts))
	es := make([]int, len(ends))
	for i, j := range order {
		ss[i] = starts[j]
		es[i] = ends[j]
	}
	copy(starts, ss)
	copy(ends, es)
}

// JoinOverlapping merges intervals that overlap or touch. Input must be
// sorted by start.
func JoinOverlapping(starts, ends []int) ([]int, []int) {
	if len(starts) == 0 {
		return nil, nil
	}
	js := []int{starts[0]}
	je := []int{ends[0]}
	for i := 1; i < len(starts); i++ {
		last := len(je) - 1
		if starts[i] <= je[last] {
			if ends[i] > je[last] {
				je[last] = ends[i]
			}
		} else {
			js = append(js, starts[i])
			je = append(je, ends[i])
		}
	}
	return js, je
}

// InIntervals flags, for each position, whether it falls inside any of
// the given disjoint intervals, bounds inclusive (R5.4). Intervals must
// be sorted and non-overlapping, as returned by JoinOverlapping.
func InIntervals(pos []int, starts, ends []int) []int8 {
	flags := make([]int8, len(pos))
	for i, p := range pos {
		idx := sort.SearchInts(starts, p+1) - 1
		if idx >= 0 && p <= ends[idx] {
			flags[i] = 1
		}
	}
	return flags
}
