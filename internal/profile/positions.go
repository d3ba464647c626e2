// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PosTable holds the site positions to extract features at, unique and
// sorted per chromosome (R2.1). Chromosomes are kept in lexicographic
// order, matching the source table ordering.
type PosTable struct {
	Chromos []string
	Pos     map[string][]int
}

// Total returns the number of positions across all chromosomes.
func (t *PosTable) Total() int {
	n := 0
	for _, pos := range t.Pos {
		n += len(pos)
	}
	return n
}

// Filter restricts the table to the named chromosomes (normalized).
// Empty leaves the table unchanged.
func (t *PosTable) Filter(chromos []string) {
	if len(chromos) == 0 {
		return
	}
	keep := make(map[string]bool, len(chromos))
	for _, c := range chromos {
		keep[NormChromo(c)] = true
	}

	var names []string
	for _, c := range t.Chromos {
		if keep[c] {
			names = append(names, c)
		} else {
			delete(t.Pos, c)
		}
	}
	t.Chromos = names
}

// Cap keeps the first n positions in table order, dropping the rest
// (R2.5). Non-positive n leaves the table unchanged.
func (t *PosTable) Cap(n int) {
	if n <= 0 {
		return
	}
	var names []string
	for _, c := range t.Chromos {
		pos := t.Pos[c]
		if n <= 0 {
			delete(t.Pos, c)
			continue
		}
		if len(pos) > n {
			t.Pos[c] = pos[:n]
		}
		n -= len(t.Pos[c])
		names = append(names, c)
	}
	t.Chromos = names
}

// PositionsFrom unions the observed positions of the given profiles into
// a position table (R2.1, R2.2).
func PositionsFrom(profiles []*Profile) *PosTable {
	merged := make(map[string][]int)
	for _, p := range profiles {
		for chromo, cs := range p.Chromos {
			merged[chromo] = append(merged[chromo], cs.Pos...)
		}
	}
	return newPosTable(merged)
}

// ReadPositions reads an explicit position table: TSV rows of chromosome
// and 1-based position, comments starting with '#' (R2.4).
func ReadPositions(path string) (*PosTable, error) {
	r, err := OpenData(path)
	if err != nil {
		return nil, fmt.Errorf("opening position table: %w", err)
	}
	defer r.Close()

	merged := make(map[string][]int)
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
		if len(fields) < 2 {
			return nil, fmt.Errorf("%s:%d: expected chromosome and position columns", path, lineNo)
		}
		chromo := NormChromo(fields[0])
		pos, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parsing position: %w", path, lineNo, err)
		}
		merged[chromo] = append(merged[chromo], pos)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return newPosTable(merged), nil
}

// newPosTable sorts and dedupes per-chromosome positions.
func newPosTable(merged map[string][]int) *PosTable {
	t := &PosTable{Pos: make(map[string][]int, len(merged))}
	for chromo, pos := range merged {
		sort.Ints(pos)
		unique := pos[:0]
		for _, p := range pos {
			if len(unique) == 0 || p != unique[len(unique)-1] {
				unique = append(unique, p)
			}
		}
		t.Pos[chromo] = unique
		t.Chromos = append(t.Chromos, chromo)
	}
	sort.Strings(t.Chromos)
	return t
}
