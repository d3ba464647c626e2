// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile reads incomplete single-cell methylation profiles and
// builds the position table the feature extractors run over.
// Implements: prd005-dataprep (R1, R2);
//
//	docs/ARCHITECTURE § Data Preparation.
package profile

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// NaN marks a missing methylation observation in states, distances, and
// statistics.
const NaN = -1

// ChromoSites holds one chromosome's observations sorted by position.
type ChromoSites struct {
	// Pos lists 1-based site positions in ascending order.
	Pos []int

	// Value holds the methylation value per position: binary 0/1 for
	// single-cell profiles, a raw fraction for bulk profiles.
	Value []float32
}

// Profile is one cell's methylation observations grouped by chromosome.
type Profile struct {
	// Name identifies the cell, derived from the file name up to its
	// first extension.
	Name string

	Chromos map[string]*ChromoSites
}

// ChromoNames returns the profile's chromosome names in sorted order.
func (p *Profile) ChromoNames() []string {
	names := make([]string, 0, len(p.Chromos))
	for name := range p.Chromos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of observations in the profile.
func (p *Profile) Len() int {
	n := 0
	for _, cs := range p.Chromos {
		n += len(cs.Pos)
	}
	return n
}

// ReadOptions controls profile parsing.
type ReadOptions struct {
	// Chromos restricts reading to the named chromosomes (normalized).
	// Empty keeps everything.
	Chromos []string

	// MaxRows caps the number of data rows read per file. Zero reads all.
	MaxRows int

	// Round rounds values to binary states. Single-cell profiles round,
	// bulk profiles keep the raw fraction.
	Round bool
}

// NormChromo normalizes a chromosome name: uppercase with any leading
// "chr" stripped, so "chr1", "Chr1", and "1" all map to "1".
func NormChromo(s string) string {
	return strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "CHR")
}

// ProfileName derives the cell name from a profile path: the base name up
// to the first dot, so "suffixes" like .dcpg.gz drop off.
func ProfileName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// OpenData opens a data file, transparently decompressing when the name
// ends in .gz.
func OpenData(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return &gzipFile{zr: zr, f: f}, nil
}

type gzipFile struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipFile) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipFile) Close() error {
	zerr := g.zr.Close()
	ferr := g.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// ReadProfile reads one methylation profile in dcpg format (chromo, pos,
// value) or bedGraph format (chromo, start, end, ratio; the site position
// is start+1). The format is detected from the first data row's column
// count. Values must lie in [0, 1] (R1.4); chromosome names are
// normalized and rows are sorted by position (R1.2, R1.3).
func ReadProfile(path string, opts ReadOptions) (*Profile, error) {
	r, err := OpenData(path)
	if err != nil {
		return nil, fmt.Errorf("opening profile: %w", err)
	}
	defer r.Close()

	keep := make(map[string]bool, len(opts.Chromos))
	for _, c := range opts.Chromos {
		keep[NormChromo(c)] = true
	}

	p := &Profile{
		Name:    ProfileName(path),
		Chromos: make(map[string]*ChromoSites),
	}

	var (
		cols int
		rows int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if opts.MaxRows > 0 && rows >= opts.MaxRows {
			break
		}

		fields := strings.Fields(line)
		if cols == 0 {
			switch len(fields) {
			case 3, 4:
				cols = len(fields)
			default:
				return nil, fmt.Errorf("%s:%d: expected 3 (dcpg) or 4 (bedGraph) columns, got %d",
					path, lineNo, len(fields))
			}
		}
		if len(fields) != cols {
			return nil, fmt.Errorf("%s:%d: expected %d columns, got %d",
				path, lineNo, cols, len(fields))
		}

		chromo := NormChromo(fields[0])

		var pos int
		var value float64
		if cols == 3 {
			pos, err = strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: parsing position: %w", path, lineNo, err)
			}
			value, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: parsing value: %w", path, lineNo, err)
			}
		} else {
			start, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: parsing start: %w", path, lineNo, err)
			}
			pos = start + 1
			value, err = strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: parsing ratio: %w", path, lineNo, err)
			}
		}

		if value < 0 || value > 1 {
			return nil, fmt.Errorf("%s:%d: methylation value %g outside [0, 1]",
				path, lineNo, value)
		}
		if opts.Round {
			value = math.Round(value)
		}

		rows++
		if len(keep) > 0 && !keep[chromo] {
			continue
		}

		cs := p.Chromos[chromo]
		if cs == nil {
			cs = &ChromoSites{}
			p.Chromos[chromo] = cs
		}
		cs.Pos = append(cs.Pos, pos)
		cs.Value = append(cs.Value, float32(value))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	for _, cs := range p.Chromos {
		sortChromoSites(cs)
	}
	return p, nil
}

// ReadProfiles reads multiple profiles, preserving input order. The order
// fixes the cell column layout downstream (R1.5).
func ReadProfiles(paths []string, opts ReadOptions) ([]*Profile, error) {
	profiles := make([]*Profile, 0, len(paths))
	for _, path := range paths {
		p, err := ReadProfile(path, opts)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func sortChromoSites(cs *ChromoSites) {
	idx := make([]int, len(cs.Pos))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return cs.Pos[idx[a]] < cs.Pos[idx[b]] })

	pos := make([]int, len(cs.Pos))
	value := make([]float32, len(cs.Value))
	for i, j := range idx {
		pos[i] = cs.Pos[j]
		value[i] = cs.Value[j]
	}
	cs.Pos = pos
	cs.Value = value
}

// MapValues maps a chromosome's observations onto targetPos, filling NaN
// where a target position was not observed (R2.3). Both position lists
// must be sorted ascending.
func MapValues(cs *ChromoSites, targetPos []int) []float32 {
	out := make([]float32, len(targetPos))
	for i := range out {
		out[i] = NaN
	}
	if cs == nil {
		return out
	}

	j := 0
	for i, p := range targetPos {
		for j < len(cs.Pos) && cs.Pos[j] < p {
			j++
		}
		for k := j; k < len(cs.Pos) && cs.Pos[k] == p; k++ {
			out[i] = cs.Value[k]
		}
	}
	return out
}
