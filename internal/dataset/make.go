// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/pdiddy/cpgzoo/internal/feature"
	"github.com/pdiddy/cpgzoo/internal/profile"
)

// MakeOptions configure a dataset build.
type MakeOptions struct {
	CpGProfiles  []string // single-cell methylation profiles
	BulkProfiles []string // bulk methylation profiles
	PosFile      string   // explicit position table, otherwise the profile union
	DNADb        string   // directory of per-chromosome FASTA files
	DNAWlen      int      // DNA window length, odd
	CpGWlen      int      // neighbour row width, even; zero disables
	CpGCov       int      // minimum per-site coverage
	Stats        []string // per-site statistics across cells
	StatsCov     int      // minimum coverage for statistics
	WinStats     []string // windowed statistics
	WinStatsWlen []int    // window lengths for WinStats
	AnnoFiles    []string // BED-like annotation files
	Chromos      []string // restrict to these chromosomes
	MaxSamples   int      // cap on rows and sites, zero means no cap
	ChunkSize    int      // sites per chunk
	Seed         int64    // seed for N replacement in DNA windows
	OutDir       string
}

func (o *MakeOptions) setDefaults() {
	if o.DNADb != "" && o.DNAWlen == 0 {
		o.DNAWlen = 1001
	}
	if o.CpGCov <= 0 {
		o.CpGCov = 1
	}
	if o.StatsCov <= 0 {
		o.StatsCov = 1
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 32768
	}
	if len(o.WinStats) > 0 && len(o.WinStatsWlen) == 0 {
		o.WinStatsWlen = []int{3001}
	}
}

func (o *MakeOptions) validate() error {
	if len(o.CpGProfiles) == 0 && o.PosFile == "" {
		return fmt.Errorf("cpg profiles or a position table are required")
	}
	if len(o.CpGProfiles) == 0 && o.DNADb == "" {
		return fmt.Errorf("nothing to extract: provide cpg profiles or a dna database")
	}
	if o.DNADb != "" && o.DNAWlen%2 == 0 {
		return fmt.Errorf("dna window length %d is not odd", o.DNAWlen)
	}
	if o.CpGWlen < 0 || o.CpGWlen%2 != 0 {
		return fmt.Errorf("cpg window width %d is not even", o.CpGWlen)
	}
	if o.CpGWlen > 0 && len(o.CpGProfiles) == 0 {
		return fmt.Errorf("cpg neighbours require single-cell profiles")
	}
	if len(o.WinStats) > 0 && o.CpGWlen == 0 {
		return fmt.Errorf("window statistics require a cpg window width")
	}
	if err := feature.ValidStats(o.Stats); err != nil {
		return err
	}
	return feature.ValidStats(o.WinStats)
}

// MakeResult summarizes a dataset build.
type MakeResult struct {
	Chromos int
	Chunks  int
	Sites   int
	Path    string
}

// Make builds a dataset from methylation profiles and a DNA database,
// writing per-chromosome chunks to a store under opts.OutDir (R7.1).
// Chromosomes where no site reaches the coverage threshold are skipped
// with a status line; a chromosome missing from the DNA database aborts
// the build.
func Make(ctx context.Context, opts MakeOptions, w io.Writer) (*MakeResult, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	statFns := make(map[string]func([]float32) float32)
	for _, name := range append(append([]string{}, opts.Stats...), opts.WinStats...) {
		fn, err := feature.StatFunc(name)
		if err != nil {
			return nil, err
		}
		statFns[name] = fn
	}

	cpg, bulk, table, err := readInputs(opts, w)
	if err != nil {
		return nil, err
	}
	if table.Total() == 0 {
		return nil, fmt.Errorf("position table is empty after filters (chromosomes %v, max samples %d)",
			opts.Chromos, opts.MaxSamples)
	}
	fmt.Fprintf(w, "positions: %d sites on %d chromosomes\n", table.Total(), len(table.Chromos))

	store, err := Create(opts.OutDir)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	rnd := rand.New(rand.NewSource(opts.Seed))
	result := &MakeResult{Path: store.Path()}

	for _, chromo := range table.Chromos {
		sites, chunks, err := makeChromo(ctx, store, opts, statFns, chromo, table.Pos[chromo], cpg, bulk, rnd, w)
		if err != nil {
			return nil, err
		}
		if sites == 0 {
			continue
		}
		result.Chromos++
		result.Chunks += chunks
		result.Sites += sites
	}
	if result.Sites == 0 {
		return nil, fmt.Errorf("no sites with coverage >= %d on any chromosome", opts.CpGCov)
	}

	dnaWlen := 0
	if opts.DNADb != "" {
		dnaWlen = opts.DNAWlen
	}
	meta := Meta{
		DNAWlen:      dnaWlen,
		CpGWlen:      opts.CpGWlen,
		ChunkSize:    opts.ChunkSize,
		Cells:        profileNames(cpg),
		Bulk:         profileNames(bulk),
		Stats:        opts.Stats,
		WinStats:     opts.WinStats,
		WinStatsWlen: opts.WinStatsWlen,
		Seed:         opts.Seed,
		CreatedAt:    time.Now(),
	}
	if err := store.WriteMeta(ctx, meta); err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "\nDataset summary: %d chromosomes, %d chunks, %d sites (%s)\n",
		result.Chromos, result.Chunks, result.Sites, store.Path())
	return result, nil
}

func readInputs(opts MakeOptions, w io.Writer) (cpg, bulk []*profile.Profile, table *profile.PosTable, err error) {
	if len(opts.CpGProfiles) > 0 {
		fmt.Fprintf(w, "reading: %d single-cell profiles\n", len(opts.CpGProfiles))
		cpg, err = profile.ReadProfiles(opts.CpGProfiles, profile.ReadOptions{
			Chromos: opts.Chromos,
			MaxRows: opts.MaxSamples,
			Round:   true,
		})
		if err != nil {
			return nil, nil, nil, err
		}
	}
	if len(opts.BulkProfiles) > 0 {
		fmt.Fprintf(w, "reading: %d bulk profiles\n", len(opts.BulkProfiles))
		bulk, err = profile.ReadProfiles(opts.BulkProfiles, profile.ReadOptions{
			Chromos: opts.Chromos,
			MaxRows: opts.MaxSamples,
			Round:   false,
		})
		if err != nil {
			return nil, nil, nil, err
		}
	}

	if opts.PosFile != "" {
		table, err = profile.ReadPositions(opts.PosFile)
		if err != nil {
			return nil, nil, nil, err
		}
		table.Filter(opts.Chromos)
	} else {
		table = profile.PositionsFrom(cpg)
	}
	table.Cap(opts.MaxSamples)
	return cpg, bulk, table, nil
}

// chromoBatch carries everything extracted for one chromosome before it
// is cut into chunks.
type chromoBatch struct {
	chromo    string
	pos       []int
	cpg       []*profile.Profile
	bulk      []*profile.Profile
	cpgVals   [][]float32
	bulkVals  [][]float32
	wins      [][]int8
	knnStates [][][]int8
	knnDists  [][][]float32
	annos     map[string][]int8
	statFns   map[string]func([]float32) float32
}

func makeChromo(ctx context.Context, store *Store, opts MakeOptions, statFns map[string]func([]float32) float32,
	chromo string, pos []int, cpg, bulk []*profile.Profile, rnd *rand.Rand, w io.Writer) (int, int, error) {

	cpgVals := make([][]float32, len(cpg))
	for i, p := range cpg {
		cpgVals[i] = profile.MapValues(p.Chromos[chromo], pos)
	}
	if len(cpg) > 0 {
		pos, cpgVals = filterCoverage(pos, cpgVals, opts.CpGCov)
		if len(pos) == 0 {
			fmt.Fprintf(w, "skipped: chromosome %s (no sites with coverage >= %d)\n", chromo, opts.CpGCov)
			return 0, 0, nil
		}
	}

	batch := &chromoBatch{
		chromo:  chromo,
		pos:     pos,
		cpg:     cpg,
		bulk:    bulk,
		cpgVals: cpgVals,
		statFns: statFns,
	}

	batch.bulkVals = make([][]float32, len(bulk))
	for i, p := range bulk {
		batch.bulkVals[i] = profile.MapValues(p.Chromos[chromo], pos)
	}

	if opts.DNADb != "" {
		seq, err := feature.ReadChromo(opts.DNADb, chromo)
		if err != nil {
			return 0, 0, err
		}
		batch.wins, err = feature.SeqWindows(seq, pos, opts.DNAWlen, rnd, w)
		if err != nil {
			return 0, 0, err
		}
	}

	if opts.CpGWlen > 0 {
		k := opts.CpGWlen / 2
		batch.knnStates = make([][][]int8, len(cpg))
		batch.knnDists = make([][][]float32, len(cpg))
		for i, p := range cpg {
			var rawPos []int
			var rawVals []float32
			if cs := p.Chromos[chromo]; cs != nil {
				rawPos, rawVals = cs.Pos, cs.Value
			}
			batch.knnStates[i], batch.knnDists[i] = feature.Neighbors(k, pos, rawPos, rawVals)
		}
	}

	batch.annos = make(map[string][]int8, len(opts.AnnoFiles))
	for _, f := range opts.AnnoFiles {
		starts, ends, err := feature.ReadAnno(f, chromo)
		if err != nil {
			return 0, 0, err
		}
		batch.annos[profile.ProfileName(f)] = feature.InIntervals(pos, starts, ends)
	}

	n := len(pos)
	nbChunk := (n + opts.ChunkSize - 1) / opts.ChunkSize
	fmt.Fprintf(w, "chromosome %s: %d sites in %d chunks\n", chromo, n, nbChunk)

	for ci := 0; ci < nbChunk; ci++ {
		start := ci * opts.ChunkSize
		end := start + opts.ChunkSize
		if end > n {
			end = n
		}
		chunk := &Chunk{Chromo: chromo, StartIdx: start, EndIdx: end}
		for j := start; j < end; j++ {
			chunk.Sites = append(chunk.Sites, batch.site(opts, j))
		}
		if err := store.WriteChunk(ctx, chunk); err != nil {
			return 0, 0, err
		}
	}
	return n, nbChunk, nil
}

// filterCoverage drops sites observed in fewer than minCov cells.
func filterCoverage(pos []int, vals [][]float32, minCov int) ([]int, [][]float32) {
	keep := make([]int, 0, len(pos))
	for j := range pos {
		cov := 0
		for i := range vals {
			if vals[i][j] != profile.NaN {
				cov++
			}
		}
		if cov >= minCov {
			keep = append(keep, j)
		}
	}
	if len(keep) == len(pos) {
		return pos, vals
	}

	outPos := make([]int, len(keep))
	for x, j := range keep {
		outPos[x] = pos[j]
	}
	outVals := make([][]float32, len(vals))
	for i := range vals {
		outVals[i] = make([]float32, len(keep))
		for x, j := range keep {
			outVals[i][x] = vals[i][j]
		}
	}
	return outPos, outVals
}

// site assembles the stored record for the j-th position of the batch.
func (b *chromoBatch) site(opts MakeOptions, j int) *SiteData {
	site := &SiteData{Chromo: b.chromo, Pos: b.pos[j]}
	if b.wins != nil {
		site.DNA = b.wins[j]
	}

	if len(b.cpg) > 0 {
		site.CpG = make(map[string]float32, len(b.cpg))
		for i, p := range b.cpg {
			site.CpG[p.Name] = b.cpgVals[i][j]
		}
	}
	if len(b.bulk) > 0 {
		site.Bulk = make(map[string]float32, len(b.bulk))
		for i, p := range b.bulk {
			site.Bulk[p.Name] = b.bulkVals[i][j]
		}
	}
	if b.knnStates != nil {
		site.Knn = make(map[string]NeighborRow, len(b.cpg))
		for i, p := range b.cpg {
			site.Knn[p.Name] = NeighborRow{States: b.knnStates[i][j], Dists: b.knnDists[i][j]}
		}
	}

	if len(opts.Stats) > 0 && len(b.cpg) > 0 {
		vals := make([]float32, len(b.cpg))
		for i := range b.cpg {
			vals[i] = b.cpgVals[i][j]
		}
		obs := feature.Observed(vals)
		site.Stats = make(map[StatKey]float32)
		for _, name := range opts.Stats {
			var v float32 = profile.NaN
			if len(obs) >= opts.StatsCov {
				v = b.statFns[name](obs)
			}
			site.Stats[StatKey{Name: name}] = v
		}
	}
	if len(opts.WinStats) > 0 && b.knnStates != nil {
		if site.Stats == nil {
			site.Stats = make(map[StatKey]float32)
		}
		for _, wlen := range opts.WinStatsWlen {
			pool := b.windowPool(j, wlen)
			for _, name := range opts.WinStats {
				site.Stats[StatKey{Name: name, Wlen: wlen}] = b.statFns[name](pool)
			}
		}
	}

	if len(b.annos) > 0 {
		site.Annos = make(map[string]int8, len(b.annos))
		for name, flags := range b.annos {
			site.Annos[name] = flags[j]
		}
	}
	return site
}

// windowPool gathers the binary states observed within wlen/2 of the
// j-th site across all cells: the site's own observations plus each
// cell's neighbours inside the window.
func (b *chromoBatch) windowPool(j, wlen int) []float32 {
	delta := float32(wlen / 2)
	var pool []float32
	for i := range b.cpg {
		if v := b.cpgVals[i][j]; v != profile.NaN {
			pool = append(pool, v)
		}
		states := b.knnStates[i][j]
		dists := b.knnDists[i][j]
		for s, st := range states {
			if st == profile.NaN || dists[s] == profile.NaN || dists[s] > delta {
				continue
			}
			pool = append(pool, float32(st))
		}
	}
	return pool
}

func profileNames(profiles []*profile.Profile) []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}
