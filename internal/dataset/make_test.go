package dataset

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pdiddy/cpgzoo/internal/feature"
)

func writeData(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// makeFixture lays out a tiny genome with CpG sites at 1-based
// positions 2, 7, 12, ..., 37 plus profiles observing a few of them.
type makeFixture struct {
	dnaDir string
	cell1  string
	cell2  string
	bulk1  string
	anno   string
	outDir string
}

func newMakeFixture(t *testing.T) *makeFixture {
	t.Helper()
	dir := t.TempDir()
	dnaDir := filepath.Join(dir, "dna")
	if err := os.MkdirAll(dnaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	seq := strings.Repeat("ACGTT", 8)
	writeData(t, dnaDir, "1.fa", ">1 test genome\n"+seq+"\n")

	return &makeFixture{
		dnaDir: dnaDir,
		cell1:  writeData(t, dir, "cell1.dcpg", "1\t2\t1\n1\t12\t0\n1\t22\t1\n"),
		cell2:  writeData(t, dir, "cell2.dcpg", "1\t2\t0\n1\t12\t1\n1\t32\t1\n"),
		bulk1:  writeData(t, dir, "bulk1.dcpg", "1\t2\t0.5\n"),
		anno:   writeData(t, dir, "cgi.bed", "chr1\t1\t15\n"),
		outDir: filepath.Join(dir, "out"),
	}
}

func TestMake(t *testing.T) {
	fix := newMakeFixture(t)
	ctx := context.Background()
	var out bytes.Buffer

	res, err := Make(ctx, MakeOptions{
		CpGProfiles:  []string{fix.cell1, fix.cell2},
		BulkProfiles: []string{fix.bulk1},
		DNADb:        fix.dnaDir,
		DNAWlen:      5,
		CpGWlen:      2,
		Stats:        []string{"mean", "cov"},
		WinStats:     []string{"mean"},
		WinStatsWlen: []int{11},
		AnnoFiles:    []string{fix.anno},
		ChunkSize:    3,
		Seed:         1,
		OutDir:       fix.outDir,
	}, &out)
	if err != nil {
		t.Fatal(err)
	}

	if res.Chromos != 1 || res.Chunks != 2 || res.Sites != 4 {
		t.Errorf("result = %+v, want 1 chromosome, 2 chunks, 4 sites", res)
	}
	for _, line := range []string{
		"reading: 2 single-cell profiles",
		"reading: 1 bulk profiles",
		"positions: 4 sites on 1 chromosomes",
		"chromosome 1: 4 sites in 2 chunks",
		"Dataset summary: 1 chromosomes, 2 chunks, 4 sites",
	} {
		if !strings.Contains(out.String(), line) {
			t.Errorf("output missing %q:\n%s", line, out.String())
		}
	}

	store, err := Open(fix.outDir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	infos, err := store.Chunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].ID != "c1_000000-000003" || infos[1].ID != "c1_000003-000004" {
		t.Fatalf("chunks = %+v, want c1_000000-000003 and c1_000003-000004", infos)
	}
	if infos[0].Sites != 3 || infos[1].Sites != 1 {
		t.Errorf("chunk sites = %d, %d, want 3, 1", infos[0].Sites, infos[1].Sites)
	}

	chunk, err := store.ReadChunk(ctx, "c1_000000-000003")
	if err != nil {
		t.Fatal(err)
	}
	site := chunk.Sites[0]
	if site.Pos != 2 {
		t.Fatalf("first site pos = %d, want 2", site.Pos)
	}
	if len(site.DNA) != 5 {
		t.Fatalf("dna window length = %d, want 5", len(site.DNA))
	}
	// The first slot pads past the chromosome start with a random base.
	if got := feature.DecodeWindow(site.DNA[1:]); got != "ACGT" {
		t.Errorf("dna window tail = %q, want ACGT", got)
	}
	if want := map[string]float32{"cell1": 1, "cell2": 0}; !reflect.DeepEqual(site.CpG, want) {
		t.Errorf("cpg outputs = %v, want %v", site.CpG, want)
	}
	if want := map[string]float32{"bulk1": 0.5}; !reflect.DeepEqual(site.Bulk, want) {
		t.Errorf("bulk outputs = %v, want %v", site.Bulk, want)
	}
	wantKnn := map[string]NeighborRow{
		"cell1": {States: []int8{-1, 0}, Dists: []float32{-1, 10}},
		"cell2": {States: []int8{-1, 1}, Dists: []float32{-1, 10}},
	}
	if !reflect.DeepEqual(site.Knn, wantKnn) {
		t.Errorf("knn = %v, want %v", site.Knn, wantKnn)
	}
	wantStats := map[StatKey]float32{
		{Name: "mean"}:           0.5,
		{Name: "cov"}:            2,
		{Name: "mean", Wlen: 11}: 0.5,
	}
	if !reflect.DeepEqual(site.Stats, wantStats) {
		t.Errorf("stats = %v, want %v", site.Stats, wantStats)
	}
	if want := map[string]int8{"cgi": 1}; !reflect.DeepEqual(site.Annos, want) {
		t.Errorf("annos = %v, want %v", site.Annos, want)
	}

	// Site at position 22 is observed by cell1 only.
	site = chunk.Sites[2]
	if site.Pos != 22 {
		t.Fatalf("third site pos = %d, want 22", site.Pos)
	}
	if site.CpG["cell1"] != 1 || site.CpG["cell2"] != -1 {
		t.Errorf("cpg outputs = %v, want cell1 observed only", site.CpG)
	}
	if site.Stats[StatKey{Name: "cov"}] != 1 || site.Stats[StatKey{Name: "mean"}] != 1 {
		t.Errorf("stats = %v, want cov 1 and mean 1", site.Stats)
	}
	if site.Annos["cgi"] != 0 {
		t.Errorf("annos = %v, want cgi 0 outside the interval", site.Annos)
	}

	meta, err := store.ReadMeta(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(meta.Cells, []string{"cell1", "cell2"}) {
		t.Errorf("meta cells = %v, want cell1 and cell2", meta.Cells)
	}
	if !reflect.DeepEqual(meta.Bulk, []string{"bulk1"}) {
		t.Errorf("meta bulk = %v, want bulk1", meta.Bulk)
	}
	if meta.DNAWlen != 5 || meta.CpGWlen != 2 || meta.ChunkSize != 3 || meta.Seed != 1 {
		t.Errorf("meta = %+v, want recorded build parameters", meta)
	}
	if meta.CreatedAt.IsZero() {
		t.Error("meta CreatedAt not set")
	}

	sum, err := store.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	FormatSummary(&buf, sum)
	for _, line := range []string{
		"cells: 2 single-cell, 1 bulk",
		"inputs: dna windows (wlen 5), cpg neighbours (wlen 2)",
		"stats: mean, cov",
		"window stats: mean (wlen 11)",
		"chromosome 1: 4 sites in 2 chunks",
		"total: 4 sites in 2 chunks",
	} {
		if !strings.Contains(buf.String(), line) {
			t.Errorf("summary missing %q:\n%s", line, buf.String())
		}
	}
}

func TestMakeSkipsLowCoverage(t *testing.T) {
	dir := t.TempDir()
	cell1 := writeData(t, dir, "cell1.dcpg", "1\t2\t1\n1\t12\t1\n2\t5\t1\n")
	cell2 := writeData(t, dir, "cell2.dcpg", "1\t2\t0\n")
	var out bytes.Buffer

	res, err := Make(context.Background(), MakeOptions{
		CpGProfiles: []string{cell1, cell2},
		CpGCov:      2,
		OutDir:      filepath.Join(dir, "out"),
	}, &out)
	if err != nil {
		t.Fatal(err)
	}

	if res.Chromos != 1 || res.Sites != 1 {
		t.Errorf("result = %+v, want 1 chromosome with 1 site", res)
	}
	if !strings.Contains(out.String(), "skipped: chromosome 2 (no sites with coverage >= 2)") {
		t.Errorf("output missing skip line:\n%s", out.String())
	}
}

func TestMakeAllBelowCoverage(t *testing.T) {
	dir := t.TempDir()
	cell1 := writeData(t, dir, "cell1.dcpg", "1\t2\t1\n")
	cell2 := writeData(t, dir, "cell2.dcpg", "1\t12\t1\n")

	_, err := Make(context.Background(), MakeOptions{
		CpGProfiles: []string{cell1, cell2},
		CpGCov:      2,
		OutDir:      filepath.Join(dir, "out"),
	}, io.Discard)
	if err == nil {
		t.Fatal("expected error when every chromosome is skipped")
	}
	if !strings.Contains(err.Error(), "no sites with coverage >= 2") {
		t.Errorf("error = %v, want coverage message", err)
	}
}

func TestMakeMissingChromosomeFasta(t *testing.T) {
	dir := t.TempDir()
	dnaDir := filepath.Join(dir, "dna")
	if err := os.MkdirAll(dnaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeData(t, dnaDir, "1.fa", ">1\n"+strings.Repeat("ACGTT", 4)+"\n")
	cell1 := writeData(t, dir, "cell1.dcpg", "1\t2\t1\n2\t7\t1\n")

	_, err := Make(context.Background(), MakeOptions{
		CpGProfiles: []string{cell1},
		DNADb:       dnaDir,
		DNAWlen:     5,
		OutDir:      filepath.Join(dir, "out"),
	}, io.Discard)
	if err == nil {
		t.Fatal("expected error for chromosome missing from the DNA database")
	}
	if !strings.Contains(err.Error(), "no FASTA file for chromosome 2") {
		t.Errorf("error = %v, want missing FASTA message", err)
	}
}

func TestMakePositionTableOnly(t *testing.T) {
	dir := t.TempDir()
	dnaDir := filepath.Join(dir, "dna")
	if err := os.MkdirAll(dnaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeData(t, dnaDir, "1.fa", ">1\n"+strings.Repeat("ACGTT", 8)+"\n")
	posFile := writeData(t, dir, "pos.tsv", "1\t2\n1\t7\n")
	outDir := filepath.Join(dir, "out")
	var out bytes.Buffer

	res, err := Make(context.Background(), MakeOptions{
		PosFile: posFile,
		DNADb:   dnaDir,
		DNAWlen: 5,
		OutDir:  outDir,
	}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if res.Sites != 2 {
		t.Errorf("sites = %d, want 2", res.Sites)
	}

	store, err := Open(outDir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	chunk, err := store.ReadChunk(context.Background(), "c1_000000-000002")
	if err != nil {
		t.Fatal(err)
	}
	site := chunk.Sites[0]
	if len(site.DNA) != 5 {
		t.Errorf("dna window length = %d, want 5", len(site.DNA))
	}
	if site.CpG != nil || site.Knn != nil || site.Stats != nil {
		t.Errorf("position-only site carries cell data: %+v", site)
	}
}

func TestMakeMaxSamples(t *testing.T) {
	dir := t.TempDir()
	cell1 := writeData(t, dir, "cell1.dcpg", "1\t2\t1\n1\t12\t1\n1\t22\t1\n")

	res, err := Make(context.Background(), MakeOptions{
		CpGProfiles: []string{cell1},
		MaxSamples:  2,
		OutDir:      filepath.Join(dir, "out"),
	}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if res.Sites != 2 {
		t.Errorf("sites = %d, want 2", res.Sites)
	}
}

func TestMakeEmptyAfterFilters(t *testing.T) {
	dir := t.TempDir()
	cell1 := writeData(t, dir, "cell1.dcpg", "2\t5\t1\n")

	_, err := Make(context.Background(), MakeOptions{
		CpGProfiles: []string{cell1},
		Chromos:     []string{"1"},
		OutDir:      filepath.Join(dir, "out"),
	}, io.Discard)
	if err == nil {
		t.Fatal("expected error for empty position table")
	}
	if !strings.Contains(err.Error(), "position table is empty after filters") {
		t.Errorf("error = %v, want empty table message", err)
	}
}

func TestMakeSeedDeterminism(t *testing.T) {
	fix := newMakeFixture(t)
	ctx := context.Background()

	read := func(outDir string) []int8 {
		t.Helper()
		if _, err := Make(ctx, MakeOptions{
			CpGProfiles: []string{fix.cell1, fix.cell2},
			DNADb:       fix.dnaDir,
			DNAWlen:     5,
			Seed:        7,
			OutDir:      outDir,
		}, io.Discard); err != nil {
			t.Fatal(err)
		}
		store, err := Open(outDir)
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		chunk, err := store.ReadChunk(ctx, "c1_000000-000004")
		if err != nil {
			t.Fatal(err)
		}
		return chunk.Sites[0].DNA
	}

	a := read(filepath.Join(t.TempDir(), "a"))
	b := read(filepath.Join(t.TempDir(), "b"))
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different windows: %v vs %v", a, b)
	}
}

func TestMakeValidation(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts MakeOptions
		want string
	}{
		{"no inputs", MakeOptions{}, "cpg profiles or a position table are required"},
		{"posfile without dna", MakeOptions{PosFile: "pos.tsv"}, "nothing to extract"},
		{"even dna wlen", MakeOptions{CpGProfiles: []string{"c.dcpg"}, DNADb: "dna", DNAWlen: 4}, "not odd"},
		{"odd cpg wlen", MakeOptions{CpGProfiles: []string{"c.dcpg"}, CpGWlen: 3}, "not even"},
		{"knn without cells", MakeOptions{PosFile: "pos.tsv", DNADb: "dna", CpGWlen: 2},
			"cpg neighbours require single-cell profiles"},
		{"win stats without knn", MakeOptions{CpGProfiles: []string{"c.dcpg"}, WinStats: []string{"mean"}},
			"window statistics require a cpg window width"},
		{"unknown stat", MakeOptions{CpGProfiles: []string{"c.dcpg"}, Stats: []string{"median"}},
			"unknown statistic"},
	} {
		_, err := Make(context.Background(), tc.opts, io.Discard)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error = %v, want %q", tc.name, err, tc.want)
		}
	}
}
