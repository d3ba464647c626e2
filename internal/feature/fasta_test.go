package feature

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestFile writes one data file into dir. Names ending in .gz are
// gzip-compressed.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if !strings.HasSuffix(name, ".gz") {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeFastaDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeTestFile(t, dir, name, content)
	}
	return dir
}

func TestReadChromoNamingVariants(t *testing.T) {
	fasta := ">1 dna:chromosome\nACGTACGT\n"
	for _, name := range []string{
		"1.fa",
		"1.fa.gz",
		"chr1.fa",
		"chr1.fa.gz",
		"Mus_musculus.GRCm38.dna.chromosome.1.fa",
		"Mus_musculus.GRCm38.dna.chromosome.1.fa.gz",
	} {
		dir := writeFastaDir(t, map[string]string{name: fasta})
		seq, err := ReadChromo(dir, "1")
		if err != nil {
			t.Fatalf("%s: ReadChromo: %v", name, err)
		}
		if seq != "ACGTACGT" {
			t.Errorf("%s: seq = %q, want ACGTACGT", name, seq)
		}
	}
}

func TestReadChromoJoinsAndUppercases(t *testing.T) {
	dir := writeFastaDir(t, map[string]string{
		"X.fa": ">X\nacgt\nnNcg\nTT\n",
	})
	seq, err := ReadChromo(dir, "X")
	if err != nil {
		t.Fatal(err)
	}
	if seq != "ACGTNNCGTT" {
		t.Errorf("seq = %q, want ACGTNNCGTT", seq)
	}
}

func TestReadChromoMissing(t *testing.T) {
	dir := writeFastaDir(t, map[string]string{"1.fa": ">1\nACGT\n"})
	_, err := ReadChromo(dir, "7")
	if err == nil {
		t.Fatal("expected error for missing chromosome")
	}
	if !strings.Contains(err.Error(), "no FASTA file for chromosome 7") {
		t.Errorf("error = %v, want mention of missing chromosome 7", err)
	}
}
