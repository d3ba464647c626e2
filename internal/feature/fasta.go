// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feature extracts model inputs and targets from methylation
// profiles: DNA sequence windows, CpG neighbour context, per-site
// statistics, and annotation flags.
// Implements: prd005-dataprep (R3-R5);
//
//	docs/ARCHITECTURE § Data Preparation.
package feature

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/cpgzoo/internal/profile"
)

// ReadChromo loads one chromosome's DNA sequence from a directory of
// per-chromosome FASTA files, plain or gzipped. Accepted names are
// "<c>.fa", "chr<c>.fa", and the Ensembl style "*.chromosome.<c>.fa",
// each optionally with a .gz suffix (R3.1). The sequence is returned
// uppercased.
func ReadChromo(dbDir, chromo string) (string, error) {
	path, err := chromoFile(dbDir, chromo)
	if err != nil {
		return "", err
	}

	r, err := profile.OpenData(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()

	var sb strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, ">") {
			continue
		}
		sb.WriteString(strings.TrimSpace(line))
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.ToUpper(sb.String()), nil
}

func chromoFile(dbDir, chromo string) (string, error) {
	candidates := []string{
		chromo + ".fa",
		chromo + ".fa.gz",
		"chr" + chromo + ".fa",
		"chr" + chromo + ".fa.gz",
	}
	for _, name := range candidates {
		path := filepath.Join(dbDir, name)
		if fileExists(path) {
			return path, nil
		}
	}

	for _, pattern := range []string{
		"*.chromosome." + chromo + ".fa",
		"*.chromosome." + chromo + ".fa.gz",
	} {
		matches, err := filepath.Glob(filepath.Join(dbDir, pattern))
		if err == nil && len(matches) > 0 {
			return matches[0], nil
		}
	}

	return "", fmt.Errorf("no FASTA file for chromosome %s in %s", chromo, dbDir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
