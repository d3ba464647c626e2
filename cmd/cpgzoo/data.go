// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cpgzoo/internal/dataset"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Prepare model-ready datasets from methylation profiles",
	Long: `Data builds the chunked input datasets the models consume. Use
subcommands to extract features from single-cell methylation profiles
and a genome database, or to inspect an existing dataset.`,
}

// --- make subcommand ---

var dataMakeCmd = &cobra.Command{
	Use:   "make",
	Short: "Extract per-site features into a chunked dataset",
	Long: `Make reads per-cell methylation profiles (dcpg or bedGraph format,
optionally gzipped), takes the union of observed CpG sites, and writes
per-site features in chunks: DNA sequence windows from a per-chromosome
FASTA database, neighbouring CpG states and distances per cell,
cross-cell statistics, and annotation overlaps.

Sites covered by fewer cells than --cpg-cov are dropped; chromosomes
with no remaining sites are skipped.`,
	RunE: runDataMake,
}

func runDataMake(cmd *cobra.Command, args []string) error {
	cpg, _ := cmd.Flags().GetStringSlice("cpg")
	bulk, _ := cmd.Flags().GetStringSlice("bulk")
	positions, _ := cmd.Flags().GetString("positions")
	dnaDb, _ := cmd.Flags().GetString("dna-db")
	stats, _ := cmd.Flags().GetStringSlice("stats")
	winStats, _ := cmd.Flags().GetStringSlice("win-stats")
	winStatsWlen, _ := cmd.Flags().GetIntSlice("win-stats-wlen")
	annos, _ := cmd.Flags().GetStringSlice("anno")
	chromos, _ := cmd.Flags().GetStringSlice("chromo")
	maxSamples, _ := cmd.Flags().GetInt("max-samples")
	statsCov, _ := cmd.Flags().GetInt("stats-cov")
	seed, _ := cmd.Flags().GetInt64("seed")

	dnaWlen, _ := cmd.Flags().GetInt("dna-wlen")
	if dnaWlen == 0 {
		dnaWlen = configDefaultInt("data.dna_wlen", 0)
	}
	cpgWlen, _ := cmd.Flags().GetInt("cpg-wlen")
	if cpgWlen == 0 {
		cpgWlen = configDefaultInt("data.cpg_wlen", 0)
	}
	cpgCov, _ := cmd.Flags().GetInt("cpg-cov")
	if cpgCov == 0 {
		cpgCov = configDefaultInt("data.min_coverage", 0)
	}
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	if chunkSize == 0 {
		chunkSize = configDefaultInt("data.chunk_size", 0)
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = configDefault("data.out_dir", "data")
	}

	opts := dataset.MakeOptions{
		CpGProfiles:  cpg,
		BulkProfiles: bulk,
		PosFile:      positions,
		DNADb:        dnaDb,
		DNAWlen:      dnaWlen,
		CpGWlen:      cpgWlen,
		CpGCov:       cpgCov,
		Stats:        stats,
		StatsCov:     statsCov,
		WinStats:     winStats,
		WinStatsWlen: winStatsWlen,
		AnnoFiles:    annos,
		Chromos:      chromos,
		MaxSamples:   maxSamples,
		ChunkSize:    chunkSize,
		Seed:         seed,
		OutDir:       out,
	}

	_, err := dataset.Make(context.Background(), opts, os.Stdout)
	return err
}

// --- inspect subcommand ---

var dataInspectCmd = &cobra.Command{
	Use:   "inspect [dir]",
	Short: "Summarize an existing dataset",
	Long: `Inspect opens a dataset directory and prints its parameters, cell
roster, and per-chromosome chunk counts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDataInspect,
}

func runDataInspect(cmd *cobra.Command, args []string) error {
	dir := configDefault("data.out_dir", "data")
	if len(args) > 0 {
		dir = args[0]
	}

	store, err := dataset.Open(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.Summary(context.Background())
	if err != nil {
		return err
	}
	dataset.FormatSummary(os.Stdout, sum)
	return nil
}

func init() {
	// Make flags.
	dataMakeCmd.Flags().StringSlice("cpg", nil, "single-cell methylation profiles (dcpg or bedGraph, optionally gzipped)")
	dataMakeCmd.Flags().StringSlice("bulk", nil, "bulk methylation profiles")
	dataMakeCmd.Flags().String("positions", "", "explicit position table (default: union of profile positions)")
	dataMakeCmd.Flags().String("dna-db", "", "directory of per-chromosome FASTA files")
	dataMakeCmd.Flags().Int("dna-wlen", 0, "DNA window length, odd (default 1001)")
	dataMakeCmd.Flags().Int("cpg-wlen", 0, "CpG neighbours per site, even (0 = no neighbours)")
	dataMakeCmd.Flags().Int("cpg-cov", 0, "keep sites observed in at least this many cells (default 1)")
	dataMakeCmd.Flags().StringSlice("stats", nil, "cross-cell statistics per site (mean, mode, var, cat_var, cat2_var, entropy, diff, cov)")
	dataMakeCmd.Flags().Int("stats-cov", 0, "minimum coverage for statistics (default 1)")
	dataMakeCmd.Flags().StringSlice("win-stats", nil, "windowed statistics per site")
	dataMakeCmd.Flags().IntSlice("win-stats-wlen", nil, "window lengths for --win-stats (default 3001)")
	dataMakeCmd.Flags().StringSlice("anno", nil, "BED-like annotation files")
	dataMakeCmd.Flags().StringSlice("chromo", nil, "restrict to these chromosomes")
	dataMakeCmd.Flags().Int("max-samples", 0, "cap on sites per run (0 = no cap)")
	dataMakeCmd.Flags().Int("chunk-size", 0, "sites per output chunk (default 32768)")
	dataMakeCmd.Flags().Int64("seed", 0, "random seed for ambiguous bases in DNA windows")
	dataMakeCmd.Flags().String("out", "", "output dataset directory (default data)")

	// Wire subcommands.
	dataCmd.AddCommand(dataMakeCmd)
	dataCmd.AddCommand(dataInspectCmd)

	rootCmd.AddCommand(dataCmd)
}
