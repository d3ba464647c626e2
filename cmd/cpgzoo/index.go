// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cpgzoo/internal/index"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the catalogue index (store, retrieve, export, checks)",
	Long: `Index manages a local SQLite index built from the catalogue. Use
subcommands to ingest the catalogue, query it with full-text search,
export it, or review the recorded verification history.`,
}

// --- store subcommand ---

var indexStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest the catalogue into the index",
	Long: `Store reads the catalogue and ingests it into a SQLite database with
FTS5 indexing, then rewrites the export file. An unchanged catalogue is
detected by content hash and skipped.`,
	RunE: runIndexStore,
}

func runIndexStore(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}

	store, err := index.NewStore(indexConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Ingest(context.Background(), cat, os.Stdout)
	return err
}

// --- retrieve subcommand ---

var indexRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the index with full-text search and filters",
	Long: `Retrieve searches the index using FTS5 full-text search over model
names, labels, and descriptions, structured filters (protocol, genome,
kind, publication), or a combination of both. Full-text results are
ranked by relevance.`,
	RunE: runIndexRetrieve,
}

func runIndexRetrieve(cmd *cobra.Command, args []string) error {
	store, err := index.NewStore(indexConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --protocol, --genome, --kind, or --publication")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func formatRetrieveOutput(results []index.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-34s  %-8s  %5s  %-24s  %s\n",
		"Rank", "Name", "Genome", "Cells", "Label", "Publication")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 104))

	for i, r := range results {
		name := r.Name
		if len(name) > 34 {
			name = name[:31] + "..."
		}
		label := r.Label
		if len(label) > 24 {
			label = label[:21] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-34s  %-8s  %5d  %-24s  %s (%d)\n",
			i+1, name, r.Genome, r.Cells, label, r.PublicationID, r.Year)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index to YAML or JSON",
	Long: `Export writes the full index (or a filtered subset) to export.yaml or
export.json inside the index directory. Supports the same filter flags
as retrieve for partial exports.`,
	RunE: runIndexExport,
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg := indexConfigFromFlags(cmd)
	store, err := index.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.yaml\n", cfg.IndexDir)
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.json\n", cfg.IndexDir)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- checks subcommand ---

var indexChecksCmd = &cobra.Command{
	Use:   "checks",
	Short: "Show the recorded verification history",
	Long: `Checks prints verification results recorded by "verify --record",
newest first. With --failing it instead lists targets whose most recent
check failed, surfacing breakage that persists across runs.`,
	RunE: runIndexChecks,
}

func runIndexChecks(cmd *cobra.Command, args []string) error {
	store, err := index.NewStore(indexConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	var checks []index.StoredCheck
	if failing, _ := cmd.Flags().GetBool("failing"); failing {
		checks, err = store.FailingSince(context.Background())
	} else {
		limit, _ := cmd.Flags().GetInt("limit")
		checks, err = store.LatestChecks(context.Background(), limit)
	}
	if err != nil {
		return err
	}

	if len(checks) == 0 {
		fmt.Println("No recorded checks.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-19s  %-10s  %-5s  %-50s  %s\n",
		"Checked", "Check", "State", "Target", "Detail")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for _, c := range checks {
		target := c.Target
		if len(target) > 50 {
			target = target[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-19s  %-10s  %-5s  %-50s  %s\n",
			c.CheckedAt.Format("2006-01-02 15:04:05"), c.Name, c.Status, target, c.Detail)
	}

	fmt.Fprintf(os.Stdout, "\n%d checks\n", len(checks))
	return nil
}

// --- shared helpers ---

func indexConfigFromFlags(cmd *cobra.Command) types.IndexConfig {
	indexDir, _ := cmd.Flags().GetString("index-dir")
	if indexDir == "" {
		indexDir = configDefault("index.index_dir", "index")
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.IndexConfig{
		IndexDir:   indexDir,
		MaxResults: maxResults,
	}
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) index.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	protocol, _ := cmd.Flags().GetString("protocol")
	genome, _ := cmd.Flags().GetString("genome")
	kind, _ := cmd.Flags().GetString("kind")
	publication, _ := cmd.Flags().GetString("publication")
	limit, _ := cmd.Flags().GetInt("limit")

	return index.QueryOptions{
		Query:       queryText,
		Protocol:    types.Protocol(protocol),
		Genome:      genome,
		Kind:        types.ModuleKind(kind),
		Publication: publication,
		MaxResults:  limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	indexCmd.PersistentFlags().String("index-dir", "", "directory holding zoo.db (default index)")
	indexCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")
	indexCmd.PersistentFlags().String("catalog", "", "catalogue file (default catalog/catalog.yaml)")

	// Retrieve flags.
	indexRetrieveCmd.Flags().String("query", "", "full-text search query")
	indexRetrieveCmd.Flags().String("protocol", "", "filter by sequencing protocol: scBS-Seq or scRRBS-Seq")
	indexRetrieveCmd.Flags().String("genome", "", "filter by genome assembly")
	indexRetrieveCmd.Flags().String("kind", "", "filter by module kind: dna, cpg, or joint")
	indexRetrieveCmd.Flags().String("publication", "", "filter by publication ID")
	indexRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	indexRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	indexExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	indexExportCmd.Flags().String("protocol", "", "filter by protocol for partial export")
	indexExportCmd.Flags().String("genome", "", "filter by genome for partial export")
	indexExportCmd.Flags().String("kind", "", "filter by module kind for partial export")
	indexExportCmd.Flags().String("publication", "", "filter by publication ID for partial export")
	indexExportCmd.Flags().Int("limit", 0, "maximum entries to export (0 = all)")

	// Checks flags.
	indexChecksCmd.Flags().Bool("failing", false, "list targets whose most recent check failed")
	indexChecksCmd.Flags().Int("limit", 0, "maximum checks to show (0 = use default)")

	// Wire subcommands.
	indexCmd.AddCommand(indexStoreCmd)
	indexCmd.AddCommand(indexRetrieveCmd)
	indexCmd.AddCommand(indexExportCmd)
	indexCmd.AddCommand(indexChecksCmd)

	rootCmd.AddCommand(indexCmd)
}
