// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cpgzoo/internal/catalog"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Work with the model catalogue (list, show, render, import, cite)",
	Long: `Catalog manages the YAML catalogue of pre-trained models. Use
subcommands to list and inspect entries, render the documentation page,
import a hand-maintained page back into YAML, or emit citations.`,
}

// --- list subcommand ---

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued model modules, optionally filtered",
	Long: `List prints one row per downloadable module, in catalogue page order.
Filters narrow the listing by protocol, publication, genome assembly, or
module kind; they combine with AND semantics.`,
	RunE: runCatalogList,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}

	protocol, _ := cmd.Flags().GetString("protocol")
	publication, _ := cmd.Flags().GetString("publication")
	genome, _ := cmd.Flags().GetString("genome")
	kind, _ := cmd.Flags().GetString("kind")

	entries := catalog.List(cat, catalog.Filter{
		Protocol:    types.Protocol(protocol),
		Publication: publication,
		Genome:      genome,
		Kind:        types.ModuleKind(kind),
	})

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatListOutput(entries, jsonOutput)
}

// listRow is the JSON shape of one listing row.
type listRow struct {
	Name        string `json:"name"`
	Module      string `json:"module"`
	Genome      string `json:"genome"`
	Cells       int    `json:"cells"`
	Publication string `json:"publication"`
	Year        int    `json:"year"`
	URL         string `json:"url"`
}

func formatListOutput(entries []catalog.Entry, jsonOutput bool) error {
	if jsonOutput {
		rows := make([]listRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, listRow{
				Name:        e.Name,
				Module:      string(e.Archive.Kind),
				Genome:      e.Dataset.Genome,
				Cells:       e.Dataset.Cells,
				Publication: e.Publication.ID,
				Year:        e.Publication.Year,
				URL:         e.Archive.URL,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(entries) == 0 {
		fmt.Println("No modules match the filter.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-34s  %-6s  %-8s  %5s  %s\n",
		"Name", "Module", "Genome", "Cells", "Publication")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))

	for _, e := range entries {
		fmt.Fprintf(os.Stdout, "%-34s  %-6s  %-8s  %5d  %s (%d)\n",
			e.Name, e.Archive.Kind, e.Dataset.Genome, e.Dataset.Cells,
			e.Publication.ID, e.Publication.Year)
	}

	fmt.Fprintf(os.Stdout, "\n%d modules\n", len(entries))
	return nil
}

// --- show subcommand ---

var catalogShowCmd = &cobra.Command{
	Use:   "show <model>",
	Short: "Show one model with its publication and archives",
	Long: `Show resolves a model name (e.g. Smallwood2014_serum or
Smallwood2014_serum_dna) and prints the publication, dataset, and the
archives the name selects. Unknown names list nearby catalogue entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogShow,
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}

	sel, err := catalog.Resolve(cat, args[0])
	if err != nil {
		return err
	}

	pub, ds := sel.Publication, sel.Dataset
	fmt.Fprintf(os.Stdout, "Model:       %s\n", args[0])
	fmt.Fprintf(os.Stdout, "Publication: %s (%d, %s)\n", pub.ID, pub.Year, pub.Venue)
	if pub.Title != "" {
		fmt.Fprintf(os.Stdout, "Title:       %s\n", pub.Title)
	}
	if pub.DOI != "" {
		fmt.Fprintf(os.Stdout, "DOI:         %s\n", pub.DOI)
	}
	fmt.Fprintf(os.Stdout, "Protocol:    %s\n", pub.Protocol)
	fmt.Fprintf(os.Stdout, "Dataset:     %s (%s): %d cells, genome %s\n",
		ds.Label, ds.Name, ds.Cells, ds.Genome)
	if ds.Description != "" {
		fmt.Fprintf(os.Stdout, "Description: %s\n", ds.Description)
	}

	fmt.Fprintln(os.Stdout, "Archives:")
	for _, a := range sel.Archives {
		line := fmt.Sprintf("  %-6s %s", a.Kind, a.URL)
		if a.Size > 0 {
			line += fmt.Sprintf("  (%.1f MB)", float64(a.Size)/(1<<20))
		}
		fmt.Fprintln(os.Stdout, line)
		if a.SHA256 != "" {
			fmt.Fprintf(os.Stdout, "         sha256 %s\n", a.SHA256)
		}
	}
	return nil
}

// --- render subcommand ---

var catalogRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the catalogue to the Markdown documentation page",
	Long: `Render regenerates the documentation page from the catalogue. The
page carries YAML frontmatter with the catalogue revision, one section
per publication, and one link list per dataset. Rendering is
deterministic: the same catalogue always produces the same page.`,
	RunE: runCatalogRender,
}

func runCatalogRender(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = configDefault("catalog.doc_path", catalog.DefaultDocPath)
	}

	if err := catalog.WriteDoc(cat, out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Rendered %d publications and %d datasets to %s\n",
		len(cat.Publications), len(cat.Datasets), out)
	return nil
}

// --- import subcommand ---

var catalogImportCmd = &cobra.Command{
	Use:   "import <page.md>",
	Short: "Import a hand-maintained documentation page into catalogue YAML",
	Long: `Import parses a Markdown catalogue page and converts it back into
catalogue YAML. Fields the page cannot supply (author lists, checksums,
archive sizes) are reported as warnings for the curator to fill in, not
errors, so partially recovered catalogues can still be written out.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogImport,
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	doc, err := catalog.ImportDocument(src)
	if err != nil {
		return err
	}

	cat, gaps, err := catalog.ToCatalog(doc)
	if err != nil {
		return err
	}
	for _, g := range gaps {
		fmt.Fprintf(os.Stderr, "warning: %s\n", g)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = configDefault("catalog.path", catalog.DefaultPath)
	}

	data, err := yaml.Marshal(cat)
	if err != nil {
		return fmt.Errorf("encoding catalogue: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing catalogue: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Imported %d publications and %d datasets to %s\n",
		len(cat.Publications), len(cat.Datasets), out)
	return nil
}

// --- cite subcommand ---

var catalogCiteCmd = &cobra.Command{
	Use:   "cite",
	Short: "Emit citations for the catalogued publications",
	Long: `Cite prints machine-readable citations for every publication in the
catalogue, as a CSL-YAML list (consumable by Pandoc) or BibTeX.`,
	RunE: runCatalogCite,
}

func runCatalogCite(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "csl", "":
		return catalog.FormatCSL(cat, os.Stdout)
	case "bibtex":
		fmt.Fprint(os.Stdout, catalog.GenerateBibTeX(cat))
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use csl or bibtex", format)
	}
}

// --- arch subcommand ---

var catalogArchCmd = &cobra.Command{
	Use:   "arch",
	Short: "Show the published checkpoint architectures",
	Long: `Arch prints the catalogue's architecture table: the named network
shapes the checkpoints were trained with, and which module kinds each
one applies to.`,
	RunE: runCatalogArch,
}

func runCatalogArch(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	catalog.FormatArchitectures(cat, os.Stdout)
	return nil
}

// --- shared helpers ---

// loadCatalog reads the catalogue named by the --catalog flag, falling
// back to the configured path.
func loadCatalog(cmd *cobra.Command) (*types.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		path = configDefault("catalog.path", catalog.DefaultPath)
	}
	return catalog.Load(path)
}

func init() {
	// Shared flag on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().String("catalog", "", "catalogue file (default catalog/catalog.yaml)")

	// List flags.
	catalogListCmd.Flags().String("protocol", "", "filter by sequencing protocol: scBS-Seq or scRRBS-Seq")
	catalogListCmd.Flags().String("publication", "", "filter by publication ID")
	catalogListCmd.Flags().String("genome", "", "filter by genome assembly")
	catalogListCmd.Flags().String("kind", "", "filter by module kind: dna, cpg, or joint")
	catalogListCmd.Flags().Bool("json", false, "output rows as JSON")

	// Render flags.
	catalogRenderCmd.Flags().String("out", "", "output page path (default docs/models.md)")

	// Import flags.
	catalogImportCmd.Flags().String("out", "", "output catalogue path (default catalog/catalog.yaml)")

	// Cite flags.
	catalogCiteCmd.Flags().String("format", "csl", "citation format: csl or bibtex")

	// Wire subcommands.
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogRenderCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogCiteCmd)
	catalogCmd.AddCommand(catalogArchCmd)

	rootCmd.AddCommand(catalogCmd)
}
