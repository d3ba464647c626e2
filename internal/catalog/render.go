// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

// docMeta is the frontmatter written at the top of the rendered page.
// Field order fixes the output byte layout (R3.1).
type docMeta struct {
	Title     string `yaml:"title"`
	Revision  int    `yaml:"revision"`
	Generator string `yaml:"generator"`
}

// generatorName appears in the page frontmatter so hand edits to a rendered
// page are recognizable in review.
const generatorName = "cpgzoo catalog render"

// Render produces the documentation page for a catalogue: one section per
// publication with its literal citation, one subsection per dataset with
// the three module links. Output is a deterministic function of the
// catalogue. Per R3.1-R3.3.
func Render(cat *types.Catalog) ([]byte, error) {
	var b strings.Builder

	meta, err := yaml.Marshal(docMeta{
		Title:     cat.DocTitle,
		Revision:  cat.Revision,
		Generator: generatorName,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering frontmatter: %w", err)
	}
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", cat.DocTitle)
	if cat.Intro != "" {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(cat.Intro))
	}

	for _, p := range cat.Publications {
		fmt.Fprintf(&b, "## %s (%s)\n\n", HeadingFor(p), p.Protocol)
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(p.Citation))

		for _, d := range DatasetsOf(cat, p.ID) {
			fmt.Fprintf(&b, "### %s\n\n", d.Label)
			fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(d.Description))
			fmt.Fprintf(&b, "Model: `%s`.\n\n", ModelName(p.ID, d.Name, ""))
			for _, k := range types.ModuleKinds() {
				a, ok := archiveOf(d, k)
				if !ok {
					return nil, fmt.Errorf("dataset %s: missing %s archive", d.Name, k)
				}
				fmt.Fprintf(&b, "* [%s](%s)\n", LinkLabel(k), a.URL)
			}
			b.WriteString("\n")
		}
	}

	// Single trailing newline regardless of what came before.
	out := strings.TrimRight(b.String(), "\n") + "\n"
	return []byte(out), nil
}

// WriteDoc renders the catalogue page to path, creating parent directories
// as needed. Per R3.4.
func WriteDoc(cat *types.Catalog, path string) error {
	data, err := Render(cat)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating doc directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// HeadingFor returns the display heading for a publication, e.g.
// "Smallwood et al. (2014)". Re-importing derives the publication ID from
// this form, so the family name must stay first.
func HeadingFor(p types.Publication) string {
	family := FamilyName(firstAuthor(p))
	if len(p.Authors) > 1 {
		return fmt.Sprintf("%s et al. (%d)", family, p.Year)
	}
	return fmt.Sprintf("%s (%d)", family, p.Year)
}

func firstAuthor(p types.Publication) string {
	if len(p.Authors) == 0 {
		return p.ID
	}
	return p.Authors[0]
}

// FamilyName returns the last space-separated token of a full name.
func FamilyName(name string) string {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return name
	}
	return name[idx+1:]
}

// LinkLabel returns the page link text for a module kind.
func LinkLabel(k types.ModuleKind) string {
	switch k {
	case types.ModuleDNA:
		return "DNA module"
	case types.ModuleCpG:
		return "CpG module"
	case types.ModuleJoint:
		return "Joint module"
	}
	return string(k)
}

// FormatArchitectures writes the architecture registry as a table to w.
// The registry is metadata about the published checkpoints; it is not part
// of the rendered page.
func FormatArchitectures(cat *types.Catalog, w io.Writer) {
	if len(cat.Architectures) == 0 {
		fmt.Fprintln(w, "No architectures recorded.")
		return
	}

	fmt.Fprintf(w, "%-14s  %-6s  %12s  %s\n", "Name", "Module", "Parameters", "Description")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, a := range cat.Architectures {
		fmt.Fprintf(w, "%-14s  %-6s  %12s  %s\n", a.Name, a.Module, groupedInt(a.Params), a.Description)
	}
}

// groupedInt formats an integer with comma thousand separators, matching
// how parameter counts are published.
func groupedInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	return s + "," + strings.Join(parts, ",")
}
