package catalog

import (
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
// Implements: prd001-catalog R5.1.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes the catalogue's publications as a CSL-YAML list to w.
func FormatCSL(cat *types.Catalog, w io.Writer) error {
	items := make([]CSLItem, len(cat.Publications))
	for i, p := range cat.Publications {
		items[i] = toCSLItem(p)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem converts a Publication to a CSLItem.
func toCSLItem(p types.Publication) CSLItem {
	item := CSLItem{
		ID:             p.ID,
		Type:           "article-journal",
		Title:          p.Title,
		ContainerTitle: p.Venue,
		DOI:            p.DOI,
	}

	for _, a := range p.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	if p.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{p.Year}}}
	}

	return item
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}

// GenerateBibTeX produces BibTeX content for the catalogue's publications,
// keyed by publication ID. Per R5.2.
func GenerateBibTeX(cat *types.Catalog) string {
	var b strings.Builder
	for _, p := range cat.Publications {
		fmt.Fprintf(&b, "@article{%s,\n", p.ID)
		fmt.Fprintf(&b, "  title = {%s},\n", p.Title)
		if len(p.Authors) > 0 {
			fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(p.Authors, " and "))
		}
		if p.Year > 0 {
			fmt.Fprintf(&b, "  year = {%d},\n", p.Year)
		}
		if p.Venue != "" {
			fmt.Fprintf(&b, "  journal = {%s},\n", p.Venue)
		}
		if p.DOI != "" {
			fmt.Fprintf(&b, "  doi = {%s},\n", p.DOI)
		}
		fmt.Fprintf(&b, "}\n\n")
	}
	return b.String()
}
