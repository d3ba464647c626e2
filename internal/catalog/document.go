// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

// PageMeta is the YAML frontmatter of a models page. Hand-maintained pages
// may omit it entirely.
type PageMeta struct {
	Title     string         `yaml:"title"`
	Revision  int            `yaml:"revision"`
	Generator string         `yaml:"generator"`
	Custom    map[string]any `yaml:",inline"`
}

// PageLink is one archive link inside a dataset subsection.
type PageLink struct {
	Text string
	URL  string
}

// PageDataset is one level-3 subsection: a cell population with its module
// links.
type PageDataset struct {
	Label       string
	ModelName   string
	Description string
	Links       []PageLink
}

// PageSection is one level-2 section: a publication heading with its
// citation block and dataset subsections.
type PageSection struct {
	// Heading is the section heading with any protocol suffix removed.
	Heading string

	// Protocol is the trailing parenthesised heading suffix, verbatim.
	// Empty when the heading carries none.
	Protocol string

	Citation string
	Datasets []PageDataset
}

// PageDoc is the structural form of a models page.
type PageDoc struct {
	Meta     PageMeta
	Title    string
	Intro    string
	Sections []PageSection
}

// protocolSuffix captures a trailing parenthesised token group on a section
// heading, e.g. "Smallwood et al. (2014) (scBS-Seq)".
var protocolSuffix = regexp.MustCompile(`^(.*\S)\s+\(([^()]+)\)$`)

// modelLine matches the model name paragraph under a dataset heading. Code
// span backticks are gone by the time the AST text is extracted.
var modelLine = regexp.MustCompile(`^Model: ([A-Za-z0-9][A-Za-z0-9_-]*)\.?$`)

// ImportDocument parses a models page into its structural form. The walk
// relies only on heading levels, paragraphs, and link lists, so
// hand-maintained pages parse as long as they keep the documented shape.
// Per R4.1-R4.2.
func ImportDocument(src []byte) (*PageDoc, error) {
	var meta PageMeta
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}

	root := goldmark.New().Parser().Parse(text.NewReader(body))

	doc := &PageDoc{Meta: meta}
	var section *PageSection
	var dataset *PageDataset

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			switch node.Level {
			case 1:
				if doc.Title == "" {
					doc.Title = textOf(node, body)
				}
			case 2:
				doc.Sections = append(doc.Sections, parseSectionHeading(textOf(node, body)))
				section = &doc.Sections[len(doc.Sections)-1]
				dataset = nil
			case 3:
				if section == nil {
					return nil, fmt.Errorf("dataset heading %q before any publication section", textOf(node, body))
				}
				section.Datasets = append(section.Datasets, PageDataset{Label: textOf(node, body)})
				dataset = &section.Datasets[len(section.Datasets)-1]
			}

		case *ast.Paragraph:
			txt := textOf(node, body)
			switch {
			case dataset != nil:
				if m := modelLine.FindStringSubmatch(txt); m != nil {
					dataset.ModelName = m[1]
					continue
				}
				dataset.Description = joinBlock(dataset.Description, txt)
			case section != nil:
				section.Citation = joinBlock(section.Citation, txt)
			default:
				doc.Intro = joinBlock(doc.Intro, txt)
			}

		case *ast.List:
			if dataset == nil {
				continue
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				link := findLink(item)
				if link == nil {
					continue
				}
				dataset.Links = append(dataset.Links, PageLink{
					Text: textOf(link, body),
					URL:  string(link.Destination),
				})
			}
		}
	}

	if doc.Title == "" && doc.Meta.Title != "" {
		doc.Title = doc.Meta.Title
	}
	return doc, nil
}

// parseSectionHeading splits a level-2 heading into display text and the
// trailing protocol suffix. An all-digit suffix is the publication year,
// not a protocol ("Hou et al. (2016)" carries none).
func parseSectionHeading(heading string) PageSection {
	if m := protocolSuffix.FindStringSubmatch(heading); m != nil && !allDigits(m[2]) {
		return PageSection{Heading: m[1], Protocol: m[2]}
	}
	return PageSection{Heading: heading}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// textOf extracts the plain text of a node, joining soft-wrapped lines with
// a space and dropping inline markup.
func textOf(n ast.Node, src []byte) string {
	var b strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// findLink returns the first link node under n, or nil.
func findLink(n ast.Node) *ast.Link {
	var found *ast.Link
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if l, ok := c.(*ast.Link); ok {
			found = l
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

func joinBlock(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + "\n\n" + next
}

// familyYearHeading recovers the publication ID parts from a display
// heading such as "Smallwood et al. (2014)" or "Hou (2016)".
var familyYearHeading = regexp.MustCompile(`^(\S+)(?:\s+et al\.)?\s+\((\d{4})\)$`)

// doiInText finds the first DOI inside a citation block.
var doiInText = regexp.MustCompile(`10\.\d{4,9}/[^\s"'<>]+`)

// quotedTitle captures a double-quoted title inside a citation block.
var quotedTitle = regexp.MustCompile(`"([^"]+)"`)

// leadingCount captures a leading integer in a dataset description
// ("18 serum-cultured ..." gives 18).
var leadingCount = regexp.MustCompile(`^(\d+)\b`)

// trailingGenome captures a trailing parenthesised assembly name in a
// dataset description ("... stem cells (mm10)." gives mm10).
var trailingGenome = regexp.MustCompile(`\(([A-Za-z0-9]+)\)\.?\s*$`)

// ToCatalog converts a parsed page into catalogue form, recovering what the
// page states outright and deriving the rest heuristically. Gaps the page
// cannot supply (author lists, checksums) are reported as warnings, not
// errors, so hand-maintained pages can be lifted into catalog.yaml and then
// completed by the curator. Per R4.3.
func ToCatalog(doc *PageDoc) (*types.Catalog, []string, error) {
	cat := &types.Catalog{
		Revision: doc.Meta.Revision,
		DocTitle: doc.Title,
		Intro:    doc.Intro,
	}
	var gaps []string
	if cat.Revision == 0 {
		cat.Revision = 1
		gaps = append(gaps, "page has no revision; defaulting to 1")
	}

	for si, s := range doc.Sections {
		if s.Protocol == "" && len(s.Datasets) == 0 {
			// Not a publication section (e.g. a prose appendix); skip it.
			continue
		}

		pub := types.Publication{
			Protocol: types.Protocol(s.Protocol),
			Citation: s.Citation,
		}

		if m := familyYearHeading.FindStringSubmatch(s.Heading); m != nil {
			pub.ID = m[1] + m[2]
			pub.Year, _ = strconv.Atoi(m[2])
			pub.Authors = []string{m[1]}
			gaps = append(gaps, fmt.Sprintf("publication %s: full author list not recoverable from page", pub.ID))
		} else {
			return nil, gaps, fmt.Errorf("section %d: heading %q is not in <Family> et al. (<year>) form", si+1, s.Heading)
		}

		if m := doiInText.FindStringSubmatch(s.Citation); m != nil {
			pub.DOI = strings.TrimRight(m[0], ".,;")
		} else {
			gaps = append(gaps, fmt.Sprintf("publication %s: no DOI found in citation block", pub.ID))
		}
		if m := quotedTitle.FindStringSubmatch(s.Citation); m != nil {
			pub.Title = strings.TrimRight(m[1], ".")
		} else {
			gaps = append(gaps, fmt.Sprintf("publication %s: no quoted title found in citation block", pub.ID))
		}
		pub.Venue = venueFromCitation(s.Citation, pub.Title)

		cat.Publications = append(cat.Publications, pub)

		for _, pd := range s.Datasets {
			ds := types.Dataset{
				Label:         pd.Label,
				PublicationID: pub.ID,
				Description:   pd.Description,
			}

			if pd.ModelName != "" {
				pubID, name, _, err := ParseModelName(pd.ModelName)
				if err != nil {
					return nil, gaps, fmt.Errorf("dataset %q: %w", pd.Label, err)
				}
				if pubID != pub.ID {
					gaps = append(gaps, fmt.Sprintf("dataset %q: model name %s names publication %s, heading says %s",
						pd.Label, pd.ModelName, pubID, pub.ID))
				}
				ds.Name = name
			} else {
				ds.Name = slugify(pd.Label)
				gaps = append(gaps, fmt.Sprintf("dataset %q: no model name line; derived %q from label", pd.Label, ds.Name))
			}

			if m := leadingCount.FindStringSubmatch(pd.Description); m != nil {
				ds.Cells, _ = strconv.Atoi(m[1])
			} else {
				gaps = append(gaps, fmt.Sprintf("dataset %q: cell count not stated in description", pd.Label))
			}
			if m := trailingGenome.FindStringSubmatch(pd.Description); m != nil {
				ds.Genome = m[1]
			} else {
				gaps = append(gaps, fmt.Sprintf("dataset %q: genome assembly not stated in description", pd.Label))
			}

			for _, l := range pd.Links {
				kind, ok := KindFromLinkText(l.Text)
				if !ok {
					gaps = append(gaps, fmt.Sprintf("dataset %q: link %q names no module kind; skipped", pd.Label, l.Text))
					continue
				}
				ds.Archives = append(ds.Archives, types.Archive{Kind: kind, URL: l.URL})
			}
			if len(ds.Archives) != 3 {
				gaps = append(gaps, fmt.Sprintf("dataset %q: %d module links (expected 3)", pd.Label, len(ds.Archives)))
			}

			cat.Datasets = append(cat.Datasets, ds)
		}
	}

	return cat, gaps, nil
}

// venueFromCitation pulls the text between the quoted title and the first
// following digit, which in the house citation format is the journal name.
func venueFromCitation(citation, title string) string {
	if title == "" {
		return ""
	}
	idx := strings.Index(citation, title)
	if idx < 0 {
		return ""
	}
	rest := citation[idx+len(title):]
	// Skip the closing quote and punctuation after the title.
	rest = strings.TrimLeft(rest, `".`)
	rest = strings.TrimSpace(rest)
	for i, r := range rest {
		if r >= '0' && r <= '9' {
			return strings.TrimSpace(strings.TrimRight(rest[:i], " ,"))
		}
	}
	return ""
}

// KindFromLinkText maps page link text to a module kind by its leading word.
func KindFromLinkText(text string) (types.ModuleKind, bool) {
	switch {
	case strings.HasPrefix(strings.ToLower(text), "dna"):
		return types.ModuleDNA, true
	case strings.HasPrefix(strings.ToLower(text), "cpg"):
		return types.ModuleCpG, true
	case strings.HasPrefix(strings.ToLower(text), "joint"):
		return types.ModuleJoint, true
	}
	return "", false
}

// slugify lowercases a label and replaces runs of non-alphanumerics with a
// single hyphen.
func slugify(label string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
