// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the cpgzoo pipeline.
// Implements: prd001-catalog (Publication, Dataset, Archive, R1-R2);
//
//	prd003-fetch (ModelRecord, R4);
//	prd002-verification (check severities consumed by the CLI);
//	prd005-dataprep (option defaults referenced from config).
//
// See docs/ARCHITECTURE.md § Catalogue Model, § Data Structures.
package types

// Protocol identifies the single-cell sequencing protocol a dataset was
// produced with. Per prd001-catalog R1.6 the catalogue only carries
// protocols the published models were trained on.
type Protocol string

const (
	ProtocolScBS   Protocol = "scBS-Seq"
	ProtocolScRRBS Protocol = "scRRBS-Seq"
)

// ModuleKind identifies one of the three module archives published per
// trained dataset. Per prd001-catalog R1.3 every dataset carries exactly
// one archive of each kind.
type ModuleKind string

const (
	// ModuleDNA predicts methylation from the DNA sequence window alone.
	ModuleDNA ModuleKind = "dna"

	// ModuleCpG predicts methylation from neighbouring CpG observations alone.
	ModuleCpG ModuleKind = "cpg"

	// ModuleJoint combines the DNA and CpG module outputs.
	ModuleJoint ModuleKind = "joint"
)

// ModuleKinds returns the three module kinds in catalogue order.
func ModuleKinds() []ModuleKind {
	return []ModuleKind{ModuleDNA, ModuleCpG, ModuleJoint}
}

// Publication describes a source study whose data the zoo's models were
// trained on. Per prd001-catalog R1.2, R1.4-R1.5.
type Publication struct {
	// ID is the citation-style slug used in model names (e.g. "Smallwood2014").
	ID string `json:"id" yaml:"id"`

	// Protocol is the sequencing protocol the study used.
	Protocol Protocol `json:"protocol" yaml:"protocol"`

	// Title is the publication title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the publication authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Venue is the journal that published the study.
	Venue string `json:"venue" yaml:"venue"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// DOI is the bare DOI, without a resolver prefix (e.g. "10.1038/nmeth.3035").
	DOI string `json:"doi" yaml:"doi"`

	// Citation is the literal bibliographic text printed on the catalogue
	// page. Per R1.5 it must contain the DOI.
	Citation string `json:"citation" yaml:"citation"`
}

// Archive is one downloadable module archive. The URL is an opaque link to
// a hosted zip file; no schema is imposed on it beyond being absolute.
type Archive struct {
	// Kind identifies the module the archive contains: dna, cpg, or joint.
	Kind ModuleKind `json:"kind" yaml:"kind"`

	// URL is the absolute download location of the zip archive.
	URL string `json:"url" yaml:"url"`

	// SHA256 is the hex digest of the archive, when the host declares one.
	SHA256 string `json:"sha256,omitempty" yaml:"sha256,omitempty"`

	// Size is the archive size in bytes, zero when unknown.
	Size int64 `json:"size,omitempty" yaml:"size,omitempty"`
}

// Dataset is one trained cell population within a publication. Model names
// are formed as <PublicationID>_<Name> plus a module suffix
// (e.g. "Smallwood2014_serum_dna"). Per prd001-catalog R2.1.
type Dataset struct {
	// Name is the short population slug used in model names (e.g. "serum").
	Name string `json:"name" yaml:"name"`

	// Label is the display name shown on the catalogue page (e.g. "Serum mESC").
	Label string `json:"label" yaml:"label"`

	// PublicationID references the Publication the cells come from.
	PublicationID string `json:"publication_id" yaml:"publication_id"`

	// Cells is the number of single cells the modules were trained on.
	Cells int `json:"cells" yaml:"cells"`

	// Genome is the reference genome assembly (e.g. "mm10", "GRCh37").
	Genome string `json:"genome" yaml:"genome"`

	// Description is the one-line summary printed under the dataset heading.
	Description string `json:"description" yaml:"description"`

	// Archives lists the dataset's module archives. Per R1.3 exactly three,
	// one per ModuleKind.
	Archives []Archive `json:"archives" yaml:"archives"`
}

// Architecture records a network architecture a published checkpoint uses.
// Metadata only: nothing in the pipeline builds or loads these networks.
type Architecture struct {
	// Name is the architecture identifier as published (e.g. "CnnL2h128").
	Name string `json:"name" yaml:"name"`

	// Module is the module kind the architecture belongs to.
	Module ModuleKind `json:"module" yaml:"module"`

	// Params is the trainable parameter count as published.
	Params int `json:"params" yaml:"params"`

	// Description is a one-line summary of the layer layout.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Catalog is the zoo's source of truth, decoded from catalog/catalog.yaml.
// Per prd001-catalog R1.1.
type Catalog struct {
	// Revision is a monotonically increasing catalogue revision, printed in
	// the rendered page's frontmatter.
	Revision int `json:"revision" yaml:"revision"`

	// DocTitle is the rendered page title.
	DocTitle string `json:"doc_title" yaml:"doc_title"`

	// Intro is the paragraph printed between the page title and the first
	// publication heading.
	Intro string `json:"intro" yaml:"intro"`

	// Publications lists the source studies in page order.
	Publications []Publication `json:"publications" yaml:"publications"`

	// Datasets lists the trained populations in page order.
	Datasets []Dataset `json:"datasets" yaml:"datasets"`

	// Architectures lists the published checkpoint architectures.
	Architectures []Architecture `json:"architectures,omitempty" yaml:"architectures,omitempty"`
}
