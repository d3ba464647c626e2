// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog loads, validates, renders, and re-imports the model-zoo
// catalogue. Implements: prd001-catalog (R1-R5);
//
//	docs/ARCHITECTURE § Catalogue Stage.
package catalog

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

const (
	// DefaultPath is the catalogue source of truth.
	DefaultPath = "catalog/catalog.yaml"

	// DefaultDocPath is the rendered documentation page.
	DefaultDocPath = "docs/models.md"
)

// doiPattern matches a bare DOI without a resolver prefix. Per R1.4.
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// pubIDPattern constrains publication IDs so model names split
// unambiguously on underscores (R2.1).
var pubIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// datasetNamePattern allows a leading digit ("2i" is a real population)
// but still no underscores.
var datasetNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*$`)

// sha256Pattern matches a hex-encoded SHA-256 digest.
var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Load reads a catalogue file, strictly decodes it, and validates it.
// Unknown YAML keys are rejected so typos in hand-edited catalogues fail
// loudly. Per R1.1.
func Load(path string) (*types.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue: %w", err)
	}

	var cat types.Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("parsing catalogue %s: %w", path, err)
	}

	if err := Validate(&cat); err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", path, err)
	}
	return &cat, nil
}

// LoadDefault reads the catalogue from its conventional path.
func LoadDefault() (*types.Catalog, error) {
	return Load(DefaultPath)
}

// Validate checks catalogue invariants: field shapes, unique identifiers,
// resolvable publication references, and exactly one archive per module
// kind on every dataset. Per R1.2-R1.6.
func Validate(cat *types.Catalog) error {
	err := validation.ValidateStruct(cat,
		validation.Field(&cat.Revision, validation.Required, validation.Min(1)),
		validation.Field(&cat.DocTitle, validation.Required),
		validation.Field(&cat.Publications, validation.Required),
		validation.Field(&cat.Datasets, validation.Required),
	)
	if err != nil {
		return err
	}

	pubIDs := make(map[string]bool)
	for _, p := range cat.Publications {
		if err := validatePublication(p); err != nil {
			return fmt.Errorf("publication %s: %w", p.ID, err)
		}
		if pubIDs[p.ID] {
			return fmt.Errorf("publication %s: duplicate id", p.ID)
		}
		pubIDs[p.ID] = true
	}

	dsNames := make(map[string]bool)
	for _, d := range cat.Datasets {
		if err := validateDataset(d); err != nil {
			return fmt.Errorf("dataset %s: %w", d.Name, err)
		}
		if !pubIDs[d.PublicationID] {
			return fmt.Errorf("dataset %s: unknown publication %q", d.Name, d.PublicationID)
		}
		name := ModelName(d.PublicationID, d.Name, "")
		if dsNames[name] {
			return fmt.Errorf("dataset %s: duplicate name under %s", d.Name, d.PublicationID)
		}
		dsNames[name] = true

		kinds := make(map[types.ModuleKind]bool)
		for _, a := range d.Archives {
			if err := validateArchive(a); err != nil {
				return fmt.Errorf("dataset %s, %s archive: %w", d.Name, a.Kind, err)
			}
			if kinds[a.Kind] {
				return fmt.Errorf("dataset %s: duplicate %s archive", d.Name, a.Kind)
			}
			kinds[a.Kind] = true
		}
		// Length is checked per-field, but the error here names the missing kind.
		for _, k := range types.ModuleKinds() {
			if !kinds[k] {
				return fmt.Errorf("dataset %s: missing %s archive", d.Name, k)
			}
		}
	}

	for _, a := range cat.Architectures {
		if err := validateArchitecture(a); err != nil {
			return fmt.Errorf("architecture %s: %w", a.Name, err)
		}
	}
	return nil
}

func validatePublication(p types.Publication) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required, validation.Match(pubIDPattern)),
		validation.Field(&p.Protocol, validation.Required,
			validation.In(types.ProtocolScBS, types.ProtocolScRRBS)),
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Authors, validation.Required),
		validation.Field(&p.Venue, validation.Required),
		validation.Field(&p.Year, validation.Required, validation.Min(2000), validation.Max(2100)),
		validation.Field(&p.DOI, validation.Required, validation.Match(doiPattern)),
		validation.Field(&p.Citation, validation.Required),
	)
	if err != nil {
		return err
	}
	// The printed citation must let readers resolve the study. Per R1.5.
	if !strings.Contains(p.Citation, p.DOI) {
		return fmt.Errorf("citation does not contain DOI %s", p.DOI)
	}
	return nil
}

func validateDataset(d types.Dataset) error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required, validation.Match(datasetNamePattern)),
		validation.Field(&d.Label, validation.Required),
		validation.Field(&d.PublicationID, validation.Required),
		validation.Field(&d.Cells, validation.Required, validation.Min(1)),
		validation.Field(&d.Genome, validation.Required),
		validation.Field(&d.Description, validation.Required),
		validation.Field(&d.Archives, validation.Length(3, 3)),
	)
}

func validateArchive(a types.Archive) error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Kind, validation.Required,
			validation.In(types.ModuleDNA, types.ModuleCpG, types.ModuleJoint)),
		validation.Field(&a.URL, validation.Required, is.URL, validation.By(absoluteHTTP)),
		validation.Field(&a.SHA256, validation.Match(sha256Pattern)),
		validation.Field(&a.Size, validation.Min(0)),
	)
}

func validateArchitecture(a types.Architecture) error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.Module, validation.Required,
			validation.In(types.ModuleDNA, types.ModuleCpG, types.ModuleJoint)),
		validation.Field(&a.Params, validation.Required, validation.Min(1)),
	)
}

// absoluteHTTP rejects archive URLs that are relative or use a non-HTTP
// scheme. The links are opaque otherwise.
func absoluteHTTP(value interface{}) error {
	s, _ := value.(string)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return nil
	}
	return validation.NewError("catalog.archive.url_scheme", "must be an absolute http(s) URL")
}

// ModelName forms the addressable name for a dataset or one of its modules:
// <publication>_<dataset> plus an optional module suffix. Per R2.1.
func ModelName(pubID, dataset string, kind types.ModuleKind) string {
	name := pubID + "_" + dataset
	if kind != "" {
		name += "_" + string(kind)
	}
	return name
}

// ParseModelName splits a model name into its publication, dataset, and
// module parts. The module part is empty when the name addresses a whole
// dataset.
func ParseModelName(name string) (pubID, dataset string, kind types.ModuleKind, err error) {
	parts := strings.Split(name, "_")
	switch len(parts) {
	case 2:
		return parts[0], parts[1], "", nil
	case 3:
		k := types.ModuleKind(parts[2])
		for _, known := range types.ModuleKinds() {
			if k == known {
				return parts[0], parts[1], k, nil
			}
		}
		return "", "", "", fmt.Errorf("model name %q: unknown module %q", name, parts[2])
	default:
		return "", "", "", fmt.Errorf("model name %q: want <publication>_<dataset>[_<module>]", name)
	}
}

// Selection is the result of resolving a model name: the owning publication
// and dataset, plus the archives the name addresses (one when a module was
// named, all three otherwise).
type Selection struct {
	Publication types.Publication
	Dataset     types.Dataset
	Archives    []types.Archive
}

// Resolve maps a model name to its archives. Unknown names produce an error
// listing nearby catalogue entries. Per R2.2-R2.3.
func Resolve(cat *types.Catalog, name string) (*Selection, error) {
	pubID, dsName, kind, err := ParseModelName(name)
	if err != nil {
		return nil, err
	}

	for _, d := range cat.Datasets {
		if d.PublicationID != pubID || d.Name != dsName {
			continue
		}
		pub, ok := PublicationByID(cat, pubID)
		if !ok {
			return nil, fmt.Errorf("model %s: unknown publication %q", name, pubID)
		}
		sel := &Selection{Publication: *pub, Dataset: d}
		for _, k := range types.ModuleKinds() {
			if kind != "" && k != kind {
				continue
			}
			a, ok := archiveOf(d, k)
			if !ok {
				return nil, fmt.Errorf("model %s: catalogue has no %s archive", name, k)
			}
			sel.Archives = append(sel.Archives, a)
		}
		return sel, nil
	}

	msg := fmt.Sprintf("unknown model %q", name)
	if near := nearNames(cat, pubID); len(near) > 0 {
		msg += "; known names under " + pubID + ": " + strings.Join(near, ", ")
	}
	return nil, fmt.Errorf("%s", msg)
}

// nearNames lists dataset names under a publication, capped to keep error
// messages short.
func nearNames(cat *types.Catalog, pubID string) []string {
	var names []string
	for _, d := range cat.Datasets {
		if !strings.EqualFold(d.PublicationID, pubID) {
			continue
		}
		names = append(names, ModelName(d.PublicationID, d.Name, ""))
		if len(names) == 5 {
			break
		}
	}
	return names
}

func archiveOf(d types.Dataset, kind types.ModuleKind) (types.Archive, bool) {
	for _, a := range d.Archives {
		if a.Kind == kind {
			return a, true
		}
	}
	return types.Archive{}, false
}

// PublicationByID returns the publication with the given ID.
func PublicationByID(cat *types.Catalog, id string) (*types.Publication, bool) {
	for i := range cat.Publications {
		if cat.Publications[i].ID == id {
			return &cat.Publications[i], true
		}
	}
	return nil, false
}

// DatasetsOf returns the datasets belonging to a publication, in catalogue
// order.
func DatasetsOf(cat *types.Catalog, pubID string) []types.Dataset {
	var out []types.Dataset
	for _, d := range cat.Datasets {
		if d.PublicationID == pubID {
			out = append(out, d)
		}
	}
	return out
}

// Filter narrows List output. Zero-valued fields match everything.
type Filter struct {
	Protocol    types.Protocol
	Publication string
	Genome      string
	Kind        types.ModuleKind
}

// Entry is one row of List output: a fully qualified module with its
// publication context.
type Entry struct {
	Name        string
	Publication types.Publication
	Dataset     types.Dataset
	Archive     types.Archive
}

// List returns one entry per dataset module matching the filter, in page
// order with modules in canonical kind order. Per R2.4.
func List(cat *types.Catalog, f Filter) []Entry {
	var out []Entry
	for _, p := range cat.Publications {
		if f.Protocol != "" && p.Protocol != f.Protocol {
			continue
		}
		if f.Publication != "" && !strings.EqualFold(p.ID, f.Publication) {
			continue
		}
		for _, d := range DatasetsOf(cat, p.ID) {
			if f.Genome != "" && !strings.EqualFold(d.Genome, f.Genome) {
				continue
			}
			for _, k := range types.ModuleKinds() {
				if f.Kind != "" && k != f.Kind {
					continue
				}
				a, ok := archiveOf(d, k)
				if !ok {
					continue
				}
				out = append(out, Entry{
					Name:        ModelName(p.ID, d.Name, k),
					Publication: p,
					Dataset:     d,
					Archive:     a,
				})
			}
		}
	}
	return out
}
