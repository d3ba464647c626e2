// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

// writeFile is a test helper that creates a file with the given content.
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// testCatalog returns a small valid catalogue with one publication per
// protocol and three datasets.
func testCatalog() *types.Catalog {
	return &types.Catalog{
		Revision: 3,
		DocTitle: "DeepCpG model zoo",
		Intro:    "Pre-trained models for imputing single-cell methylation states.",
		Publications: []types.Publication{
			{
				ID:       "Smallwood2014",
				Protocol: types.ProtocolScBS,
				Title:    "Single-cell genome-wide bisulfite sequencing for assessing epigenetic heterogeneity",
				Authors:  []string{"Sébastien A. Smallwood", "Heather J. Lee", "Gavin Kelsey"},
				Venue:    "Nature Methods",
				Year:     2014,
				DOI:      "10.1038/nmeth.3035",
				Citation: `Smallwood, Sébastien A., et al. "Single-cell genome-wide bisulfite sequencing for assessing epigenetic heterogeneity." Nature Methods 11.8 (2014): 817-820. doi:10.1038/nmeth.3035`,
			},
			{
				ID:       "Hou2016",
				Protocol: types.ProtocolScRRBS,
				Title:    "Single-cell triple omics sequencing reveals genetic, epigenetic, and transcriptomic heterogeneity in hepatocellular carcinomas",
				Authors:  []string{"Yu Hou", "Fuchou Tang"},
				Venue:    "Cell Research",
				Year:     2016,
				DOI:      "10.1038/cr.2016.23",
				Citation: `Hou, Yu, et al. "Single-cell triple omics sequencing reveals genetic, epigenetic, and transcriptomic heterogeneity in hepatocellular carcinomas." Cell Research 26.3 (2016): 304-319. doi:10.1038/cr.2016.23`,
			},
		},
		Datasets: []types.Dataset{
			testDataset("serum", "Serum mESC", "Smallwood2014", 18, "mm10",
				"18 mouse embryonic stem cells cultured in serum conditions (mm10)."),
			testDataset("2i", "2i mESC", "Smallwood2014", 12, "mm10",
				"12 mouse embryonic stem cells cultured in 2i media (mm10)."),
			testDataset("HCC", "HCC", "Hou2016", 25, "GRCh37",
				"25 human hepatocellular carcinoma cells (GRCh37)."),
		},
		Architectures: []types.Architecture{
			{Name: "CnnL2h128", Module: types.ModuleDNA, Params: 4100000, Description: "Two convolutional layers, 128-unit dense layer."},
			{Name: "ResNet01", Module: types.ModuleDNA, Params: 1745281, Description: "Residual network with bottleneck blocks."},
		},
	}
}

func testDataset(name, label, pubID string, cells int, genome, desc string) types.Dataset {
	base := "https://zoo.example.org/deepcpg/" + pubID + "_" + name + "_"
	return types.Dataset{
		Name:          name,
		Label:         label,
		PublicationID: pubID,
		Cells:         cells,
		Genome:        genome,
		Description:   desc,
		Archives: []types.Archive{
			{Kind: types.ModuleDNA, URL: base + "dna.zip"},
			{Kind: types.ModuleCpG, URL: base + "cpg.zip"},
			{Kind: types.ModuleJoint, URL: base + "joint.zip"},
		},
	}
}

const validCatalogYAML = `revision: 1
doc_title: Test zoo
publications:
  - id: Smallwood2014
    protocol: scBS-Seq
    title: Single-cell genome-wide bisulfite sequencing
    authors: [Sébastien A. Smallwood, Gavin Kelsey]
    venue: Nature Methods
    year: 2014
    doi: 10.1038/nmeth.3035
    citation: 'Smallwood et al. Nature Methods (2014). doi:10.1038/nmeth.3035'
datasets:
  - name: serum
    label: Serum mESC
    publication_id: Smallwood2014
    cells: 18
    genome: mm10
    description: 18 serum-cultured cells (mm10).
    archives:
      - kind: dna
        url: https://zoo.example.org/serum_dna.zip
      - kind: cpg
        url: https://zoo.example.org/serum_cpg.zip
      - kind: joint
        url: https://zoo.example.org/serum_joint.zip
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "catalog.yaml", validCatalogYAML)

	cat, err := Load(filepath.Join(dir, "catalog.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Revision != 1 {
		t.Errorf("Revision = %d, want 1", cat.Revision)
	}
	if len(cat.Publications) != 1 || len(cat.Datasets) != 1 {
		t.Fatalf("got %d publications, %d datasets", len(cat.Publications), len(cat.Datasets))
	}
	if cat.Publications[0].Protocol != types.ProtocolScBS {
		t.Errorf("Protocol = %q, want %q", cat.Publications[0].Protocol, types.ProtocolScBS)
	}
	if len(cat.Datasets[0].Archives) != 3 {
		t.Errorf("len(Archives) = %d, want 3", len(cat.Datasets[0].Archives))
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "catalog.yaml", "revision: 1\nbogus_key: true\n")

	_, err := Load(filepath.Join(dir, "catalog.yaml"))
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error does not name the unknown key: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "catalog.yaml"))
	if err == nil {
		t.Error("expected error for missing catalogue file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cat *types.Catalog)
		errMsg string
	}{
		{
			name:   "valid catalogue",
			mutate: func(cat *types.Catalog) {},
		},
		{
			name:   "zero revision",
			mutate: func(cat *types.Catalog) { cat.Revision = 0 },
			errMsg: "revision",
		},
		{
			name:   "malformed doi",
			mutate: func(cat *types.Catalog) { cat.Publications[0].DOI = "doi:10.1038/nmeth.3035" },
			errMsg: "doi",
		},
		{
			name: "citation missing doi",
			mutate: func(cat *types.Catalog) {
				cat.Publications[0].Citation = "Smallwood et al. Nature Methods (2014)."
			},
			errMsg: "citation does not contain DOI",
		},
		{
			name:   "unknown protocol",
			mutate: func(cat *types.Catalog) { cat.Publications[0].Protocol = "WGBS" },
			errMsg: "protocol",
		},
		{
			name: "duplicate publication id",
			mutate: func(cat *types.Catalog) {
				cat.Publications = append(cat.Publications, cat.Publications[0])
			},
			errMsg: "duplicate id",
		},
		{
			name:   "dataset references unknown publication",
			mutate: func(cat *types.Catalog) { cat.Datasets[0].PublicationID = "Nobody2020" },
			errMsg: "unknown publication",
		},
		{
			name: "duplicate dataset name",
			mutate: func(cat *types.Catalog) {
				cat.Datasets = append(cat.Datasets, cat.Datasets[0])
			},
			errMsg: "duplicate name",
		},
		{
			name:   "underscore in dataset name",
			mutate: func(cat *types.Catalog) { cat.Datasets[0].Name = "serum_a" },
			errMsg: "name",
		},
		{
			name:   "two archives",
			mutate: func(cat *types.Catalog) { cat.Datasets[0].Archives = cat.Datasets[0].Archives[:2] },
			errMsg: "length must be exactly 3",
		},
		{
			name:   "no archives",
			mutate: func(cat *types.Catalog) { cat.Datasets[0].Archives = nil },
			errMsg: "missing dna archive",
		},
		{
			name: "duplicate module kind",
			mutate: func(cat *types.Catalog) {
				cat.Datasets[0].Archives[1] = cat.Datasets[0].Archives[0]
			},
			errMsg: "duplicate dna archive",
		},
		{
			name: "relative archive url",
			mutate: func(cat *types.Catalog) {
				cat.Datasets[0].Archives[0].URL = "deepcpg/serum_dna.zip"
			},
			errMsg: "url",
		},
		{
			name: "ftp archive url",
			mutate: func(cat *types.Catalog) {
				cat.Datasets[0].Archives[0].URL = "ftp://zoo.example.org/serum_dna.zip"
			},
			errMsg: "url",
		},
		{
			name:   "zero cells",
			mutate: func(cat *types.Catalog) { cat.Datasets[0].Cells = 0 },
			errMsg: "cells",
		},
		{
			name:   "year before 2000",
			mutate: func(cat *types.Catalog) { cat.Publications[0].Year = 1999 },
			errMsg: "year",
		},
		{
			name: "malformed checksum",
			mutate: func(cat *types.Catalog) {
				cat.Datasets[0].Archives[0].SHA256 = "nothex"
			},
			errMsg: "sha256",
		},
		{
			name: "architecture without params",
			mutate: func(cat *types.Catalog) {
				cat.Architectures[0].Params = 0
			},
			errMsg: "params",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := testCatalog()
			tt.mutate(cat)
			err := Validate(cat)
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tt.errMsg)) {
				t.Errorf("error = %v, want substring %q", err, tt.errMsg)
			}
		})
	}
}

func TestParseModelName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPub  string
		wantDS   string
		wantKind types.ModuleKind
		wantErr  bool
	}{
		{name: "dataset name", input: "Smallwood2014_serum", wantPub: "Smallwood2014", wantDS: "serum"},
		{name: "module name", input: "Smallwood2014_serum_dna", wantPub: "Smallwood2014", wantDS: "serum", wantKind: types.ModuleDNA},
		{name: "joint module", input: "Hou2016_HCC_joint", wantPub: "Hou2016", wantDS: "HCC", wantKind: types.ModuleJoint},
		{name: "unknown module", input: "Hou2016_HCC_rna", wantErr: true},
		{name: "single part", input: "Smallwood2014", wantErr: true},
		{name: "too many parts", input: "A_b_c_dna", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, ds, kind, err := ParseModelName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pub != tt.wantPub || ds != tt.wantDS || kind != tt.wantKind {
				t.Errorf("got (%q, %q, %q), want (%q, %q, %q)", pub, ds, kind, tt.wantPub, tt.wantDS, tt.wantKind)
			}
		})
	}
}

func TestModelName(t *testing.T) {
	if got := ModelName("Smallwood2014", "serum", ""); got != "Smallwood2014_serum" {
		t.Errorf("ModelName = %q", got)
	}
	if got := ModelName("Smallwood2014", "serum", types.ModuleCpG); got != "Smallwood2014_serum_cpg" {
		t.Errorf("ModelName = %q", got)
	}
}

func TestResolveDataset(t *testing.T) {
	cat := testCatalog()

	sel, err := Resolve(cat, "Smallwood2014_serum")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Publication.ID != "Smallwood2014" {
		t.Errorf("Publication.ID = %q", sel.Publication.ID)
	}
	if sel.Dataset.Name != "serum" {
		t.Errorf("Dataset.Name = %q", sel.Dataset.Name)
	}
	if len(sel.Archives) != 3 {
		t.Fatalf("len(Archives) = %d, want 3", len(sel.Archives))
	}
	// Archives come back in canonical kind order regardless of catalogue order.
	wantKinds := []types.ModuleKind{types.ModuleDNA, types.ModuleCpG, types.ModuleJoint}
	for i, k := range wantKinds {
		if sel.Archives[i].Kind != k {
			t.Errorf("Archives[%d].Kind = %q, want %q", i, sel.Archives[i].Kind, k)
		}
	}
}

func TestResolveSingleModule(t *testing.T) {
	cat := testCatalog()

	sel, err := Resolve(cat, "Hou2016_HCC_cpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Archives) != 1 {
		t.Fatalf("len(Archives) = %d, want 1", len(sel.Archives))
	}
	if sel.Archives[0].Kind != types.ModuleCpG {
		t.Errorf("Kind = %q, want cpg", sel.Archives[0].Kind)
	}
}

func TestResolveUnknownDataset(t *testing.T) {
	cat := testCatalog()

	_, err := Resolve(cat, "Smallwood2014_liver")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	// The error should point at the names that do exist under the publication.
	if !strings.Contains(err.Error(), "Smallwood2014_serum") {
		t.Errorf("error does not list nearby names: %v", err)
	}
}

func TestResolveBadName(t *testing.T) {
	cat := testCatalog()
	if _, err := Resolve(cat, "serum"); err == nil {
		t.Error("expected error for unqualified name")
	}
}

func TestList(t *testing.T) {
	cat := testCatalog()

	tests := []struct {
		name      string
		filter    Filter
		wantCount int
		wantFirst string
	}{
		{name: "all modules", filter: Filter{}, wantCount: 9, wantFirst: "Smallwood2014_serum_dna"},
		{name: "by protocol", filter: Filter{Protocol: types.ProtocolScRRBS}, wantCount: 3, wantFirst: "Hou2016_HCC_dna"},
		{name: "by publication", filter: Filter{Publication: "smallwood2014"}, wantCount: 6, wantFirst: "Smallwood2014_serum_dna"},
		{name: "by genome", filter: Filter{Genome: "GRCh37"}, wantCount: 3, wantFirst: "Hou2016_HCC_dna"},
		{name: "by kind", filter: Filter{Kind: types.ModuleJoint}, wantCount: 3, wantFirst: "Smallwood2014_serum_joint"},
		{name: "no matches", filter: Filter{Genome: "danRer11"}, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := List(cat, tt.filter)
			if len(entries) != tt.wantCount {
				t.Fatalf("len(entries) = %d, want %d", len(entries), tt.wantCount)
			}
			if tt.wantCount > 0 && entries[0].Name != tt.wantFirst {
				t.Errorf("entries[0].Name = %q, want %q", entries[0].Name, tt.wantFirst)
			}
		})
	}
}

func TestValidateSeedCatalog(t *testing.T) {
	// The checked-in catalogue must always validate.
	path := filepath.Join("..", "..", "catalog", "catalog.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("seed catalogue not present: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("seed catalogue is invalid: %v", err)
	}
}
