// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

// ExportEntry holds one model module with publication metadata for export
// (R6.3).
type ExportEntry struct {
	Name        string             `json:"name" yaml:"name"`
	Kind        types.ModuleKind   `json:"kind" yaml:"kind"`
	Dataset     string             `json:"dataset" yaml:"dataset"`
	Label       string             `json:"label" yaml:"label"`
	Cells       int                `json:"cells" yaml:"cells"`
	Genome      string             `json:"genome" yaml:"genome"`
	URL         string             `json:"url" yaml:"url"`
	SHA256      string             `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Description string             `json:"description" yaml:"description"`
	Publication *ExportPublication `json:"publication,omitempty" yaml:"publication,omitempty"`
}

// ExportPublication holds the publication-level fields included in each
// export entry.
type ExportPublication struct {
	ID       string         `json:"id" yaml:"id"`
	Title    string         `json:"title" yaml:"title"`
	Protocol types.Protocol `json:"protocol" yaml:"protocol"`
	Year     int            `json:"year" yaml:"year"`
	DOI      string         `json:"doi,omitempty" yaml:"doi,omitempty"`
}

const exportLimit = 100000

// ExportYAML writes the index to indexDir/export.yaml (R6.1). It supports
// the same filters as Retrieve (R6.4).
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the index to indexDir/export.json (R6.2). It supports
// the same filters as Retrieve (R6.4).
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = exportLimit
	}
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		entries[i] = ExportEntry{
			Name:        r.Name,
			Kind:        r.Kind,
			Dataset:     r.Dataset,
			Label:       r.Label,
			Cells:       r.Cells,
			Genome:      r.Genome,
			URL:         r.URL,
			SHA256:      r.SHA256,
			Description: r.Description,
		}
		if r.PublicationID != "" {
			entries[i].Publication = &ExportPublication{
				ID:       r.PublicationID,
				Title:    r.PublicationTitle,
				Protocol: r.Protocol,
				Year:     r.Year,
				DOI:      r.DOI,
			}
		}
	}

	return entries, nil
}
