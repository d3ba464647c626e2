// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

// QueryOptions holds parameters for index queries (R3, R4).
type QueryOptions struct {
	// Query is the FTS5 full-text search string over model names, labels,
	// and descriptions (R3.1).
	Query string

	// Protocol filters by sequencing protocol (R4.1).
	Protocol types.Protocol

	// Genome filters by reference assembly, case-insensitively (R4.2).
	Genome string

	// Kind filters by module kind (R4.3).
	Kind types.ModuleKind

	// Publication filters by publication ID, case-insensitively (R4.4).
	Publication string

	// MaxResults limits result count. Zero uses the store default (R3.3).
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Protocol == "" && q.Genome == "" &&
		q.Kind == "" && q.Publication == ""
}

// QueryResult is one indexed model module with its publication context
// (R3.4).
type QueryResult struct {
	Name             string           `json:"name" yaml:"name"`
	Kind             types.ModuleKind `json:"kind" yaml:"kind"`
	Dataset          string           `json:"dataset" yaml:"dataset"`
	Label            string           `json:"label" yaml:"label"`
	Cells            int              `json:"cells" yaml:"cells"`
	Genome           string           `json:"genome" yaml:"genome"`
	URL              string           `json:"url" yaml:"url"`
	SHA256           string           `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Size             int64            `json:"size,omitempty" yaml:"size,omitempty"`
	Description      string           `json:"description" yaml:"description"`
	PublicationID    string           `json:"publication_id" yaml:"publication_id"`
	PublicationTitle string           `json:"publication_title" yaml:"publication_title"`
	Protocol         types.Protocol   `json:"protocol" yaml:"protocol"`
	Year             int              `json:"year" yaml:"year"`
	DOI              string           `json:"doi" yaml:"doi"`
}

// Retrieve queries the index with optional full-text search and
// structured filters (R3, R4). Full-text results are ranked by relevance;
// structured-only results keep catalogue page order (R3.5).
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT m.name, m.kind, m.dataset, m.label, m.cells, m.genome,
				m.url, m.sha256, m.size, m.description, m.publication_id,
				p.title, p.protocol, p.year, p.doi, models_fts.rank
			FROM models_fts
			JOIN models m ON m.rowid = models_fts.rowid
			LEFT JOIN publications p ON m.publication_id = p.id
			WHERE models_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT m.name, m.kind, m.dataset, m.label, m.cells, m.genome,
				m.url, m.sha256, m.size, m.description, m.publication_id,
				p.title, p.protocol, p.year, p.doi, 0 AS rank
			FROM models m
			LEFT JOIN publications p ON m.publication_id = p.id
			WHERE 1=1`)
	}

	if opts.Protocol != "" {
		qb.WriteString(` AND p.protocol = ?`)
		args = append(args, string(opts.Protocol))
	}

	if opts.Genome != "" {
		qb.WriteString(` AND m.genome = ? COLLATE NOCASE`)
		args = append(args, opts.Genome)
	}

	if opts.Kind != "" {
		qb.WriteString(` AND m.kind = ?`)
		args = append(args, string(opts.Kind))
	}

	if opts.Publication != "" {
		qb.WriteString(` AND m.publication_id = ? COLLATE NOCASE`)
		args = append(args, opts.Publication)
	}

	if useFTS {
		qb.WriteString(` ORDER BY models_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY m.rowid`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr       QueryResult
			kind     string
			protocol sql.NullString
			title    sql.NullString
			year     sql.NullInt64
			doi      sql.NullString
			rank     float64
		)

		if err := rows.Scan(
			&qr.Name, &kind, &qr.Dataset, &qr.Label, &qr.Cells, &qr.Genome,
			&qr.URL, &qr.SHA256, &qr.Size, &qr.Description, &qr.PublicationID,
			&title, &protocol, &year, &doi, &rank,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		qr.Kind = types.ModuleKind(kind)
		if title.Valid {
			qr.PublicationTitle = title.String
		}
		if protocol.Valid {
			qr.Protocol = types.Protocol(protocol.String)
		}
		if year.Valid {
			qr.Year = int(year.Int64)
		}
		if doi.Valid {
			qr.DOI = doi.String
		}

		results = append(results, qr)
	}

	return results, rows.Err()
}
