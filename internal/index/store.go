// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index persists the catalogue in SQLite and builds a retrieval
// index over its model modules.
// Implements: prd004-index (R1-R6);
//
//	docs/ARCHITECTURE § Catalogue Index.
package index

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cpgzoo/internal/catalog"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

const (
	dbFile           = "zoo.db"
	catalogSourceKey = "catalog"
)

// Store manages the catalogue index SQLite database.
type Store struct {
	db         *sql.DB
	indexDir   string
	maxResults int
}

// NewStore opens or creates the index database at indexDir/zoo.db. It
// creates the schema if it does not exist (R1.2, R1.3).
func NewStore(cfg types.IndexConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		indexDir:   cfg.IndexDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS publications (
			id TEXT PRIMARY KEY,
			protocol TEXT,
			title TEXT,
			authors TEXT,
			venue TEXT,
			year INTEGER,
			doi TEXT,
			citation TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS models (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			publication_id TEXT NOT NULL REFERENCES publications(id),
			dataset TEXT,
			label TEXT,
			kind TEXT,
			cells INTEGER,
			genome TEXT,
			url TEXT,
			sha256 TEXT,
			size INTEGER,
			description TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_models_publication_id ON models(publication_id)`,
		`CREATE INDEX IF NOT EXISTS idx_models_kind ON models(kind)`,
		`CREATE TABLE IF NOT EXISTS link_checks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			target TEXT NOT NULL,
			status TEXT NOT NULL,
			detail TEXT,
			elapsed_ms INTEGER,
			checked_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			source TEXT PRIMARY KEY,
			content_hash TEXT,
			ingested_at TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='models_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE models_fts USING fts5(name, label, description, content=models, content_rowid=rowid)`,
			`CREATE TRIGGER models_ai AFTER INSERT ON models BEGIN
				INSERT INTO models_fts(rowid, name, label, description)
				VALUES (new.rowid, new.name, new.label, new.description);
			END`,
			`CREATE TRIGGER models_ad AFTER DELETE ON models BEGIN
				INSERT INTO models_fts(models_fts, rowid, name, label, description)
				VALUES('delete', old.rowid, old.name, old.label, old.description);
			END`,
			`CREATE TRIGGER models_au AFTER UPDATE ON models BEGIN
				INSERT INTO models_fts(models_fts, rowid, name, label, description)
				VALUES('delete', old.rowid, old.name, old.label, old.description);
				INSERT INTO models_fts(rowid, name, label, description)
				VALUES (new.rowid, new.name, new.label, new.description);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestResult holds counts from a catalogue indexing run (R2.4).
type IngestResult struct {
	Publications int
	Models       int
	Skipped      bool
}

// Ingest replaces the indexed catalogue with cat. An unchanged catalogue
// is detected by content hash and skipped (R2.1-R2.3). On success it
// rewrites export.yaml (R6.5).
func (s *Store) Ingest(ctx context.Context, cat *types.Catalog, w io.Writer) (IngestResult, error) {
	hash, err := catalogHash(cat)
	if err != nil {
		return IngestResult{}, fmt.Errorf("hashing catalogue: %w", err)
	}

	var storedHash string
	err = s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM ingest_status WHERE source = ?`, catalogSourceKey,
	).Scan(&storedHash)
	if err == nil && storedHash == hash {
		fmt.Fprintln(w, "skipped: catalogue unchanged since last ingest")
		return IngestResult{Skipped: true}, nil
	}

	entries := catalog.List(cat, catalog.Filter{})
	if err := s.replaceCatalog(ctx, cat, entries, hash); err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{
		Publications: len(cat.Publications),
		Models:       len(entries),
	}
	fmt.Fprintf(w, "indexed: %d publications, %d model modules\n",
		result.Publications, result.Models)

	if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
		fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
	}

	return result, nil
}

func (s *Store) replaceCatalog(ctx context.Context, cat *types.Catalog, entries []catalog.Entry, hash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Models reference publications, so they go first (R2.2).
	if _, err := tx.ExecContext(ctx, `DELETE FROM models`); err != nil {
		return fmt.Errorf("clearing models: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM publications`); err != nil {
		return fmt.Errorf("clearing publications: %w", err)
	}

	for _, p := range cat.Publications {
		authorsJSON, _ := json.Marshal(p.Authors)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO publications (id, protocol, title, authors, venue, year, doi, citation)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, string(p.Protocol), p.Title, string(authorsJSON),
			p.Venue, p.Year, p.DOI, p.Citation,
		)
		if err != nil {
			return fmt.Errorf("inserting publication %s: %w", p.ID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO models (name, publication_id, dataset, label, kind, cells, genome, url, sha256, size, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.Name, e.Publication.ID, e.Dataset.Name, e.Dataset.Label,
			string(e.Archive.Kind), e.Dataset.Cells, e.Dataset.Genome,
			e.Archive.URL, e.Archive.SHA256, e.Archive.Size, e.Dataset.Description,
		)
		if err != nil {
			return fmt.Errorf("inserting model %s: %w", e.Name, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_status (source, content_hash, ingested_at) VALUES (?, ?, ?)
		 ON CONFLICT(source) DO UPDATE SET
			content_hash=excluded.content_hash, ingested_at=excluded.ingested_at`,
		catalogSourceKey, hash, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}

	return tx.Commit()
}

// catalogHash fingerprints the catalogue content for change detection
// (R2.1). Serialization is deterministic, so equal catalogues hash equal.
func catalogHash(cat *types.Catalog) (string, error) {
	data, err := yaml.Marshal(cat)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
