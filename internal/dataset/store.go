// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset assembles model-ready training data from methylation
// profiles and a DNA database and persists it in per-chromosome chunks
// in a SQLite store.
// Implements: prd005-dataprep (R6-R8);
//
//	docs/ARCHITECTURE § Data Preparation.
package dataset

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "data.db"

// NeighborRow holds one cell's CpG neighbour context for one site:
// binary states and genomic distances, nearest-left at index k-1 and
// nearest-right at index k of a 2k-wide row.
type NeighborRow struct {
	States []int8
	Dists  []float32
}

// StatKey names one statistic of a site. Wlen is zero for statistics
// over the cells at the site itself and the window length for windowed
// variants.
type StatKey struct {
	Name string
	Wlen int
}

// SiteData holds everything extracted for one CpG site.
type SiteData struct {
	Chromo string
	Pos    int
	DNA    []int8
	CpG    map[string]float32
	Bulk   map[string]float32
	Knn    map[string]NeighborRow
	Stats  map[StatKey]float32
	Annos  map[string]int8
}

// Chunk is one contiguous run of sites of a chromosome. StartIdx and
// EndIdx are half-open site indices into the chromosome's position
// table.
type Chunk struct {
	Chromo   string
	StartIdx int
	EndIdx   int
	Sites    []*SiteData
}

// ID renders the chunk name, for example "c1_000000-032768".
func (c *Chunk) ID() string {
	return fmt.Sprintf("c%s_%06d-%06d", c.Chromo, c.StartIdx, c.EndIdx)
}

// Meta records the parameters a dataset was built with.
type Meta struct {
	DNAWlen      int
	CpGWlen      int
	ChunkSize    int
	Cells        []string
	Bulk         []string
	Stats        []string
	WinStats     []string
	WinStatsWlen []int
	Seed         int64
	CreatedAt    time.Time
}

// Store reads and writes one dataset database.
type Store struct {
	db   *sql.DB
	path string
}

var createSchema = []string{
	`CREATE TABLE IF NOT EXISTS chunks (
		id TEXT NOT NULL UNIQUE,
		chromo TEXT NOT NULL,
		start_idx INTEGER NOT NULL,
		end_idx INTEGER NOT NULL,
		sites INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sites (
		chunk_id INTEGER NOT NULL REFERENCES chunks(rowid),
		chromo TEXT NOT NULL,
		pos INTEGER NOT NULL,
		dna BLOB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sites_chunk_id ON sites(chunk_id)`,
	`CREATE TABLE IF NOT EXISTS site_outputs (
		site_id INTEGER NOT NULL REFERENCES sites(rowid),
		cell TEXT NOT NULL,
		kind TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (site_id, cell, kind)
	)`,
	`CREATE TABLE IF NOT EXISTS site_neighbors (
		site_id INTEGER NOT NULL REFERENCES sites(rowid),
		cell TEXT NOT NULL,
		states BLOB NOT NULL,
		dists BLOB NOT NULL,
		PRIMARY KEY (site_id, cell)
	)`,
	`CREATE TABLE IF NOT EXISTS site_stats (
		site_id INTEGER NOT NULL REFERENCES sites(rowid),
		name TEXT NOT NULL,
		wlen INTEGER NOT NULL DEFAULT 0,
		value REAL NOT NULL,
		PRIMARY KEY (site_id, name, wlen)
	)`,
	`CREATE TABLE IF NOT EXISTS site_annos (
		site_id INTEGER NOT NULL REFERENCES sites(rowid),
		name TEXT NOT NULL,
		value INTEGER NOT NULL,
		PRIMARY KEY (site_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Create makes a fresh dataset store under outDir, replacing any
// existing one.
func Create(outDir string) (*Store, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(outDir, dbFile)
	// Stale WAL files would shadow a fresh database.
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing %s: %w", p, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening dataset database: %w", err)
	}
	for _, stmt := range createSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating dataset schema: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Open opens an existing dataset store under dir.
func Open(dir string) (*Store, error) {
	path := filepath.Join(dir, dbFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no dataset at %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening dataset database: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the dataset database file.
func (s *Store) Path() string {
	return s.path
}

// WriteChunk stores one chunk and all its site data in a single
// transaction (R6.2).
func (s *Store) WriteChunk(ctx context.Context, c *Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning chunk transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO chunks (id, chromo, start_idx, end_idx, sites) VALUES (?, ?, ?, ?, ?)`,
		c.ID(), c.Chromo, c.StartIdx, c.EndIdx, len(c.Sites))
	if err != nil {
		return fmt.Errorf("inserting chunk %s: %w", c.ID(), err)
	}
	chunkID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("inserting chunk %s: %w", c.ID(), err)
	}

	stmts := make(map[string]*sql.Stmt, 5)
	for name, query := range map[string]string{
		"site":     `INSERT INTO sites (chunk_id, chromo, pos, dna) VALUES (?, ?, ?, ?)`,
		"output":   `INSERT INTO site_outputs (site_id, cell, kind, value) VALUES (?, ?, ?, ?)`,
		"neighbor": `INSERT INTO site_neighbors (site_id, cell, states, dists) VALUES (?, ?, ?, ?)`,
		"stat":     `INSERT INTO site_stats (site_id, name, wlen, value) VALUES (?, ?, ?, ?)`,
		"anno":     `INSERT INTO site_annos (site_id, name, value) VALUES (?, ?, ?)`,
	} {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing %s insert: %w", name, err)
		}
		defer stmt.Close()
		stmts[name] = stmt
	}

	for _, site := range c.Sites {
		if err := writeSite(ctx, stmts, chunkID, site); err != nil {
			return fmt.Errorf("chunk %s site %s:%d: %w", c.ID(), site.Chromo, site.Pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunk %s: %w", c.ID(), err)
	}
	return nil
}

func writeSite(ctx context.Context, stmts map[string]*sql.Stmt, chunkID int64, site *SiteData) error {
	var dna []byte
	if len(site.DNA) > 0 {
		dna = encodeInt8(site.DNA)
	}
	res, err := stmts["site"].ExecContext(ctx, chunkID, site.Chromo, site.Pos, dna)
	if err != nil {
		return fmt.Errorf("inserting site: %w", err)
	}
	siteID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("inserting site: %w", err)
	}

	for _, cell := range sortedOutputKeys(site.CpG) {
		if _, err := stmts["output"].ExecContext(ctx, siteID, cell, "cpg", site.CpG[cell]); err != nil {
			return fmt.Errorf("inserting cpg output for %s: %w", cell, err)
		}
	}
	for _, name := range sortedOutputKeys(site.Bulk) {
		if _, err := stmts["output"].ExecContext(ctx, siteID, name, "bulk", site.Bulk[name]); err != nil {
			return fmt.Errorf("inserting bulk output for %s: %w", name, err)
		}
	}

	cells := make([]string, 0, len(site.Knn))
	for cell := range site.Knn {
		cells = append(cells, cell)
	}
	sort.Strings(cells)
	for _, cell := range cells {
		row := site.Knn[cell]
		if _, err := stmts["neighbor"].ExecContext(ctx, siteID, cell,
			encodeInt8(row.States), encodeFloat32(row.Dists)); err != nil {
			return fmt.Errorf("inserting neighbours for %s: %w", cell, err)
		}
	}

	keys := make([]StatKey, 0, len(site.Stats))
	for k := range site.Stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Wlen < keys[j].Wlen
	})
	for _, k := range keys {
		if _, err := stmts["stat"].ExecContext(ctx, siteID, k.Name, k.Wlen, site.Stats[k]); err != nil {
			return fmt.Errorf("inserting statistic %s: %w", k.Name, err)
		}
	}

	annos := make([]string, 0, len(site.Annos))
	for name := range site.Annos {
		annos = append(annos, name)
	}
	sort.Strings(annos)
	for _, name := range annos {
		if _, err := stmts["anno"].ExecContext(ctx, siteID, name, site.Annos[name]); err != nil {
			return fmt.Errorf("inserting annotation %s: %w", name, err)
		}
	}
	return nil
}

func sortedOutputKeys(m map[string]float32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteMeta stores the build parameters in the run_meta table.
func (s *Store) WriteMeta(ctx context.Context, meta Meta) error {
	entries := map[string]string{
		"dna_wlen":   strconv.Itoa(meta.DNAWlen),
		"cpg_wlen":   strconv.Itoa(meta.CpGWlen),
		"chunk_size": strconv.Itoa(meta.ChunkSize),
		"seed":       strconv.FormatInt(meta.Seed, 10),
		"created_at": meta.CreatedAt.UTC().Format(time.RFC3339),
	}
	for key, val := range map[string]any{
		"cells":          meta.Cells,
		"bulk":           meta.Bulk,
		"stats":          meta.Stats,
		"win_stats":      meta.WinStats,
		"win_stats_wlen": meta.WinStatsWlen,
	} {
		buf, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		entries[key] = string(buf)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning meta transaction: %w", err)
	}
	defer tx.Rollback()

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, entries[key]); err != nil {
			return fmt.Errorf("storing %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// ReadMeta loads the build parameters. Keys never written read back as
// zero values.
func (s *Store) ReadMeta(ctx context.Context) (Meta, error) {
	var meta Meta
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM run_meta`)
	if err != nil {
		return meta, fmt.Errorf("reading run metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, val string
		if err := rows.Scan(&key, &val); err != nil {
			return meta, fmt.Errorf("scanning run metadata: %w", err)
		}
		if err := applyMeta(&meta, key, val); err != nil {
			return meta, fmt.Errorf("parsing %s: %w", key, err)
		}
	}
	return meta, rows.Err()
}

func applyMeta(meta *Meta, key, val string) error {
	var err error
	switch key {
	case "dna_wlen":
		meta.DNAWlen, err = strconv.Atoi(val)
	case "cpg_wlen":
		meta.CpGWlen, err = strconv.Atoi(val)
	case "chunk_size":
		meta.ChunkSize, err = strconv.Atoi(val)
	case "seed":
		meta.Seed, err = strconv.ParseInt(val, 10, 64)
	case "created_at":
		meta.CreatedAt, err = time.Parse(time.RFC3339, val)
	case "cells":
		err = json.Unmarshal([]byte(val), &meta.Cells)
	case "bulk":
		err = json.Unmarshal([]byte(val), &meta.Bulk)
	case "stats":
		err = json.Unmarshal([]byte(val), &meta.Stats)
	case "win_stats":
		err = json.Unmarshal([]byte(val), &meta.WinStats)
	case "win_stats_wlen":
		err = json.Unmarshal([]byte(val), &meta.WinStatsWlen)
	}
	return err
}

func encodeInt8(vals []int8) []byte {
	out := make([]byte, len(vals))
	for i, v := range vals {
		out[i] = byte(v)
	}
	return out
}

func decodeInt8(b []byte) []int8 {
	if len(b) == 0 {
		return nil
	}
	out := make([]int8, len(b))
	for i, v := range b {
		out[i] = int8(v)
	}
	return out
}

func encodeFloat32(vals []float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func decodeFloat32(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}
