// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ChunkInfo describes one stored chunk without its site data.
type ChunkInfo struct {
	ID       string
	Chromo   string
	StartIdx int
	EndIdx   int
	Sites    int
}

// Chunks lists all chunks in write order.
func (s *Store) Chunks(ctx context.Context) ([]ChunkInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chromo, start_idx, end_idx, sites FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var infos []ChunkInfo
	for rows.Next() {
		var info ChunkInfo
		if err := rows.Scan(&info.ID, &info.Chromo, &info.StartIdx, &info.EndIdx, &info.Sites); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// ReadChunk loads one chunk and all its site data by chunk name.
func (s *Store) ReadChunk(ctx context.Context, id string) (*Chunk, error) {
	var rowid int64
	c := &Chunk{}
	err := s.db.QueryRowContext(ctx,
		`SELECT rowid, chromo, start_idx, end_idx FROM chunks WHERE id = ?`, id).
		Scan(&rowid, &c.Chromo, &c.StartIdx, &c.EndIdx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no chunk named %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading chunk %s: %w", id, err)
	}

	byID, err := s.readSites(ctx, rowid, c)
	if err != nil {
		return nil, fmt.Errorf("reading chunk %s: %w", id, err)
	}
	if err := s.readOutputs(ctx, rowid, byID); err != nil {
		return nil, fmt.Errorf("reading chunk %s: %w", id, err)
	}
	if err := s.readNeighbors(ctx, rowid, byID); err != nil {
		return nil, fmt.Errorf("reading chunk %s: %w", id, err)
	}
	if err := s.readStats(ctx, rowid, byID); err != nil {
		return nil, fmt.Errorf("reading chunk %s: %w", id, err)
	}
	if err := s.readAnnos(ctx, rowid, byID); err != nil {
		return nil, fmt.Errorf("reading chunk %s: %w", id, err)
	}
	return c, nil
}

func (s *Store) readSites(ctx context.Context, chunkID int64, c *Chunk) (map[int64]*SiteData, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, chromo, pos, dna FROM sites WHERE chunk_id = ? ORDER BY rowid`, chunkID)
	if err != nil {
		return nil, fmt.Errorf("reading sites: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*SiteData)
	for rows.Next() {
		var id int64
		var dna []byte
		site := &SiteData{}
		if err := rows.Scan(&id, &site.Chromo, &site.Pos, &dna); err != nil {
			return nil, fmt.Errorf("scanning site: %w", err)
		}
		site.DNA = decodeInt8(dna)
		byID[id] = site
		c.Sites = append(c.Sites, site)
	}
	return byID, rows.Err()
}

func (s *Store) readOutputs(ctx context.Context, chunkID int64, byID map[int64]*SiteData) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.site_id, o.cell, o.kind, o.value
		 FROM site_outputs o JOIN sites s ON s.rowid = o.site_id
		 WHERE s.chunk_id = ?`, chunkID)
	if err != nil {
		return fmt.Errorf("reading outputs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var cell, kind string
		var value float64
		if err := rows.Scan(&id, &cell, &kind, &value); err != nil {
			return fmt.Errorf("scanning output: %w", err)
		}
		site := byID[id]
		if site == nil {
			continue
		}
		switch kind {
		case "cpg":
			if site.CpG == nil {
				site.CpG = make(map[string]float32)
			}
			site.CpG[cell] = float32(value)
		case "bulk":
			if site.Bulk == nil {
				site.Bulk = make(map[string]float32)
			}
			site.Bulk[cell] = float32(value)
		default:
			return fmt.Errorf("unknown output kind %q", kind)
		}
	}
	return rows.Err()
}

func (s *Store) readNeighbors(ctx context.Context, chunkID int64, byID map[int64]*SiteData) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT n.site_id, n.cell, n.states, n.dists
		 FROM site_neighbors n JOIN sites s ON s.rowid = n.site_id
		 WHERE s.chunk_id = ?`, chunkID)
	if err != nil {
		return fmt.Errorf("reading neighbours: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var cell string
		var states, dists []byte
		if err := rows.Scan(&id, &cell, &states, &dists); err != nil {
			return fmt.Errorf("scanning neighbours: %w", err)
		}
		site := byID[id]
		if site == nil {
			continue
		}
		if site.Knn == nil {
			site.Knn = make(map[string]NeighborRow)
		}
		site.Knn[cell] = NeighborRow{
			States: decodeInt8(states),
			Dists:  decodeFloat32(dists),
		}
	}
	return rows.Err()
}

func (s *Store) readStats(ctx context.Context, chunkID int64, byID map[int64]*SiteData) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.site_id, t.name, t.wlen, t.value
		 FROM site_stats t JOIN sites s ON s.rowid = t.site_id
		 WHERE s.chunk_id = ?`, chunkID)
	if err != nil {
		return fmt.Errorf("reading statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		var wlen int
		var value float64
		if err := rows.Scan(&id, &name, &wlen, &value); err != nil {
			return fmt.Errorf("scanning statistic: %w", err)
		}
		site := byID[id]
		if site == nil {
			continue
		}
		if site.Stats == nil {
			site.Stats = make(map[StatKey]float32)
		}
		site.Stats[StatKey{Name: name, Wlen: wlen}] = float32(value)
	}
	return rows.Err()
}

func (s *Store) readAnnos(ctx context.Context, chunkID int64, byID map[int64]*SiteData) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.site_id, a.name, a.value
		 FROM site_annos a JOIN sites s ON s.rowid = a.site_id
		 WHERE s.chunk_id = ?`, chunkID)
	if err != nil {
		return fmt.Errorf("reading annotations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		var value int
		if err := rows.Scan(&id, &name, &value); err != nil {
			return fmt.Errorf("scanning annotation: %w", err)
		}
		site := byID[id]
		if site == nil {
			continue
		}
		if site.Annos == nil {
			site.Annos = make(map[string]int8)
		}
		site.Annos[name] = int8(value)
	}
	return rows.Err()
}

// ChromoSummary counts one chromosome's stored sites and chunks.
type ChromoSummary struct {
	Chromo string
	Chunks int
	Sites  int
}

// Summary describes a stored dataset for inspection (R8.1).
type Summary struct {
	Path    string
	Chunks  int
	Sites   int
	Chromos []ChromoSummary
	Meta    Meta
}

// Summary collects per-chromosome counts and the build parameters.
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	sum := &Summary{Path: s.path}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chromo, COUNT(*), COALESCE(SUM(sites), 0)
		 FROM chunks GROUP BY chromo ORDER BY chromo`)
	if err != nil {
		return nil, fmt.Errorf("summarizing chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cs ChromoSummary
		if err := rows.Scan(&cs.Chromo, &cs.Chunks, &cs.Sites); err != nil {
			return nil, fmt.Errorf("scanning chunk summary: %w", err)
		}
		sum.Chromos = append(sum.Chromos, cs)
		sum.Chunks += cs.Chunks
		sum.Sites += cs.Sites
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	meta, err := s.ReadMeta(ctx)
	if err != nil {
		return nil, err
	}
	sum.Meta = meta
	return sum, nil
}

// FormatSummary writes a human-readable dataset description.
func FormatSummary(w io.Writer, sum *Summary) {
	fmt.Fprintf(w, "dataset: %s\n", sum.Path)
	if !sum.Meta.CreatedAt.IsZero() {
		fmt.Fprintf(w, "created: %s\n", sum.Meta.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(w, "cells: %d single-cell, %d bulk\n", len(sum.Meta.Cells), len(sum.Meta.Bulk))

	var inputs []string
	if sum.Meta.DNAWlen > 0 {
		inputs = append(inputs, fmt.Sprintf("dna windows (wlen %d)", sum.Meta.DNAWlen))
	}
	if sum.Meta.CpGWlen > 0 {
		inputs = append(inputs, fmt.Sprintf("cpg neighbours (wlen %d)", sum.Meta.CpGWlen))
	}
	if len(inputs) > 0 {
		fmt.Fprintf(w, "inputs: %s\n", strings.Join(inputs, ", "))
	}
	if len(sum.Meta.Stats) > 0 {
		fmt.Fprintf(w, "stats: %s\n", strings.Join(sum.Meta.Stats, ", "))
	}
	if len(sum.Meta.WinStats) > 0 {
		fmt.Fprintf(w, "window stats: %s (wlen %s)\n",
			strings.Join(sum.Meta.WinStats, ", "), joinInts(sum.Meta.WinStatsWlen))
	}

	for _, cs := range sum.Chromos {
		fmt.Fprintf(w, "chromosome %s: %d sites in %d chunks\n", cs.Chromo, cs.Sites, cs.Chunks)
	}
	fmt.Fprintf(w, "total: %d sites in %d chunks\n", sum.Sites, sum.Chunks)
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
