// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

// StoredCheck is a persisted verification result (R5.1).
type StoredCheck struct {
	types.CheckResult `yaml:",inline"`
	CheckedAt         time.Time `json:"checked_at" yaml:"checked_at"`
}

// RecordChecks appends verification results to the link_checks history
// (R5.1, R5.2). All results from one run share a timestamp.
func (s *Store) RecordChecks(ctx context.Context, results []types.CheckResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO link_checks (name, target, status, detail, elapsed_ms, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	checkedAt := time.Now().UTC().Format(time.RFC3339)
	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			r.Name, r.Target, string(r.Status), r.Detail,
			r.Elapsed.Milliseconds(), checkedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting check for %s: %w", r.Target, err)
		}
	}

	return tx.Commit()
}

// LatestChecks returns the most recent persisted checks, newest first
// (R5.3). A non-positive limit uses the store default.
func (s *Store) LatestChecks(ctx context.Context, limit int) ([]StoredCheck, error) {
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, target, status, detail, elapsed_ms, checked_at
		 FROM link_checks ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying checks: %w", err)
	}
	defer rows.Close()

	var checks []StoredCheck
	for rows.Next() {
		var (
			c         StoredCheck
			status    string
			elapsedMS int64
			checkedAt string
		)
		if err := rows.Scan(&c.Name, &c.Target, &status, &c.Detail, &elapsedMS, &checkedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		c.Status = types.CheckStatus(status)
		c.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339, checkedAt); err == nil {
			c.CheckedAt = ts
		}
		checks = append(checks, c)
	}

	return checks, rows.Err()
}

// FailingSince reports targets whose most recent persisted check failed
// (R5.4). Used by the CLI to surface persistent breakage across runs.
func (s *Store) FailingSince(ctx context.Context) ([]StoredCheck, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, target, status, detail, elapsed_ms, checked_at
		 FROM link_checks
		 WHERE rowid IN (SELECT max(rowid) FROM link_checks GROUP BY target)
			AND status = 'fail'
		 ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("querying failing targets: %w", err)
	}
	defer rows.Close()

	var checks []StoredCheck
	for rows.Next() {
		var (
			c         StoredCheck
			status    string
			elapsedMS int64
			checkedAt string
		)
		if err := rows.Scan(&c.Name, &c.Target, &status, &c.Detail, &elapsedMS, &checkedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		c.Status = types.CheckStatus(status)
		c.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339, checkedAt); err == nil {
			c.CheckedAt = ts
		}
		checks = append(checks, c)
	}

	return checks, rows.Err()
}
