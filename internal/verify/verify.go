// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify checks catalogue health: archive link liveness, citation
// DOIs against CrossRef, and drift between the catalogue and the rendered
// page.
// Implements: prd002-verification (R1-R5);
//
//	docs/ARCHITECTURE § Verification.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

// Options selects the check families a run executes. cmd fills it from
// flags with every family on by default.
type Options struct {
	Page      bool
	Links     bool
	Citations bool

	// DocPath is the rendered page the drift check reads.
	DocPath string

	// PlusToken is the optional CrossRef Plus token from .secrets/.
	PlusToken string
}

// Report collects the results of one verification run.
type Report struct {
	Checks []types.CheckResult `json:"checks" yaml:"checks"`
}

// Counts returns the number of checks per status.
func (r Report) Counts() (ok, warn, fail int) {
	for _, c := range r.Checks {
		switch c.Status {
		case types.CheckOK:
			ok++
		case types.CheckWarn:
			warn++
		default:
			fail++
		}
	}
	return ok, warn, fail
}

// HasFailures reports whether any check failed.
func (r Report) HasFailures() bool {
	_, _, fail := r.Counts()
	return fail > 0
}

// Run executes the selected check families and returns the combined
// report. Local page checks run first so structural breakage is visible
// before any network round trips (R5.2).
func Run(ctx context.Context, client *http.Client, cat *types.Catalog, cfg types.VerifyConfig, opts Options, w io.Writer) Report {
	var report Report
	if opts.Page {
		report.Checks = append(report.Checks, CheckPage(cat, opts.DocPath, w)...)
	}
	if opts.Links {
		report.Checks = append(report.Checks, CheckLinks(ctx, client, cat, cfg, w)...)
	}
	if opts.Citations {
		report.Checks = append(report.Checks, CheckCitations(ctx, client, cat, cfg, opts.PlusToken, w)...)
	}
	return report
}

// FormatTable writes the report as a human-readable table to w (R5.3).
func FormatTable(r Report, w io.Writer) {
	if len(r.Checks) == 0 {
		fmt.Fprintln(w, "No checks ran.")
		return
	}

	fmt.Fprintf(w, "%-10s  %-5s  %-58s  %s\n", "Check", "State", "Target", "Detail")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, c := range r.Checks {
		target := c.Target
		if len(target) > 58 {
			target = target[:55] + "..."
		}
		fmt.Fprintf(w, "%-10s  %-5s  %-58s  %s\n", c.Name, c.Status, target, c.Detail)
	}

	ok, warn, fail := r.Counts()
	fmt.Fprintf(w, "\n%d checks: %d ok, %d warn, %d fail\n", len(r.Checks), ok, warn, fail)
}

// FormatJSON writes the report as indented JSON to w (R5.3).
func FormatJSON(r Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
