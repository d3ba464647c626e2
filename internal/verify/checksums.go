// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"

	"github.com/pdiddy/cpgzoo/internal/catalog"
	"github.com/pdiddy/cpgzoo/internal/fetch"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

// CheckChecksums downloads every archive that declares a digest and
// verifies it (R4). Archives without a declared digest stay out of the
// report; the catalogue validator already flags malformed declarations.
// Downloads land in a scratch directory that is removed afterwards, so
// this is strictly a spot-check, not a fetch.
func CheckChecksums(ctx context.Context, client *grab.Client, cat *types.Catalog, cfg types.VerifyConfig, w io.Writer) []types.CheckResult {
	var targets []catalog.Entry
	for _, e := range catalog.List(cat, catalog.Filter{}) {
		if e.Archive.SHA256 != "" {
			targets = append(targets, e)
		}
	}
	if len(targets) == 0 {
		fmt.Fprintln(w, "no archives declare a sha256; nothing to spot-check")
		return nil
	}

	scratch, err := os.MkdirTemp("", "cpgzoo-verify-*")
	if err != nil {
		return []types.CheckResult{{
			Name:   "checksum",
			Target: "scratch directory",
			Status: types.CheckFail,
			Detail: err.Error(),
		}}
	}
	defer os.RemoveAll(scratch)

	fmt.Fprintf(w, "checking: %d declared checksums\n", len(targets))

	var results []types.CheckResult
	for i, e := range targets {
		if i > 0 && cfg.HostDelay > 0 {
			time.Sleep(cfg.HostDelay)
		}

		start := time.Now()
		res := types.CheckResult{Name: "checksum", Target: e.Archive.URL}

		dir := filepath.Join(scratch, e.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			res.Status = types.CheckFail
			res.Detail = err.Error()
		} else if err := fetch.VerifyArchive(ctx, client, e.Archive, dir); err != nil {
			res.Status = types.CheckFail
			res.Detail = err.Error()
			fmt.Fprintf(w, "warning: %s: %v\n", e.Name, err)
		} else {
			res.Status = types.CheckOK
		}

		res.Elapsed = time.Since(start)
		results = append(results, res)
	}
	return results
}
