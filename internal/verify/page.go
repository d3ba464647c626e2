// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pdiddy/cpgzoo/internal/catalog"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

// CheckPage compares the page on disk against a fresh render of the
// catalogue (R2.2) and checks the page's own structure: every dataset
// subsection must link exactly one archive per module kind (R2.1). The
// structure check runs on the disk bytes, so a drifted page still gets
// its links counted.
func CheckPage(cat *types.Catalog, docPath string, w io.Writer) []types.CheckResult {
	start := time.Now()

	disk, err := os.ReadFile(docPath)
	if err != nil {
		return []types.CheckResult{{
			Name:    "page",
			Target:  docPath,
			Status:  types.CheckFail,
			Detail:  fmt.Sprintf("reading page: %v", err),
			Elapsed: time.Since(start),
		}}
	}

	var results []types.CheckResult

	want, err := catalog.Render(cat)
	switch {
	case err != nil:
		results = append(results, types.CheckResult{
			Name: "page", Target: docPath, Status: types.CheckFail,
			Detail: fmt.Sprintf("rendering catalogue: %v", err), Elapsed: time.Since(start),
		})
	case bytes.Equal(disk, want):
		results = append(results, types.CheckResult{
			Name: "page", Target: docPath, Status: types.CheckOK,
			Detail: "matches catalogue render", Elapsed: time.Since(start),
		})
	default:
		results = append(results, types.CheckResult{
			Name: "page", Target: docPath, Status: types.CheckFail,
			Detail: fmt.Sprintf("drift from catalogue render, first difference at line %d; run catalog render",
				diffLine(disk, want)),
			Elapsed: time.Since(start),
		})
	}

	doc, err := catalog.ImportDocument(disk)
	if err != nil {
		results = append(results, types.CheckResult{
			Name: "page-links", Target: docPath, Status: types.CheckFail,
			Detail: fmt.Sprintf("parsing page: %v", err),
		})
		reportWarnings(results, w)
		return results
	}

	for _, s := range doc.Sections {
		for _, d := range s.Datasets {
			results = append(results, checkDatasetLinks(s, d))
		}
	}

	reportWarnings(results, w)
	return results
}

// checkDatasetLinks verifies one dataset subsection carries exactly one
// link per module kind.
func checkDatasetLinks(s catalog.PageSection, d catalog.PageDataset) types.CheckResult {
	target := d.ModelName
	if target == "" {
		target = s.Heading + " / " + d.Label
	}
	res := types.CheckResult{Name: "page-links", Target: target}

	counts := make(map[types.ModuleKind]int)
	unknown := 0
	for _, l := range d.Links {
		kind, ok := catalog.KindFromLinkText(l.Text)
		if !ok {
			unknown++
			continue
		}
		counts[kind]++
	}

	var problems []string
	for _, k := range types.ModuleKinds() {
		switch counts[k] {
		case 1:
		case 0:
			problems = append(problems, fmt.Sprintf("missing %s link", k))
		default:
			problems = append(problems, fmt.Sprintf("%d %s links", counts[k], k))
		}
	}
	if unknown > 0 {
		problems = append(problems, fmt.Sprintf("%d links with unrecognized label", unknown))
	}

	if len(problems) > 0 {
		res.Status = types.CheckFail
		res.Detail = joinProblems(problems)
		return res
	}
	if d.ModelName == "" {
		res.Status = types.CheckWarn
		res.Detail = "no model name line in subsection"
		return res
	}

	res.Status = types.CheckOK
	return res
}

func joinProblems(problems []string) string {
	out := problems[0]
	for _, p := range problems[1:] {
		out += "; " + p
	}
	return out
}

// diffLine returns the 1-based number of the first line where a and b
// differ.
func diffLine(a, b []byte) int {
	al := bytes.Split(a, []byte("\n"))
	bl := bytes.Split(b, []byte("\n"))
	n := len(al)
	if len(bl) < n {
		n = len(bl)
	}
	for i := 0; i < n; i++ {
		if !bytes.Equal(al[i], bl[i]) {
			return i + 1
		}
	}
	return n + 1
}

func reportWarnings(results []types.CheckResult, w io.Writer) {
	for _, r := range results {
		if r.Status != types.CheckOK {
			fmt.Fprintf(w, "warning: %s: %s\n", r.Target, r.Detail)
		}
	}
}
