// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/cpgzoo/pkg/types"
)

func TestRunAllFamilies(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/archives/"):
			// Live archive.
		case strings.HasPrefix(r.URL.Path, "/works/"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, sampleWorksJSON)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()
	restore := overrideCrossRef(ts.URL)
	defer restore()

	cat := linkCatalog(ts.URL)
	path := writePage(t, cat, t.TempDir())

	var buf bytes.Buffer
	report := Run(context.Background(), ts.Client(), cat, testVerifyConfig(), Options{
		Page:      true,
		Links:     true,
		Citations: true,
		DocPath:   path,
	}, &buf)

	// One page check, one page-links check, three link checks, one citation.
	if len(report.Checks) != 6 {
		t.Fatalf("got %d checks, want 6:\n%+v", len(report.Checks), report.Checks)
	}
	if report.HasFailures() {
		t.Errorf("unexpected failures:\n%+v", report.Checks)
	}
	ok, warn, fail := report.Counts()
	if ok != 6 || warn != 0 || fail != 0 {
		t.Errorf("counts = (%d, %d, %d), want (6, 0, 0)", ok, warn, fail)
	}
}

func TestRunSelectsFamilies(t *testing.T) {
	cat := linkCatalog("https://zoo.example.org")
	path := writePage(t, cat, t.TempDir())

	var buf bytes.Buffer
	report := Run(context.Background(), http.DefaultClient, cat, testVerifyConfig(), Options{
		Page:    true,
		DocPath: path,
	}, &buf)

	for _, c := range report.Checks {
		if c.Name == "link" || c.Name == "citation" {
			t.Errorf("disabled family ran: %q", c.Name)
		}
	}
}

func TestReportCounts(t *testing.T) {
	r := Report{Checks: []types.CheckResult{
		{Name: "link", Status: types.CheckOK},
		{Name: "link", Status: types.CheckFail},
		{Name: "citation", Status: types.CheckWarn},
		{Name: "page", Status: types.CheckOK},
	}}

	ok, warn, fail := r.Counts()
	if ok != 2 || warn != 1 || fail != 1 {
		t.Errorf("counts = (%d, %d, %d), want (2, 1, 1)", ok, warn, fail)
	}
	if !r.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if (Report{}).HasFailures() {
		t.Error("empty report should have no failures")
	}
}

func TestFormatTable(t *testing.T) {
	r := Report{Checks: []types.CheckResult{
		{Name: "page", Target: "docs/models.md", Status: types.CheckOK, Detail: "matches catalogue render"},
		{Name: "link", Target: "https://zoo.example.org/deepcpg/Smallwood2014_serum_dna.zip", Status: types.CheckFail, Detail: "HTTP 404"},
	}}

	var buf bytes.Buffer
	FormatTable(r, &buf)
	out := buf.String()

	for _, want := range []string{"Check", "docs/models.md", "HTTP 404", "2 checks: 1 ok, 0 warn, 1 fail"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(Report{}, &buf)
	if !strings.Contains(buf.String(), "No checks ran.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	r := Report{Checks: []types.CheckResult{
		{Name: "link", Target: "https://zoo.example.org/a.zip", Status: types.CheckOK},
	}}

	var buf bytes.Buffer
	if err := FormatJSON(r, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Checks) != 1 || decoded.Checks[0].Target != "https://zoo.example.org/a.zip" {
		t.Errorf("decoded = %+v", decoded)
	}
}
