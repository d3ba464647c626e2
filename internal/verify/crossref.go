// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/cpgzoo/internal/httputil"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

// crossrefAPIBase is the CrossRef works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works/"

// CrossRef API JSON structures.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title []string `json:"title"`
	DOI   string   `json:"DOI"`
}

// CheckCitations resolves every publication DOI at CrossRef and compares
// the registered title against the catalogue title after normalization
// (R3.1, R3.2). The contact email joins the polite pool via the mailto
// parameter; a Plus token rides in the Crossref-Plus-API-Token header
// (R3.3, R3.4). Requests are sequential with cfg.HostDelay between them
// since they all hit one host.
func CheckCitations(ctx context.Context, client *http.Client, cat *types.Catalog, cfg types.VerifyConfig, plusToken string, w io.Writer) []types.CheckResult {
	if len(cat.Publications) == 0 {
		return nil
	}

	fmt.Fprintf(w, "checking: %d publication DOIs\n", len(cat.Publications))

	var results []types.CheckResult
	for i, p := range cat.Publications {
		if i > 0 && cfg.HostDelay > 0 {
			time.Sleep(cfg.HostDelay)
		}
		res := checkDOI(ctx, client, p, cfg, plusToken)
		if res.Status != types.CheckOK {
			fmt.Fprintf(w, "warning: %s: %s\n", res.Target, res.Detail)
		}
		results = append(results, res)
	}
	return results
}

// checkDOI resolves one DOI and compares titles.
func checkDOI(ctx context.Context, client *http.Client, p types.Publication, cfg types.VerifyConfig, plusToken string) types.CheckResult {
	start := time.Now()
	res := types.CheckResult{Name: "citation", Target: p.DOI}
	fail := func(detail string) types.CheckResult {
		res.Status = types.CheckFail
		res.Detail = detail
		res.Elapsed = time.Since(start)
		return res
	}

	if p.DOI == "" {
		return fail(fmt.Sprintf("publication %s has no DOI", p.ID))
	}

	apiURL := crossrefAPIBase + p.DOI
	if cfg.ContactEmail != "" {
		apiURL += "?mailto=" + url.QueryEscape(cfg.ContactEmail)
	}

	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return fail(fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	if plusToken != "" {
		req.Header.Set("Crossref-Plus-API-Token", "Bearer "+plusToken)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fail(fmt.Sprintf("CrossRef request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fail("DOI not registered (HTTP 404)")
	}
	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Sprintf("CrossRef returned HTTP %d", resp.StatusCode))
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return fail(fmt.Sprintf("parsing CrossRef response: %v", err))
	}

	if len(cr.Message.Title) == 0 {
		res.Status = types.CheckWarn
		res.Detail = "CrossRef record has no title to compare"
		res.Elapsed = time.Since(start)
		return res
	}
	if p.Title == "" {
		res.Status = types.CheckWarn
		res.Detail = fmt.Sprintf("catalogue has no title for %s", p.ID)
		res.Elapsed = time.Since(start)
		return res
	}

	if normalizeTitle(cr.Message.Title[0]) != normalizeTitle(p.Title) {
		return fail(fmt.Sprintf("title mismatch: CrossRef has %q", cr.Message.Title[0]))
	}

	res.Status = types.CheckOK
	res.Elapsed = time.Since(start)
	return res
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the
// title, so casing and hyphenation differences between the catalogue and
// the registry do not count as a mismatch (R3.2).
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
