// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/cpgzoo/internal/catalog"
	"github.com/pdiddy/cpgzoo/internal/httputil"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

const defaultConcurrency = 4

// linkTarget is one archive URL together with the module it serves.
type linkTarget struct {
	model string
	url   string
}

// CheckLinks probes every archive URL in the catalogue. Checks fan out per
// host so distinct mirrors run in parallel, bounded by cfg.Concurrency,
// while consecutive requests to one host honor cfg.HostDelay. Results come
// back sorted by URL so a run is reproducible. Per R1.1-R1.4.
func CheckLinks(ctx context.Context, client *http.Client, cat *types.Catalog, cfg types.VerifyConfig, w io.Writer) []types.CheckResult {
	byHost := make(map[string][]linkTarget)
	total := 0
	for _, e := range catalog.List(cat, catalog.Filter{}) {
		host := ""
		if u, err := url.Parse(e.Archive.URL); err == nil {
			host = u.Host
		}
		byHost[host] = append(byHost[host], linkTarget{model: e.Name, url: e.Archive.URL})
		total++
	}
	if total == 0 {
		return nil
	}

	fmt.Fprintf(w, "checking: %d archive links across %d hosts\n", total, len(byHost))

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	sem := make(chan struct{}, concurrency)
	ch := make(chan types.CheckResult, total)
	var wg sync.WaitGroup

	for _, targets := range byHost {
		wg.Add(1)
		go func(targets []linkTarget) {
			defer wg.Done()
			for i, t := range targets {
				if i > 0 && cfg.HostDelay > 0 {
					select {
					case <-ctx.Done():
						ch <- types.CheckResult{
							Name: "link", Target: t.url,
							Status: types.CheckFail, Detail: ctx.Err().Error(),
						}
						continue
					case <-time.After(cfg.HostDelay):
					}
				}
				sem <- struct{}{}
				res := checkLink(ctx, client, t, cfg)
				<-sem
				ch <- res
			}
		}(targets)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var results []types.CheckResult
	for res := range ch {
		if res.Status != types.CheckOK {
			fmt.Fprintf(w, "warning: %s: %s\n", res.Target, res.Detail)
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Target < results[j].Target })
	return results
}

// checkLink probes one URL. HEAD goes first; a 404 or 410 from HEAD is
// authoritative, any other non-2xx falls back to GET because some mirrors
// reject HEAD outright (R1.2). Redirects are followed by the client, so
// the status seen here is the final one.
func checkLink(ctx context.Context, client *http.Client, t linkTarget, cfg types.VerifyConfig) types.CheckResult {
	start := time.Now()
	res := types.CheckResult{Name: "link", Target: t.url}

	headStatus, err := probe(ctx, client, http.MethodHead, t.url, cfg)
	switch {
	case err != nil:
		res.Status = types.CheckFail
		res.Detail = err.Error()
	case headStatus >= 200 && headStatus < 300:
		res.Status = types.CheckOK
	case headStatus == http.StatusNotFound || headStatus == http.StatusGone:
		res.Status = types.CheckFail
		res.Detail = fmt.Sprintf("HTTP %d", headStatus)
	default:
		getStatus, getErr := probe(ctx, client, http.MethodGet, t.url, cfg)
		switch {
		case getErr != nil:
			res.Status = types.CheckFail
			res.Detail = getErr.Error()
		case getStatus >= 200 && getStatus < 300:
			res.Status = types.CheckOK
			res.Detail = fmt.Sprintf("HEAD rejected (HTTP %d), GET ok", headStatus)
		default:
			res.Status = types.CheckFail
			res.Detail = fmt.Sprintf("HTTP %d", getStatus)
		}
	}

	res.Elapsed = time.Since(start)
	return res
}

// probe issues one request and returns the final status code. The body is
// drained up to a small cap so GET fallbacks do not pull whole archives.
func probe(ctx context.Context, client *http.Client, method, rawURL string, cfg types.VerifyConfig) (int, error) {
	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return resp.StatusCode, nil
}
