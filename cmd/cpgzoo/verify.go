// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cpgzoo/internal/catalog"
	"github.com/pdiddy/cpgzoo/internal/fetch"
	"github.com/pdiddy/cpgzoo/internal/index"
	"github.com/pdiddy/cpgzoo/internal/verify"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

const (
	defaultVerifyTimeout = 30 * time.Second
	defaultConcurrency   = 4
	defaultHostDelay     = 500 * time.Millisecond
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify catalogue links, citations, and page consistency",
	Long: `Verify runs consistency checks over the catalogue: that every archive
link still resolves, that each DOI agrees with its CrossRef record, and
that the rendered documentation page matches the catalogue. Checksum
spot-checks are opt-in because they download the archives.

Progress goes to stderr; the report goes to stdout. The command exits
non-zero when any check fails.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}

	cfg := verifyConfigFromFlags(cmd)

	page, _ := cmd.Flags().GetBool("page")
	links, _ := cmd.Flags().GetBool("links")
	citations, _ := cmd.Flags().GetBool("citations")
	checksums, _ := cmd.Flags().GetBool("checksums")

	docPath, _ := cmd.Flags().GetString("doc")
	if docPath == "" {
		docPath = configDefault("catalog.doc_path", catalog.DefaultDocPath)
	}

	opts := verify.Options{
		Page:      page,
		Links:     links,
		Citations: citations,
		DocPath:   docPath,
		PlusToken: secretDefault("crossref-plus-token", ""),
	}

	ctx := context.Background()
	client := &http.Client{Timeout: cfg.Timeout}

	report := verify.Run(ctx, client, cat, cfg, opts, os.Stderr)
	if checksums {
		grabClient := fetch.NewClient(types.FetchConfig{HTTPConfig: cfg.HTTPConfig})
		report.Checks = append(report.Checks, verify.CheckChecksums(ctx, grabClient, cat, cfg, os.Stderr)...)
	}

	if record, _ := cmd.Flags().GetBool("record"); record {
		if err := recordChecks(ctx, cmd, report.Checks); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record checks: %v\n", err)
		}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		if err := verify.FormatJSON(report, os.Stdout); err != nil {
			return err
		}
	} else {
		verify.FormatTable(report, os.Stdout)
	}

	if report.HasFailures() {
		_, _, fail := report.Counts()
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

// recordChecks appends this run's results to the index history so that
// persistent breakage is visible across runs.
func recordChecks(ctx context.Context, cmd *cobra.Command, checks []types.CheckResult) error {
	store, err := index.NewStore(indexConfigFromFlags(cmd))
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordChecks(ctx, checks)
}

func verifyConfigFromFlags(cmd *cobra.Command) types.VerifyConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultVerifyTimeout
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency == 0 {
		concurrency = defaultConcurrency
	}
	hostDelay, _ := cmd.Flags().GetDuration("host-delay")
	if hostDelay == 0 {
		hostDelay = defaultHostDelay
	}
	email, _ := cmd.Flags().GetString("contact-email")
	email = secretDefault("contact-email", email)
	if email == "" {
		email = configDefault("verify.contact_email", "")
	}

	return types.VerifyConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		Concurrency:  concurrency,
		HostDelay:    hostDelay,
		ContactEmail: email,
	}
}

func init() {
	verifyCmd.Flags().String("catalog", "", "catalogue file (default catalog/catalog.yaml)")
	verifyCmd.Flags().String("doc", "", "rendered page path (default docs/models.md)")
	verifyCmd.Flags().Bool("page", true, "check the rendered page against the catalogue")
	verifyCmd.Flags().Bool("links", true, "check archive links with HEAD requests")
	verifyCmd.Flags().Bool("citations", true, "check DOIs against CrossRef")
	verifyCmd.Flags().Bool("checksums", false, "download archives and verify sha256 digests")
	verifyCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	verifyCmd.Flags().Int("concurrency", 0, "link checks in flight at once (default 4)")
	verifyCmd.Flags().Duration("host-delay", 0, "pause between requests to the same host (default 500ms)")
	verifyCmd.Flags().String("contact-email", "", "CrossRef polite-pool contact (default from .secrets/)")
	verifyCmd.Flags().Bool("record", false, "record results in the catalogue index history")
	verifyCmd.Flags().Bool("json", false, "output the report as JSON")

	rootCmd.AddCommand(verifyCmd)
}
