package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cpgzoo/internal/fetch"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "cpgzoo/0.1"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [models...]",
	Short: "Download and unpack pre-trained model archives",
	Long: `Fetch resolves model names against the catalogue, downloads their zip
archives, verifies declared checksums, and unpacks each module into the
models directory. Already-unpacked modules are skipped, and a metadata
record is written per model.`,
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more model names (e.g. Smallwood2014_serum_dna)")
	}

	cat, err := loadCatalog(cmd)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = defaultDelay
	}
	modelsDir, _ := cmd.Flags().GetString("models-dir")
	if modelsDir == "" {
		modelsDir = configDefault("fetch.models_dir", "models")
	}

	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		DownloadDelay: delay,
		ModelsDir:     modelsDir,
	}

	client := fetch.NewClient(cfg)
	result := fetch.FetchBatch(context.Background(), client, args, cat, cfg, os.Stdout)

	fmt.Fprintf(os.Stdout, "\n%d module(s) downloaded, %d skipped, %d failed\n",
		result.Downloaded, result.Skipped, result.Failed)
	if result.HasFailures() {
		return fmt.Errorf("%d module(s) failed to fetch", result.Failed)
	}
	return nil
}

func init() {
	fetchCmd.Flags().String("catalog", "", "catalogue file (default catalog/catalog.yaml)")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	fetchCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	fetchCmd.Flags().String("models-dir", "", "base directory for fetched models (default models)")

	rootCmd.AddCommand(fetchCmd)
}
