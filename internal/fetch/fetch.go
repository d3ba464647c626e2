// Package fetch downloads model archives and unpacks them into the local
// models directory.
// Implements: prd003-fetch (R1-R5);
//
//	docs/ARCHITECTURE § Fetch.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cpgzoo/internal/catalog"
	"github.com/pdiddy/cpgzoo/pkg/types"
)

const (
	archivesDir = "archives"
	metadataDir = "metadata"
)

// BatchResult holds the outcome of a fetch run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Records    []*types.ModelRecord
}

// Total returns the total number of modules processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any module failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// NewClient builds the download client from config.
func NewClient(cfg types.FetchConfig) *grab.Client {
	client := grab.NewClient()
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	if cfg.Timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return client
}

// FetchModel resolves a model name and fetches each of its archives in
// canonical module order. A bare dataset name fetches all three modules;
// a fully qualified name fetches one (R1.1, R1.2). Individual archive
// failures do not stop the rest (R5.1).
func FetchModel(ctx context.Context, client *grab.Client, name string, cat *types.Catalog, cfg types.FetchConfig, w io.Writer) BatchResult {
	var result BatchResult

	sel, err := catalog.Resolve(cat, name)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		result.Failed++
		return result
	}

	for i, a := range sel.Archives {
		if i > 0 && cfg.DownloadDelay > 0 {
			time.Sleep(cfg.DownloadDelay)
		}
		moduleName := catalog.ModelName(sel.Publication.ID, sel.Dataset.Name, a.Kind)
		rec, wasSkipped, err := fetchModule(ctx, client, moduleName, a, cfg, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", moduleName, err)
			result.Failed++
			continue
		}
		if wasSkipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
		result.Records = append(result.Records, rec)
	}
	return result
}

// FetchBatch fetches multiple model names, printing per-item status and a
// summary. It continues after individual failures (R5.1) and applies a
// delay between consecutive downloads (R2.6).
func FetchBatch(ctx context.Context, client *grab.Client, names []string, cat *types.Catalog, cfg types.FetchConfig, w io.Writer) BatchResult {
	var result BatchResult
	for i, name := range names {
		if i > 0 && cfg.DownloadDelay > 0 {
			time.Sleep(cfg.DownloadDelay)
		}
		r := FetchModel(ctx, client, name, cat, cfg, w)
		result.Downloaded += r.Downloaded
		result.Skipped += r.Skipped
		result.Failed += r.Failed
		result.Records = append(result.Records, r.Records...)
	}
	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}

// fetchModule downloads and unpacks one module archive, writing its record
// sidecar. If the module directory already exists the download is skipped
// (R2.4).
func fetchModule(ctx context.Context, client *grab.Client, name string, a types.Archive, cfg types.FetchConfig, w io.Writer) (rec *types.ModelRecord, skipped bool, err error) {
	destDir := filepath.Join(cfg.ModelsDir, name)
	metaPath := filepath.Join(cfg.ModelsDir, metadataDir, name+".yaml")

	if _, err := os.Stat(destDir); err == nil {
		fmt.Fprintf(w, "skipped: %s (already unpacked)\n", name)
		r, readErr := readRecord(metaPath)
		if readErr != nil {
			r = &types.ModelRecord{ID: name, SourceURL: a.URL, Dir: destDir, Status: types.FetchUnpacked}
		}
		return r, true, nil
	}

	for _, dir := range []string{
		filepath.Join(cfg.ModelsDir, archivesDir),
		filepath.Join(cfg.ModelsDir, metadataDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	archivePath := filepath.Join(cfg.ModelsDir, archivesDir, name+".zip")
	fmt.Fprintf(w, "downloading: %s\n", name)
	digest, err := download(ctx, client, a, archivePath, w)
	if err != nil {
		return nil, false, fmt.Errorf("downloading %s: %w", name, err)
	}

	rec = &types.ModelRecord{
		ID:        name,
		SourceURL: a.URL,
		Dir:       destDir,
		SHA256:    digest,
		FetchedAt: time.Now().UTC(),
		Status:    types.FetchDownloaded,
	}

	fmt.Fprintf(w, "unpacking: %s\n", name)
	files, err := Unpack(archivePath, destDir)
	if err != nil {
		rec.Status = types.FetchFailed
		if werr := writeRecord(rec, metaPath); werr != nil {
			fmt.Fprintf(w, "warning: writing record for %s: %v\n", name, werr)
		}
		return nil, false, fmt.Errorf("unpacking %s: %w", name, err)
	}
	rec.Files = files
	rec.Status = types.FetchUnpacked

	if err := writeRecord(rec, metaPath); err != nil {
		return nil, false, fmt.Errorf("writing record for %s: %w", name, err)
	}
	return rec, false, nil
}

// download fetches a.URL to destPath, resuming a partial file when the
// server supports ranges (R2.1). A declared checksum is verified by the
// transfer and a mismatch deletes the file (R2.2). Returns the archive
// digest.
func download(ctx context.Context, client *grab.Client, a types.Archive, destPath string, w io.Writer) (string, error) {
	req, err := grab.NewRequest(destPath, a.URL)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req = req.WithContext(ctx)

	if a.SHA256 != "" {
		sum, err := hex.DecodeString(a.SHA256)
		if err != nil {
			return "", fmt.Errorf("declared sha256 is not hex: %w", err)
		}
		req.SetChecksum(sha256.New(), sum, true)
	}

	resp := client.Do(req)
	if resp.DidResume {
		fmt.Fprintln(w, "  resuming partial download")
	}

	// Progress lines for long transfers (R2.3); short ones finish before
	// the first tick.
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
Loop:
	for {
		select {
		case <-t.C:
			if size := resp.Size(); size > 0 {
				fmt.Fprintf(w, "  %3.0f%% of %d bytes\n", 100*resp.Progress(), size)
			}
		case <-resp.Done:
			break Loop
		}
	}
	if err := resp.Err(); err != nil {
		return "", err
	}

	if a.SHA256 != "" {
		return a.SHA256, nil
	}
	return fileSHA256(resp.Filename)
}

// VerifyArchive downloads one archive into dir and verifies its declared
// digest. The caller owns dir and its cleanup. Resume is disabled so a
// stale partial file cannot satisfy the check. Per prd002-verification R4.
func VerifyArchive(ctx context.Context, client *grab.Client, a types.Archive, dir string) error {
	if a.SHA256 == "" {
		return fmt.Errorf("no declared sha256")
	}
	sum, err := hex.DecodeString(a.SHA256)
	if err != nil {
		return fmt.Errorf("declared sha256 is not hex: %w", err)
	}

	req, err := grab.NewRequest(dir, a.URL)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true
	req.SetChecksum(sha256.New(), sum, true)

	resp := client.Do(req)
	return resp.Err()
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeRecord writes the sidecar through a temp file so a crash cannot
// leave a half-written record (R4.3).
func writeRecord(rec *types.ModelRecord, path string) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing record: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func readRecord(path string) (*types.ModelRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec types.ModelRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
