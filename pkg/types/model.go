// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FetchStatus indicates how far a model archive got through the fetch stage.
// Per prd003-fetch R4.2.
type FetchStatus string

const (
	FetchNone       FetchStatus = "none"
	FetchDownloaded FetchStatus = "downloaded"
	FetchUnpacked   FetchStatus = "unpacked"
	FetchFailed     FetchStatus = "failed"
)

// ModelRecord holds provenance for a fetched model module, written as a
// YAML sidecar next to the unpacked files. Per prd003-fetch R4.1: source
// URL, archive digest, fetch time, and the unpacked file listing.
type ModelRecord struct {
	// ID is the model name the record belongs to (e.g. "Smallwood2014_serum_dna").
	ID string `json:"id" yaml:"id"`

	// SourceURL is the URL the archive was downloaded from.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// Dir is the local directory the archive was unpacked into.
	Dir string `json:"dir" yaml:"dir"`

	// SHA256 is the hex digest of the downloaded archive.
	SHA256 string `json:"sha256" yaml:"sha256"`

	// FetchedAt records when the download completed.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`

	// Files lists the unpacked entries relative to Dir, in archive order.
	Files []string `json:"files" yaml:"files"`

	// Status tracks the fetch outcome for the module.
	Status FetchStatus `json:"status" yaml:"status"`
}
