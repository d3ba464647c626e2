package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "cpgzoo/0.1"). Per prd002-verification R3.3, prd003-fetch R2.5.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CatalogConfig holds settings for the catalogue stage.
// Per prd001-catalog R1.1, R3.4.
type CatalogConfig struct {
	// Path is the catalogue source of truth (default "catalog/catalog.yaml").
	Path string `json:"path" yaml:"path"`

	// DocPath is the rendered page location (default "docs/models.md").
	DocPath string `json:"doc_path" yaml:"doc_path"`
}

// VerifyConfig holds settings for the verification stage.
// Per prd002-verification R1.4, R3.3.
type VerifyConfig struct {
	HTTPConfig `yaml:",inline"`

	// Concurrency is the number of link checks in flight at once (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// HostDelay is the pause between consecutive requests to the same host
	// (default 500ms).
	HostDelay time.Duration `json:"host_delay" yaml:"host_delay"`

	// ContactEmail joins the CrossRef polite pool via the mailto parameter.
	// Overridden by the contact-email secret when present.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
}

// FetchConfig holds settings for the fetch stage.
// Per prd003-fetch R2.3, R2.6.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadDelay is the delay between consecutive archive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// ModelsDir is the base directory for fetched models (contains one
	// directory per model plus metadata/).
	ModelsDir string `json:"models_dir" yaml:"models_dir"`
}

// IndexConfig holds settings for the catalogue index stage.
// Per prd004-index R1.3, R3.3.
type IndexConfig struct {
	// IndexDir is the directory holding zoo.db.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// DataConfig holds defaults for the data preparation stage.
// Per prd005-dataprep R3.1, R4.1, R6.1.
type DataConfig struct {
	// DNAWlen is the DNA window length in base pairs; must be odd (default 1001).
	DNAWlen int `json:"dna_wlen" yaml:"dna_wlen"`

	// CpGWlen is the total neighbour count per site; must be even (default 50).
	CpGWlen int `json:"cpg_wlen" yaml:"cpg_wlen"`

	// ChunkSize is the number of sites per output chunk (default 32768).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// MinCoverage keeps only sites observed in at least this many cells (default 1).
	MinCoverage int `json:"min_coverage" yaml:"min_coverage"`

	// OutDir is the directory the dataset store is written to.
	OutDir string `json:"out_dir" yaml:"out_dir"`
}

// ZooConfig groups all stage configurations for the pipeline.
type ZooConfig struct {
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Verify  VerifyConfig  `json:"verify" yaml:"verify"`
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch"`
	Index   IndexConfig   `json:"index" yaml:"index"`
	Data    DataConfig    `json:"data" yaml:"data"`
}
