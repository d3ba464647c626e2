// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CheckStatus classifies the outcome of one verification check.
type CheckStatus string

const (
	// CheckOK means the check passed.
	CheckOK CheckStatus = "ok"

	// CheckWarn means the check could not be fully decided but nothing is
	// known to be broken.
	CheckWarn CheckStatus = "warn"

	// CheckFail means the check found a defect the curator must fix.
	CheckFail CheckStatus = "fail"
)

// CheckResult is the outcome of a single verification check.
// Per prd002-verification R5.1.
type CheckResult struct {
	// Name identifies the check family ("link", "citation", "page",
	// "page-links", "checksum").
	Name string `json:"name" yaml:"name"`

	// Target is what was checked: an archive URL, a DOI, or a page path.
	Target string `json:"target" yaml:"target"`

	// Status is the check outcome.
	Status CheckStatus `json:"status" yaml:"status"`

	// Detail explains warn and fail outcomes.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`

	// Elapsed is how long the check took.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}
