package main

import "fmt"

// Prepare extracts model-ready features from methylation profiles.
// See prd005-dataprep for full requirements.
func Prepare() error {
	fmt.Println("[data] Extract per-site features from methylation profiles into a chunked dataset.")
	fmt.Println("[data] Not yet implemented.")
	return nil
}
