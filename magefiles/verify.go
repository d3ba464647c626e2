package main

import "fmt"

// Verify checks archive links, DOIs, and page consistency against the catalogue.
// See prd002-verification for full requirements.
func Verify() error {
	fmt.Println("[verify] Check archive links, DOIs, and the rendered page against the catalogue.")
	fmt.Println("[verify] Not yet implemented.")
	return nil
}
