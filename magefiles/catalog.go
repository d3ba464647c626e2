package main

import "fmt"

// Render regenerates the documentation page from the catalogue.
// See prd001-catalog for full requirements.
func Render() error {
	fmt.Println("[catalog] Render the catalogue YAML to the documentation page.")
	fmt.Println("[catalog] Not yet implemented.")
	return nil
}
