package main

import "fmt"

// Index ingests the catalogue into the SQLite index and builds the search tables.
// See prd004-index for full requirements.
func Index() error {
	fmt.Println("[index] Ingest the catalogue into the SQLite index with FTS5 search.")
	fmt.Println("[index] Not yet implemented.")
	return nil
}
