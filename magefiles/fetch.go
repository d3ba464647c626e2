package main

import "fmt"

// Fetch downloads and unpacks pre-trained model archives.
// See prd003-fetch for full requirements.
func Fetch() error {
	fmt.Println("[fetch] Download model archives, verify checksums, and unpack modules.")
	fmt.Println("[fetch] Not yet implemented.")
	return nil
}
