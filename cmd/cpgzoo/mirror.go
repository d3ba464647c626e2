package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Re-host catalogued archives on a local mirror",
	Long: `Mirror downloads every catalogued archive and re-uploads it to a
mirror host, rewriting the catalogue URLs to point at the new copies.
Intended for migrating off hosts that keep going away.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(os.Stderr, "mirror: not yet implemented")
		return fmt.Errorf("not yet implemented")
	},
}

func init() {
	mirrorCmd.Flags().String("catalog", "", "catalogue file (default catalog/catalog.yaml)")
	mirrorCmd.Flags().String("host", "", "mirror base URL to rewrite archive links to")
	mirrorCmd.Flags().String("staging-dir", "", "local directory for downloaded archives before upload")
	mirrorCmd.Flags().Bool("dry-run", false, "plan the migration without downloading")

	rootCmd.AddCommand(mirrorCmd)
}
