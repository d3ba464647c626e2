// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cpgzoo CLI.
// Implements: prd001-catalog, prd002-verification, prd003-fetch,
//             prd004-index, prd005-dataprep (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/cpgzoo/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds tokens loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// configDefault resolves a config-file value, falling back when the key
// is unset.
func configDefault(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}

// configDefaultInt is configDefault for integer config values.
func configDefaultInt(key string, fallback int) int {
	if v := viper.GetInt(key); v != 0 {
		return v
	}
	return fallback
}

// rootCmd is the base command for the cpgzoo CLI.
var rootCmd = &cobra.Command{
	Use:   "cpgzoo",
	Short: "Catalogue and tooling for pre-trained DeepCpG models",
	Long: `cpgzoo maintains the catalogue behind the DeepCpG model-zoo page: which
publications contributed models, which datasets they were trained on, and
where the module archives live.

Each maintenance stage is a subcommand: catalog renders and imports the
documentation page, verify checks links and citations, fetch downloads and
unpacks model archives, index builds a searchable catalogue database, and
data prepares model-ready input from methylation profiles.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./cpgzoo.yaml or ~/.config/cpgzoo/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cpgzoo")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cpgzoo"))
		}
	}

	viper.SetEnvPrefix("CPGZOO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
