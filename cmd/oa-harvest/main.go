// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the oa-harvest CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the oa-harvest CLI.
var rootCmd = &cobra.Command{
	Use:   "oa-harvest",
	Short: "Browser-observed acquisition of open-access PDFs",
	Long: `oa-harvest drives a browser session to retrieve open-access PDFs from
landing-page URLs where no direct download link is known in advance. It decides,
from download-directory observation and page state alone, whether each page
produced a file, stalled, or was blocked by a bot challenge.

The works command builds the input table from OpenAlex; fetch runs the batch
acquisition; history lists past runs from the ledger.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./oa-harvest.yaml or ~/.config/oa-harvest/config.yaml)")
}

func initConfig() {
	// A .env file may carry OPENALEX_MAILTO and similar; absence is fine.
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded .env")
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("oa-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "oa-harvest"))
		}
	}

	viper.SetEnvPrefix("OA_HARVEST")
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
