package main

import (
	"codelists/internal/version"

	"github.com/spf13/cobra"
)

var (
	// formatFlag is the --format flag shared by every command
	formatFlag string
	// logLevelFlag overrides the configured log level
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "codelists",
	Short: "Build and maintain clinical codelists",
	Long: `codelists builds codelists from searches over a hierarchical coding system,
records include and exclude decisions against the concept graph, and reconciles
saved versions when a new ontology release arrives.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("codelists version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format (json, yaml, human)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
}
