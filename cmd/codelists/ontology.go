package main

import (
	"github.com/spf13/cobra"
)

var ontologyCmd = &cobra.Command{
	Use:   "ontology",
	Short: "Manage ontology releases",
}

var ontologyImportCmd = &cobra.Command{
	Use:   "import <release.toml>...",
	Short: "Import ontology release files",
	Long: `Import one or more release files. Each release ID can be imported once;
codelist versions always resolve against the release they name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOntologyImport,
}

var ontologyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported releases",
	Args:  cobra.NoArgs,
	RunE:  runOntologyList,
}

func init() {
	ontologyCmd.AddCommand(ontologyImportCmd, ontologyListCmd)
	rootCmd.AddCommand(ontologyCmd)
}

func runOntologyImport(cmd *cobra.Command, args []string) error {
	engine, closeFn, err := openEngine(true)
	if err != nil {
		return err
	}
	defer closeFn()

	resp := &ReleasesResponseCLI{}
	for _, path := range args {
		info, err := engine.ImportRelease(path)
		if err != nil {
			return err
		}
		resp.Releases = append(resp.Releases, *info)
	}
	return printResponse(resp)
}

func runOntologyList(cmd *cobra.Command, args []string) error {
	engine, closeFn, err := openEngine(false)
	if err != nil {
		return err
	}
	defer closeFn()

	releases, err := engine.ListReleases()
	if err != nil {
		return err
	}
	return printResponse(&ReleasesResponseCLI{Releases: releases})
}
