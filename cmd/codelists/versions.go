package main

import (
	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save <version>",
	Short: "Freeze a draft for review",
	Long: `Save a draft once every code is decided. Saving fails when the included codes
are the same as the previous saved version of the codelist.`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var publishCmd = &cobra.Command{
	Use:   "publish <version>",
	Short: "Publish a saved version",
	Args:  cobra.ExactArgs(1),
	RunE:  runPublish,
}

var versionsCmd = &cobra.Command{
	Use:   "versions <codelist>",
	Short: "List the versions of a codelist",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

func init() {
	rootCmd.AddCommand(saveCmd, publishCmd, versionsCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	engine, closeFn, err := openEngine(true)
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := engine.SaveVersion(newContext(), args[0])
	if err != nil {
		return err
	}
	return printResponse(v)
}

func runPublish(cmd *cobra.Command, args []string) error {
	engine, closeFn, err := openEngine(true)
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := engine.Publish(newContext(), args[0])
	if err != nil {
		return err
	}
	return printResponse(v)
}

func runVersions(cmd *cobra.Command, args []string) error {
	engine, closeFn, err := openEngine(false)
	if err != nil {
		return err
	}
	defer closeFn()

	versions, err := engine.ListVersions(args[0])
	if err != nil {
		return err
	}
	stats, err := engine.CacheStats()
	if err != nil {
		return err
	}
	return printResponse(&VersionsResponseCLI{CodelistID: args[0], Versions: versions, Cache: &stats})
}
