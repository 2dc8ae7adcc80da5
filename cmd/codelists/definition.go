package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codelists/internal/definition"
)

var definitionOutput string

var definitionCmd = &cobra.Command{
	Use:   "definition",
	Short: "Export compressed definitions",
}

var definitionExportCmd = &cobra.Command{
	Use:   "export <version>",
	Short: "Write the minimal include and exclude rules of a version",
	Long: `Export the compressed definition of a version as a TOML rules file. The file
can be passed back with 'codelists draft new --rules'.`,
	Args: cobra.ExactArgs(1),
	RunE: runDefinitionExport,
}

func init() {
	definitionExportCmd.Flags().StringVarP(&definitionOutput, "output", "o", "", "Write to a file instead of stdout")
	definitionCmd.AddCommand(definitionExportCmd)
	rootCmd.AddCommand(definitionCmd)
}

func runDefinitionExport(cmd *cobra.Command, args []string) error {
	engine, closeFn, err := openEngine(false)
	if err != nil {
		return err
	}
	defer closeFn()

	f, err := engine.ExportDefinition(newContext(), args[0])
	if err != nil {
		return err
	}
	if definitionOutput != "" {
		return definition.WriteFile(definitionOutput, f)
	}
	if OutputFormat(formatFlag) != FormatHuman {
		return printResponse(f)
	}
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
