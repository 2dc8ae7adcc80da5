package main

import (
	"fmt"
	"os"

	cerrors "codelists/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError writes err and any suggested fixes for its code to stderr.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fixes := cerrors.GetSuggestedFixes(cerrors.CodeOf(err))
	if len(fixes) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "\nSuggested fixes:")
	for _, fix := range fixes {
		fmt.Fprintf(os.Stderr, "  - %s\n", fix.Description)
		if fix.Command != "" {
			fmt.Fprintf(os.Stderr, "    $ %s\n", fix.Command)
		}
	}
}
