package main

import (
	"github.com/spf13/cobra"
)

var reconcileApply bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <version> <release>",
	Short: "Re-run a version's searches against a newer release",
	Long: `Re-run the stored searches of a version against another release and show
which codes would be added, removed or change status. Explicit decisions on codes
the release still has are kept. With --apply the result becomes a new draft.`,
	Args: cobra.ExactArgs(2),
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileApply, "apply", false, "Create a draft from the reconciled codelist")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	engine, closeFn, err := openEngine(reconcileApply)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := engine.ReconcileDraft(newContext(), args[0], args[1], reconcileApply)
	if err != nil {
		return err
	}
	return printResponse(report)
}
