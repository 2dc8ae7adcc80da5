package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codelists/internal/codelist"
	"codelists/internal/codeset"
	"codelists/internal/definition"
	"codelists/internal/ontology"
	"codelists/internal/status"
)

var (
	draftRelease       string
	draftTerms         []string
	draftCodes         []string
	draftInclude       []string
	draftExclude       []string
	draftRules         string
	draftParent        string
	draftIgnoreUnknown bool
	draftUnresolved    bool
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Create, edit and inspect draft versions",
}

var draftNewCmd = &cobra.Command{
	Use:   "new <codelist>",
	Short: "Create a draft from searches and decisions",
	Long: `Create a draft version of a codelist. Searches match concepts and all of their
descendants; every matched code starts undecided unless a decision covers it.

Examples:
  codelists draft new elbow --term elbow --include 128133004 --exclude 439656005
  codelists draft new elbow --code 35185008 --rules elbow.toml`,
	Args: cobra.ExactArgs(1),
	RunE: runDraftNew,
}

var draftUpdateCmd = &cobra.Command{
	Use:   "update <version> <+code|-code|?code>...",
	Short: "Record include and exclude decisions",
	Long: `Apply a batch of decisions to a draft. Prefix a code with + to include it,
- to exclude it, or ? to clear its decision. The batch is all or nothing.

Example:
  codelists draft update <version> +128133004 -- -439656005`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDraftUpdate,
}

var draftShowCmd = &cobra.Command{
	Use:   "show <version>",
	Short: "Show every code of a version with its status",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftShow,
}

func init() {
	draftNewCmd.Flags().StringVar(&draftRelease, "release", "", "Ontology release (default from config)")
	draftNewCmd.Flags().StringArrayVar(&draftTerms, "term", nil, "Term search, matched case-insensitively (repeatable)")
	draftNewCmd.Flags().StringArrayVar(&draftCodes, "code", nil, "Code search (repeatable)")
	draftNewCmd.Flags().StringSliceVar(&draftInclude, "include", nil, "Codes to include")
	draftNewCmd.Flags().StringSliceVar(&draftExclude, "exclude", nil, "Codes to exclude")
	draftNewCmd.Flags().StringVar(&draftRules, "rules", "", "Rules file with included and excluded codes")
	draftNewCmd.Flags().StringVar(&draftParent, "parent", "", "Version this draft derives from")
	draftNewCmd.Flags().BoolVar(&draftIgnoreUnknown, "ignore-unknown", false, "Drop decisions on codes the release does not have")
	draftShowCmd.Flags().BoolVar(&draftUnresolved, "unresolved", false, "Only list undecided and conflicting codes")

	draftCmd.AddCommand(draftNewCmd, draftUpdateCmd, draftShowCmd)
	rootCmd.AddCommand(draftCmd)
}

func runDraftNew(cmd *cobra.Command, args []string) error {
	engine, closeFn, err := openEngine(true)
	if err != nil {
		return err
	}
	defer closeFn()
	ctx := newContext()

	included, excluded := draftInclude, draftExclude
	release := draftRelease
	if draftRules != "" {
		f, err := definition.ReadFile(draftRules)
		if err != nil {
			return err
		}
		included = append(included, f.Included...)
		excluded = append(excluded, f.Excluded...)
		if release == "" {
			release = f.Release
		}
	}
	def, err := definition.New(included, excluded)
	if err != nil {
		return err
	}

	var searches []ontology.Search
	for _, t := range draftTerms {
		searches = append(searches, ontology.Search{Term: t})
	}
	for _, c := range draftCodes {
		searches = append(searches, ontology.Search{Code: c})
	}

	d, err := engine.CreateDraft(ctx, codelist.DraftRequest{
		CodelistID:    args[0],
		Release:       release,
		Searches:      searches,
		Definition:    def,
		ParentID:      draftParent,
		IgnoreUnknown: draftIgnoreUnknown,
	})
	if err != nil {
		return err
	}
	return printDraft(engine, d, nil, false)
}

func runDraftUpdate(cmd *cobra.Command, args []string) error {
	overrides, err := parseOverrides(args[1:])
	if err != nil {
		return err
	}

	engine, closeFn, err := openEngine(true)
	if err != nil {
		return err
	}
	defer closeFn()

	d, changes, err := engine.UpdateDraft(newContext(), args[0], overrides)
	if err != nil {
		return err
	}
	return printDraft(engine, d, changes, false)
}

func runDraftShow(cmd *cobra.Command, args []string) error {
	engine, closeFn, err := openEngine(false)
	if err != nil {
		return err
	}
	defer closeFn()

	d, err := engine.LoadDraft(newContext(), args[0])
	if err != nil {
		return err
	}
	return printDraft(engine, d, nil, draftUnresolved)
}

func printDraft(engine *codelist.Engine, d *codelist.Draft, changes []codeset.Change, unresolvedOnly bool) error {
	terms, err := engine.Terms(newContext(), d.Version.ReleaseID, d.Codeset.Graph().Nodes())
	if err != nil {
		return err
	}
	resp := convertDraft(d, terms, unresolvedOnly)
	resp.Changes = changes
	return printResponse(resp)
}

// parseOverrides reads +code, -code and ?code arguments.
func parseOverrides(args []string) ([]codeset.Override, error) {
	overrides := make([]codeset.Override, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if len(arg) < 2 {
			return nil, fmt.Errorf("invalid decision %q: want +code, -code or ?code", arg)
		}
		var s status.Status
		switch arg[0] {
		case '+':
			s = status.Included
		case '-':
			s = status.Excluded
		case '?':
			s = status.Undecided
		default:
			return nil, fmt.Errorf("invalid decision %q: want +code, -code or ?code", arg)
		}
		overrides = append(overrides, codeset.Override{Code: arg[1:], Status: s})
	}
	return overrides, nil
}
