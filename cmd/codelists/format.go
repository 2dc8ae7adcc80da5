package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"codelists/internal/codelist"
	"codelists/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatYAML formats the response as YAML
func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *DraftResponseCLI:
		return formatDraftHuman(v)
	case *ReleasesResponseCLI:
		return formatReleasesHuman(v)
	case *VersionsResponseCLI:
		return formatVersionsHuman(v)
	case *storage.Version:
		return formatVersionHuman(v), nil
	case *codelist.ReconcileReport:
		return formatReconcileHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatVersionHuman(v *storage.Version) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Version %s\n", v.ID))
	b.WriteString(fmt.Sprintf("  Codelist: %s\n", v.CodelistID))
	b.WriteString(fmt.Sprintf("  Release: %s\n", v.ReleaseID))
	b.WriteString(fmt.Sprintf("  State: %s\n", v.State))
	if v.ParentID != "" {
		b.WriteString(fmt.Sprintf("  Parent: %s\n", v.ParentID))
	}
	if v.Fingerprint != "" {
		b.WriteString(fmt.Sprintf("  Fingerprint: %s\n", shortID(v.Fingerprint)))
	}
	b.WriteString(fmt.Sprintf("  Updated: %s\n", v.UpdatedAt.Format("2006-01-02 15:04:05")))
	return b.String()
}

// formatDraftHuman lists codes parents first, indented by depth
func formatDraftHuman(resp *DraftResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(formatVersionHuman(resp.Version))
	if len(resp.Searches) > 0 {
		terms := make([]string, len(resp.Searches))
		for i, s := range resp.Searches {
			terms[i] = s.String()
		}
		b.WriteString(fmt.Sprintf("  Searches: %s\n", strings.Join(terms, ", ")))
	}
	if len(resp.Roots) > 0 {
		b.WriteString(fmt.Sprintf("  Hierarchies: %s\n", strings.Join(resp.Roots, ", ")))
	}
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(resp.Changes) > 0 {
		b.WriteString("Changes:\n")
		for _, c := range resp.Changes {
			b.WriteString(fmt.Sprintf("  %-12s %3s -> %s\n", c.Code, c.Old, c.New))
		}
		b.WriteString("\n")
	}

	for _, row := range resp.Codes {
		b.WriteString(fmt.Sprintf("%-4s %s%s  %s\n", row.Status, strings.Repeat("  ", row.Depth), row.Code, row.Term))
	}

	if len(resp.Branches) > 0 {
		b.WriteString(fmt.Sprintf("\nIncluded branches: %s\n", strings.Join(resp.Branches, ", ")))
	}
	if len(resp.Dropped) > 0 {
		b.WriteString(fmt.Sprintf("\nDropped unknown codes: %s\n", strings.Join(resp.Dropped, ", ")))
	}

	b.WriteString("\nSummary:")
	for _, s := range statusOrder {
		if n := resp.Summary[s]; n > 0 {
			b.WriteString(fmt.Sprintf(" %s=%d", s, n))
		}
	}
	b.WriteString("\n")
	return b.String(), nil
}

func formatReleasesHuman(resp *ReleasesResponseCLI) (string, error) {
	if len(resp.Releases) == 0 {
		return "No releases imported.", nil
	}
	var b strings.Builder
	b.WriteString("Ontology Releases\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	for _, r := range resp.Releases {
		b.WriteString(fmt.Sprintf("%s (%s)\n", r.ID, r.CodingSystem))
		if r.Name != "" {
			b.WriteString(fmt.Sprintf("  %s\n", r.Name))
		}
		b.WriteString(fmt.Sprintf("  Concepts: %d, Edges: %d\n", r.Concepts, r.Edges))
		b.WriteString(fmt.Sprintf("  Imported: %s\n", r.ImportedAt.Format("2006-01-02 15:04:05")))
	}
	return b.String(), nil
}

func formatVersionsHuman(resp *VersionsResponseCLI) (string, error) {
	if len(resp.Versions) == 0 {
		return fmt.Sprintf("No versions of %s.", resp.CodelistID), nil
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Versions of %s\n", resp.CodelistID))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	for _, v := range resp.Versions {
		b.WriteString(fmt.Sprintf("  %s  %-12s %-14s %s\n", v.ID, v.State, v.ReleaseID, v.CreatedAt.Format("2006-01-02 15:04")))
	}
	if c := resp.Cache; c != nil {
		b.WriteString(fmt.Sprintf("\nGraph cache: %d version(s), %d nodes, %d bytes\n", c.Entries, c.TotalNodes, c.TotalBytes))
	}
	return b.String(), nil
}

func formatReconcileHuman(r *codelist.ReconcileReport) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Reconcile %s -> %s\n", r.From, r.Release))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	d := r.Result.Delta
	if d.Empty() {
		b.WriteString("No changes.\n")
	}
	for _, a := range d.Added {
		b.WriteString(fmt.Sprintf("  + %-12s %s\n", a.Code, a.Status))
	}
	for _, code := range d.Removed {
		b.WriteString(fmt.Sprintf("  - %s\n", code))
	}
	for _, c := range d.Changed {
		b.WriteString(fmt.Sprintf("  ~ %-12s %s -> %s\n", c.Code, c.Old, c.New))
	}
	if len(r.Result.Dropped) > 0 {
		b.WriteString(fmt.Sprintf("\nDecisions dropped with retired codes: %s\n", strings.Join(r.Result.Dropped, ", ")))
	}
	if len(r.Result.Missing) > 0 {
		b.WriteString(fmt.Sprintf("Search results outside the graph: %s\n", strings.Join(r.Result.Missing, ", ")))
	}

	if r.Version != nil {
		b.WriteString(fmt.Sprintf("\nCreated draft %s\n", r.Version.ID))
	} else {
		b.WriteString("\nRun with --apply to create a reconciled draft.\n")
	}
	return b.String(), nil
}

func shortID(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
