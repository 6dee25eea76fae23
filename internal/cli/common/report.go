package common

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crmarques/orgsync/orchestrator"
	"github.com/crmarques/orgsync/resource"
)

// WriteReport prints the report in the selected format. In text mode the
// pending changes of a diffs run go to stdout and the per-type summary to
// stderr, so stdout stays empty when nothing differs.
func WriteReport(command *cobra.Command, format string, report orchestrator.Report) error {
	if format != OutputText {
		return WriteOutput(command, format, report, nil)
	}

	for _, diff := range report.Diffs() {
		if err := writeRecordDiff(command.OutOrStdout(), diff); err != nil {
			return err
		}
	}
	return writeSummary(command.ErrOrStderr(), report)
}

// ReportError turns failed records into a command error once every type ran.
func ReportError(report orchestrator.Report) error {
	failures := report.Failures()
	if failures == 0 {
		return nil
	}
	return fmt.Errorf("%s finished with %d failure(s)", report.Command, failures)
}

func writeRecordDiff(w io.Writer, diff orchestrator.RecordDiff) error {
	switch diff.Action {
	case orchestrator.ActionAdd:
		var candidate resource.Value
		if len(diff.Entries) > 0 {
			candidate = diff.Entries[0].Candidate
		}
		_, err := fmt.Fprintf(w, "Resource to be added %s %s: %s\n", diff.Type, diff.Key, compactJSON(candidate))
		return err
	default:
		if _, err := fmt.Fprintf(w, "Resource to be updated %s %s:\n", diff.Type, diff.Key); err != nil {
			return err
		}
		for _, entry := range diff.Entries {
			line := fmt.Sprintf("  %s %s", entry.Operation, entry.Path)
			switch entry.Operation {
			case resource.DiffAdd:
				line += " = " + compactJSON(entry.Candidate)
			case resource.DiffRemove:
				line += " (was " + compactJSON(entry.Destination) + ")"
			default:
				line += ": " + compactJSON(entry.Destination) + " -> " + compactJSON(entry.Candidate)
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}
}

func writeSummary(w io.Writer, report orchestrator.Report) error {
	for _, item := range report.Types {
		counts := []struct {
			label string
			value int
		}{
			{label: "imported", value: item.Imported},
			{label: "created", value: item.Created},
			{label: "updated", value: item.Updated},
			{label: "unchanged", value: item.Unchanged},
			{label: "to_add", value: item.ToAdd},
			{label: "to_update", value: item.ToUpdate},
			{label: "deleted", value: item.Deleted},
			{label: "skipped", value: item.Skipped},
			{label: "failed", value: item.Failed},
		}

		parts := make([]string, 0, len(counts))
		for _, count := range counts {
			if count.value > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", count.label, count.value))
			}
		}
		if item.FetchError != "" {
			parts = append(parts, fmt.Sprintf("fetch_error=%q", item.FetchError))
		}
		if len(parts) == 0 {
			parts = append(parts, "no changes")
		}
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", report.Command, item.Type, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return nil
}

func compactJSON(value resource.Value) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}
