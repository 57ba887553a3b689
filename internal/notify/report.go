package notify

import (
	"fmt"
	"sort"
	"strings"

	"costguard/internal/sweep"
)

// FormatReport renders the operator report for one sweep: mode, per-kind
// counts, actions, errors, and the schedule/tagging legend.
func FormatReport(sum sweep.Summary, schedulerTagKey string) Message {
	mode := "EXECUTION"
	if sum.DryRun {
		mode = "DRY RUN"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Resource Scheduler Report (%s)\n", mode)
	b.WriteString("=====================================\n\n")
	fmt.Fprintf(&b, "Execution Time: %s\n\n", sum.Time.Format("2006-01-02T15:04:05Z07:00"))

	b.WriteString("SUMMARY:\n")
	kinds := make([]string, 0, len(sum.Kinds))
	for k := range sum.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		c := sum.Kinds[k]
		fmt.Fprintf(&b, "- %s processed: %d\n", strings.ToUpper(k), c.Processed)
		fmt.Fprintf(&b, "- %s started: %d\n", strings.ToUpper(k), c.Started)
		fmt.Fprintf(&b, "- %s stopped: %d\n", strings.ToUpper(k), c.Stopped)
	}

	b.WriteString("\nACTIONS TAKEN:\n")
	if len(sum.Actions) == 0 {
		b.WriteString("- none\n")
	}
	for _, a := range sum.Actions {
		fmt.Fprintf(&b, "- %s\n", a)
	}

	if len(sum.Errors) > 0 {
		fmt.Fprintf(&b, "\nERRORS (%d):\n", len(sum.Errors))
		for _, e := range sum.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	b.WriteString(`
SCHEDULE TYPES:
- business-hours: Mon-Fri 08:00-18:00
- dev-hours: Mon-Fri 09:00-17:00
- demo-only: Manual control only
- 24x7: Always running
- never: Always stopped
- custom: Format like "Mon-Fri:09:00-17:00"

TAGGING:
`)
	fmt.Fprintf(&b, "Tag resources with %q to enable scheduling.\n", schedulerTagKey+"=<schedule>")
	b.WriteString("Add \"DoNotShutdown=true\" to protect critical resources.\n")

	return Message{
		Subject: "Resource Scheduler Report - " + sum.Time.Format("2006-01-02 15:04"),
		Body:    b.String(),
	}
}
