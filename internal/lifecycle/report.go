package lifecycle

import (
	"fmt"
	"strings"

	"costguard/internal/notify"
)

// FormatReport renders the operator report for one optimization pass.
func FormatReport(rep Report) notify.Message {
	mode := "EXECUTION"
	if rep.DryRun {
		mode = "DRY RUN"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "S3 Lifecycle Optimization Report (%s)\n", mode)
	b.WriteString("==========================================\n\n")
	b.WriteString("SUMMARY:\n")
	fmt.Fprintf(&b, "- Buckets Processed: %d\n", rep.BucketsProcessed)
	fmt.Fprintf(&b, "- Lifecycle Policies Created: %d\n", rep.PoliciesCreated)
	fmt.Fprintf(&b, "- Incomplete Uploads Cleaned: %d\n", rep.UploadsCleaned)
	fmt.Fprintf(&b, "- Empty Buckets Identified: %d\n", rep.EmptyBuckets)
	fmt.Fprintf(&b, "- Estimated Monthly Savings: $%.2f\n", rep.EstimatedSavings)

	b.WriteString("\nACTIONS TAKEN:\n")
	if len(rep.Actions) == 0 {
		b.WriteString("- none\n")
	}
	for _, a := range rep.Actions {
		fmt.Fprintf(&b, "- %s\n", a)
	}

	if len(rep.Errors) > 0 {
		fmt.Fprintf(&b, "\nERRORS (%d):\n", len(rep.Errors))
		for _, e := range rep.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	b.WriteString(`
RECOMMENDATIONS:
- Review empty buckets for deletion
- Monitor CloudWatch metrics for optimization effectiveness
- Schedule regular lifecycle policy reviews
`)

	return notify.Message{
		Subject: "S3 Lifecycle Optimization Report - " + rep.Time.Format("2006-01-02"),
		Body:    b.String(),
	}
}
