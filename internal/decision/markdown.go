package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a RobustnessReport as Markdown string.
func RenderMarkdown(report *RobustnessReport) string {
	var sb strings.Builder

	sb.WriteString("# Filter Robustness Report\n\n")
	sb.WriteString(fmt.Sprintf("## Verdict: %s\n\n", strings.ToUpper(string(report.Verdict))))
	sb.WriteString(fmt.Sprintf("Primary metric: `%s`\n\n", report.PrimaryMetric))
	if report.Truncated {
		sb.WriteString("**Scan was cancelled; only completed levels are listed.**\n\n")
	}

	sb.WriteString("| # | Check | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-------|-----------|--------|------|\n")
	for i, c := range report.Checks {
		passStr := "PASS"
		if !c.Pass {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")

	passed := 0
	for _, c := range report.Checks {
		if c.Pass {
			passed++
		}
	}
	sb.WriteString(fmt.Sprintf("Checks: %d/%d passed\n", passed, len(report.Checks)))

	return sb.String()
}
