package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Sniper Journal Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Range: %s .. %s\n\n", formatMs(r.RangeStart), formatMs(r.RangeEnd)))
	if r.Threshold > 0 {
		sb.WriteString(fmt.Sprintf("Market cap threshold: $%.2f\n\n", r.Threshold))
	}

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Tokens | %d |\n", s.Tokens))
	sb.WriteString(fmt.Sprintf("| Batches | %d |\n", s.Batches))
	sb.WriteString(fmt.Sprintf("| Sessions | %d |\n", s.Sessions))
	sb.WriteString(fmt.Sprintf("| Eligible | %d |\n", s.Eligible))
	sb.WriteString(fmt.Sprintf("| Expired | %d |\n", s.Expired))
	sb.WriteString(fmt.Sprintf("| Eligibility Rate | %.4f |\n", s.EligibilityRate))
	sb.WriteString(fmt.Sprintf("| Curve Observations | %d |\n", s.Observations))
	sb.WriteString(fmt.Sprintf("| Built | %d |\n", s.Built))
	sb.WriteString(fmt.Sprintf("| Build Failed | %d |\n", s.BuildFailed))
	sb.WriteString(fmt.Sprintf("| Simulated | %d |\n", s.Simulated))
	sb.WriteString(fmt.Sprintf("| Simulation OK | %d |\n", s.SimulationOK))
	sb.WriteString(fmt.Sprintf("| ATAs Created | %d |\n", s.ATAsCreated))
	sb.WriteString("\n")

	// Batches
	sb.WriteString("## Batches\n\n")
	if len(r.Batches) > 0 {
		sb.WriteString("| Batch | Sessions | Eligible | Expired | Mean Updates | Max MCap (USD) |\n")
		sb.WriteString("|-------|----------|----------|---------|--------------|----------------|\n")
		for _, b := range r.Batches {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.2f | %.2f |\n",
				shortID(b.BatchID), b.Sessions, b.Eligible, b.Expired, b.MeanUpdates, b.MaxMarketCapUSD))
		}
	} else {
		sb.WriteString("No batches in range.\n")
	}
	sb.WriteString("\n")

	// Sessions
	sb.WriteString("## Sessions\n\n")
	if len(r.Sessions) > 0 {
		sb.WriteString("| Session | Mint | Status | MCap (USD) | Updates | Dropped | Build | Simulation |\n")
		sb.WriteString("|---------|------|--------|------------|---------|---------|-------|------------|\n")
		for _, row := range r.Sessions {
			build := row.AttemptStatus
			if build == "" {
				build = "-"
			}
			sim := "-"
			if row.AttemptStatus != "" {
				sim = "FAIL"
				if row.SimulationOK {
					sim = "OK"
				}
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %d | %d | %s | %s |\n",
				shortID(row.SessionID), row.Mint, row.Status, row.MarketCapUSD,
				row.Updates, row.Dropped, build, sim))
		}
	} else {
		sb.WriteString("No sessions in range.\n")
	}
	sb.WriteString("\n")

	// Failures (only shown if present)
	if len(r.Failures) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("- %s %s (%s): %s\n", f.Stage, f.Mint, shortID(f.SessionID), f.Error))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
