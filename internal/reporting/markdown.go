package reporting

import (
	"fmt"
	"strings"
	"time"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Trade Edge Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Source != "" {
		sb.WriteString(fmt.Sprintf("Source: `%s`\n\n", r.Source))
	}

	// Data Summary
	s := r.DataSummary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Item | Value |\n")
	sb.WriteString("|------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Rows | %d |\n", s.TotalRows))
	sb.WriteString(fmt.Sprintf("| Filtered Rows | %d |\n", s.SubsetRows))
	sb.WriteString(fmt.Sprintf("| Excluded (missing data) | %d |\n", s.Excluded))
	sb.WriteString(fmt.Sprintf("| Ordering Key | %t |\n", s.Ordered))
	sb.WriteString(fmt.Sprintf("| Filters | %s |\n", formatPredicates(s.Filters)))
	// A zero policy means no bundle was computed.
	if s.Policy.StartCapital > 0 {
		sb.WriteString(fmt.Sprintf("| Stop / Efficiency | %g%% / %g%% |\n", s.Policy.StopLossPct, s.Policy.EfficiencyPct))
		sb.WriteString(fmt.Sprintf("| Capital / Flat Stake | %g / %g |\n", s.Policy.StartCapital, s.Policy.FlatStake))
		sb.WriteString(fmt.Sprintf("| Fractional Kelly | %g%% |\n", s.Policy.FractionalKellyPct))
	}
	sb.WriteString("\n")

	if r.Metrics != nil {
		sb.WriteString("## Metrics\n\n")
		writeMetricsTable(&sb, r.Metrics)
	}
	if len(r.StopScenarios) > 0 {
		sb.WriteString("## Stop-Level Sweep\n\n")
		writeStopTable(&sb, r.StopScenarios)
	}
	if len(r.OffsetScenarios) > 0 {
		sb.WriteString("## Entry-Offset Sweep\n\n")
		writeOffsetTable(&sb, r.OffsetScenarios)
	}
	if r.PartialExit != nil {
		sb.WriteString("## Partial Exit\n\n")
		writePartialTable(&sb, r.PartialExit)
	}
	if r.Neighborhood != nil {
		sb.WriteString("## Neighborhood Robustness\n\n")
		writeNeighborhood(&sb, r.Neighborhood)
	}
	if r.Grid != nil {
		sb.WriteString("## Grid Sweep\n\n")
		writeGrid(&sb, r.Grid)
	}
	if len(r.StepRows) > 0 {
		sb.WriteString(fmt.Sprintf("## Step Sweep: %s\n\n", r.StepColumn))
		writeStepTable(&sb, r.StepRows)
	}
	if len(r.Features) > 0 {
		sb.WriteString("## Feature Impact\n\n")
		writeFeatureTable(&sb, r.Features)
	}

	return sb.String()
}

func writeMetricsTable(sb *strings.Builder, m *domain.TradingMetrics) {
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	for _, def := range metrics.All() {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", def.Name, formatMetric(def, m)))
	}
	sb.WriteString(fmt.Sprintf("| max_consecutive_losses | %d |\n", m.MaxConsecutiveLosses))
	sb.WriteString("\n")
}

func writeStopTable(sb *strings.Builder, rows []domain.StopScenario) {
	sb.WriteString("| Stop % | Trades | Win % | EV % | Edge % | Kelly % | EG Frac | EG Flat | Max Loss % | |\n")
	sb.WriteString("|--------|--------|-------|------|--------|---------|---------|---------|------------|---|\n")
	for _, r := range rows {
		m := r.Metrics
		sb.WriteString(fmt.Sprintf("| %g | %d | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.StopLossPct, m.NumTrades,
			FormatOptional(m.WinRatePct, 2), FormatOptional(m.EVPct, 2), FormatOptional(m.EdgePct, 2),
			FormatOptional(m.KellyPct, 2), FormatOptional(m.EGFracKelly, 4), FormatOptional(m.EGFlatStake, 4),
			FormatOptional(m.MaxLossPct, 2), baselineMark(r.Baseline)))
	}
	sb.WriteString("\n")
}

func writeOffsetTable(sb *strings.Builder, rows []domain.OffsetScenario) {
	sb.WriteString("| Offset % | Qualifying | Win % | Total % | Avg % | EG Frac | EG Flat | |\n")
	sb.WriteString("|----------|------------|-------|---------|-------|---------|---------|---|\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("| %g | %d | %s | %s | %s | %s | %s | %s |\n",
			r.OffsetPct, r.QualifyingCount,
			FormatOptional(r.WinRatePct, 2), FormatOptional(r.TotalReturnPct, 2), FormatOptional(r.AvgReturnPct, 2),
			FormatOptional(r.EGFracKelly, 4), FormatOptional(r.EGFlatStake, 4), baselineMark(r.Baseline)))
	}
	sb.WriteString("\n")
}

func writePartialTable(sb *strings.Builder, p *domain.PartialExitComparison) {
	sb.WriteString(fmt.Sprintf("Trigger `%s` at %g, scale-out %.0f%%: %d of %d trades triggered.\n\n",
		p.TriggerColumn, p.TargetValue, p.ScaleOut*100, p.Triggered, p.Total))
	sb.WriteString("| Metric | Full Hold | Blended |\n")
	sb.WriteString("|--------|-----------|---------|\n")
	for _, def := range metrics.All() {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			def.Name, formatMetric(def, p.FullHold), formatMetric(def, p.Blended)))
	}
	sb.WriteString("\n")
}

func writeNeighborhood(sb *strings.Builder, n *domain.NeighborhoodResult) {
	primary, err := metrics.Lookup(n.PrimaryMetric)
	baseline := Dash
	if err == nil {
		baseline = formatMetric(primary, n.Baseline)
	}
	sb.WriteString(fmt.Sprintf("Primary metric `%s`, baseline %s. Verdict: **%s** (worst degradation %.2f%%).\n\n",
		n.PrimaryMetric, baseline, n.Verdict, n.WorstDegradationPct))
	if n.Truncated {
		sb.WriteString("Scan was cancelled; results are partial.\n\n")
	}
	if len(n.Levels) == 0 {
		sb.WriteString("No two-sided filters to perturb.\n\n")
		return
	}
	sb.WriteString("| Filter | Level | Average | Degradation % |\n")
	sb.WriteString("|--------|-------|---------|---------------|\n")
	for _, l := range n.Levels {
		avg := Dash
		if err == nil {
			avg = formatMetric(primary, l.Average)
		}
		sb.WriteString(fmt.Sprintf("| %s | ±%.0f%% | %s | %.2f |\n", l.Column, l.Level*100, avg, l.DegradationPct))
	}
	sb.WriteString("\n")
}

func writeGrid(sb *strings.Builder, g *domain.GridResult) {
	sb.WriteString(fmt.Sprintf("Computed %d of %d cells.\n\n", g.Computed, g.Total))
	for _, name := range sortedCellNames(g) {
		sb.WriteString(fmt.Sprintf("### %s\n\n", name))
		sb.WriteString(gridTable(g, name, " | ", "| ", " |"))
		sb.WriteString("\n")
	}
}

func writeStepTable(sb *strings.Builder, rows []domain.ThresholdRow) {
	if len(rows) == 0 {
		return
	}
	header := []string{"Threshold"}
	for _, d := range rows[0].Deltas {
		header = append(header, d.Metric, "Δ")
	}
	header = append(header, "")
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat("---|", len(header)) + "\n")
	for _, r := range rows {
		cells := []string{fmt.Sprintf("%g", r.Threshold)}
		for _, d := range r.Deltas {
			cells = append(cells, FormatOptional(d.Value, 2), formatDelta(d))
		}
		cells = append(cells, baselineMark(r.Baseline))
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	sb.WriteString("\n")
}

func writeFeatureTable(sb *strings.Builder, rows []domain.FeatureImpactResult) {
	sb.WriteString("| Feature | Rows | Score | Corr | Threshold | Dir | Win % Lift | Exp Lift | Above | Below |\n")
	sb.WriteString("|---------|------|-------|------|-----------|-----|------------|----------|-------|-------|\n")
	for _, r := range rows {
		dir := string(r.Direction)
		if dir == "" {
			dir = Dash
		} else if r.MedianFallback {
			dir += " (median)"
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %.3f | %.3f | %.4g | %s | %.2f | %.4f | %d | %d |\n",
			r.Feature, r.ValidRows, r.ImpactScore, r.Correlation, r.OptimalThreshold, dir,
			r.WinRateLift, r.ExpectancyLift, r.TradesAbove, r.TradesBelow))
	}
	sb.WriteString("\n")
}

func baselineMark(b bool) string {
	if b {
		return "baseline"
	}
	return ""
}

func formatDelta(d domain.MetricDelta) string {
	if d.Delta == nil {
		return Dash
	}
	s := fmt.Sprintf("%+.2f", *d.Delta)
	if d.Better != nil {
		if *d.Better {
			s += " ▲"
		} else {
			s += " ▼"
		}
	}
	return s
}
