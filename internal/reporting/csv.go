package reporting

import (
	"fmt"
	"sort"
	"strings"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
)

// RenderMetricsCSV renders one bundle as metric,value rows.
func RenderMetricsCSV(m *domain.TradingMetrics) string {
	var sb strings.Builder

	sb.WriteString("metric,value\n")
	if m == nil {
		return sb.String()
	}
	for _, def := range metrics.All() {
		sb.WriteString(fmt.Sprintf("%s,%s\n", def.Name, formatMetric(def, m)))
	}
	sb.WriteString(fmt.Sprintf("max_consecutive_losses,%d\n", m.MaxConsecutiveLosses))

	return sb.String()
}

// RenderStopCSV renders a stop-level sweep with every registry metric per row.
func RenderStopCSV(rows []domain.StopScenario) string {
	var sb strings.Builder

	defs := metrics.All()
	sb.WriteString("stop_loss_pct,baseline")
	writeMetricHeader(&sb, defs)

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%g,%t", r.StopLossPct, r.Baseline))
		writeMetricValues(&sb, defs, r.Metrics)
	}

	return sb.String()
}

// RenderOffsetCSV renders an entry-offset sweep.
func RenderOffsetCSV(rows []domain.OffsetScenario) string {
	var sb strings.Builder

	defs := metrics.All()
	sb.WriteString("offset_pct,baseline,qualifying_count")
	writeMetricHeader(&sb, defs)

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%g,%t,%d", r.OffsetPct, r.Baseline, r.QualifyingCount))
		writeMetricValues(&sb, defs, r.Metrics)
	}

	return sb.String()
}

// RenderPartialCSV renders the full-hold and blended bundles side by side.
func RenderPartialCSV(p *domain.PartialExitComparison) string {
	var sb strings.Builder

	sb.WriteString("metric,full_hold,blended\n")
	for _, def := range metrics.All() {
		sb.WriteString(fmt.Sprintf("%s,%s,%s\n", def.Name, formatMetric(def, p.FullHold), formatMetric(def, p.Blended)))
	}

	return sb.String()
}

// RenderStepCSV renders a step sweep with value and delta columns per metric.
func RenderStepCSV(rows []domain.ThresholdRow) string {
	var sb strings.Builder

	sb.WriteString("index,threshold,baseline")
	if len(rows) > 0 {
		for _, d := range rows[0].Deltas {
			sb.WriteString(fmt.Sprintf(",%s,%s_delta,%s_better", d.Metric, d.Metric, d.Metric))
		}
	}
	sb.WriteString("\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%g,%t", r.Index, r.Threshold, r.Baseline))
		for _, d := range r.Deltas {
			better := ""
			if d.Better != nil {
				better = fmt.Sprintf("%t", *d.Better)
			}
			sb.WriteString(fmt.Sprintf(",%s,%s,%s", FormatOptional(d.Value, 6), FormatOptional(d.Delta, 6), better))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderNeighborhoodCSV renders one row per perturbation.
func RenderNeighborhoodCSV(n *domain.NeighborhoodResult) string {
	var sb strings.Builder

	primary, err := metrics.Lookup(n.PrimaryMetric)
	sb.WriteString(fmt.Sprintf("column,level,kind,min,max,%s,level_degradation_pct\n", n.PrimaryMetric))
	for _, l := range n.Levels {
		for _, p := range l.Perturbations {
			v := Dash
			if err == nil {
				v = formatMetric(primary, p.Metrics)
			}
			sb.WriteString(fmt.Sprintf("%s,%g,%s,%g,%g,%s,%.6f\n",
				l.Column, l.Level, p.Kind, p.Min, p.Max, v, l.DegradationPct))
		}
	}

	return sb.String()
}

// RenderGridCSV renders one metric of a grid sweep as a matrix. Rows follow axis 0;
// columns follow axis 1 (a single "value" column for a 1-D grid).
func RenderGridCSV(g *domain.GridResult, metric string) string {
	return gridTable(g, metric, ",", "", "")
}

// RenderFeaturesCSV renders feature impact results.
func RenderFeaturesCSV(rows []domain.FeatureImpactResult) string {
	var sb strings.Builder

	sb.WriteString("feature,valid_rows,impact_score,correlation,optimal_threshold,direction,median_fallback,")
	sb.WriteString("baseline_win_rate_pct,above_win_rate_pct,below_win_rate_pct,trades_above,trades_below,")
	sb.WriteString("win_rate_lift,expectancy_lift\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%.6f,%.6f,%s,%t,%.4f,%.4f,%.4f,%d,%d,%.4f,%.6f\n",
			r.Feature,
			r.ValidRows,
			r.ImpactScore,
			r.Correlation,
			r.OptimalThreshold,
			r.Direction,
			r.MedianFallback,
			r.BaselineWinRatePct,
			r.AboveWinRatePct,
			r.BelowWinRatePct,
			r.TradesAbove,
			r.TradesBelow,
			r.WinRateLift,
			r.ExpectancyLift,
		))
	}

	return sb.String()
}

func writeMetricHeader(sb *strings.Builder, defs []metrics.Metric) {
	for _, d := range defs {
		sb.WriteString("," + d.Name)
	}
	sb.WriteString("\n")
}

func writeMetricValues(sb *strings.Builder, defs []metrics.Metric, m *domain.TradingMetrics) {
	for _, d := range defs {
		sb.WriteString("," + formatMetric(d, m))
	}
	sb.WriteString("\n")
}

// gridTable renders a metric matrix with the given separator and line affixes.
func gridTable(g *domain.GridResult, metric, sep, prefix, suffix string) string {
	var sb strings.Builder
	cells := g.Cells[metric]

	header := []string{g.Axes[0].Column}
	if len(g.Axes) == 2 {
		for _, v := range g.Values[1] {
			header = append(header, fmt.Sprintf("%s=%.4g", g.Axes[1].Column, v))
		}
	} else {
		header = append(header, metric)
	}
	sb.WriteString(prefix + strings.Join(header, sep) + suffix + "\n")
	if prefix != "" {
		sb.WriteString("|" + strings.Repeat("---|", len(header)) + "\n")
	}

	for i, row := range cells {
		line := []string{fmt.Sprintf("%.4g", g.Values[0][i])}
		for _, c := range row {
			line = append(line, FormatOptional(c, 4))
		}
		sb.WriteString(prefix + strings.Join(line, sep) + suffix + "\n")
	}

	return sb.String()
}

func sortedCellNames(g *domain.GridResult) []string {
	names := make([]string, 0, len(g.Cells))
	for name := range g.Cells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
