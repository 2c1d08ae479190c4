package reporting

import (
	"fmt"
	"strings"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
)

// Dash is rendered for undefined values.
const Dash = "—"

// FormatOptional formats v with prec decimals, Dash when nil.
func FormatOptional(v *float64, prec int) string {
	if v == nil {
		return Dash
	}
	return fmt.Sprintf("%.*f", prec, *v)
}

// formatMetric renders one registry metric of m.
func formatMetric(def metrics.Metric, m *domain.TradingMetrics) string {
	v := def.Value(m)
	if def.Name == metrics.NameNumTrades && v != nil {
		return fmt.Sprintf("%d", int(*v))
	}
	return FormatOptional(v, 4)
}

// formatPredicates renders filters as "col in [min, max]" joined by "; ".
func formatPredicates(preds []domain.Predicate) string {
	if len(preds) == 0 {
		return "none"
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		lo, hi := "-inf", "+inf"
		if p.Min != nil {
			lo = fmt.Sprintf("%g", *p.Min)
		}
		if p.Max != nil {
			hi = fmt.Sprintf("%g", *p.Max)
		}
		parts[i] = fmt.Sprintf("%s in [%s, %s]", p.Column, lo, hi)
	}
	return strings.Join(parts, "; ")
}
