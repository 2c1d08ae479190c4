package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"trade-edge-lab/internal/cli"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/featureimpact"
	"trade-edge-lab/internal/filter"
	"trade-edge-lab/internal/observability"
	"trade-edge-lab/internal/reporting"
	"trade-edge-lab/internal/worker"
)

func main() {
	_, logger := cli.Setup("features")

	// Parse flags
	var (
		tableFlags cli.TableFlags
		filters    cli.Filters
	)
	tableFlags.Register(flag.CommandLine)
	flag.Var(&filters, "filter", "Range filter column:min:max applied before analysis (repeatable)")
	gainColumn := flag.String("gain-col", domain.ColumnRawReturn, "Column that defines a win (> 0)")
	exclude := flag.String("exclude", "", "Additional columns to skip (comma-separated)")
	top := flag.Int("top", 0, "Keep only the top N features (0: all)")
	format := flag.String("format", "md", "Output format: md, csv")
	output := flag.String("output", "", "Output file (default: stdout)")
	dumpMetrics := flag.Bool("dump-metrics", false, "Print Prometheus metrics to stderr on exit")
	flag.Parse()

	if *format != "md" && *format != "csv" {
		logger.Fatal().Str("format", *format).Msg("invalid format, must be md or csv")
	}

	table, err := tableFlags.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load table")
	}
	subset, err := filter.NewRangeEngine().Apply(table, filters)
	if err != nil {
		logger.Fatal().Err(err).Msg("apply filters")
	}
	logger.Info().Int("rows", table.Len()).Int("subset", subset.Len()).Msg("table loaded")

	var excluded []string
	for _, name := range strings.Split(*exclude, ",") {
		if name = strings.TrimSpace(name); name != "" {
			excluded = append(excluded, name)
		}
	}

	reg := prometheus.NewRegistry()
	obs := observability.NewMetrics("", reg)
	analyzer := featureimpact.NewAnalyzer(featureimpact.Options{Logger: logger, Metrics: obs})
	runner := worker.NewRunner(worker.RunnerOptions{Logger: logger, Metrics: obs})

	type outcome struct {
		results []domain.FeatureImpactResult
		err     error
	}
	job := worker.Submit(runner, "features", nil, func(ctl worker.Control) outcome {
		results, err := analyzer.Analyze(ctl, subset, *gainColumn, excluded)
		return outcome{results: results, err: err}
	})

	ctx, cancel := cli.SignalContext(logger, job.Cancel)
	defer cancel()

	select {
	case <-job.Done():
	case <-ctx.Done():
		<-job.Done()
	}
	res, err := job.Wait(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("wait for analysis")
	}
	if res.err != nil {
		logger.Fatal().Err(res.err).Msg("feature impact failed")
	}

	results := res.results
	if *top > 0 && len(results) > *top {
		results = results[:*top]
	}

	var content string
	if *format == "csv" {
		content = reporting.RenderFeaturesCSV(results)
	} else {
		report := reporting.NewGenerator().Generate(tableFlags.Input, table, nil)
		report.DataSummary.SubsetRows = subset.Len()
		report.DataSummary.Filters = filters
		report.Features = results
		content = reporting.RenderMarkdown(report)
	}
	if err := cli.WriteOutput(*output, content); err != nil {
		logger.Fatal().Err(err).Msg("write output")
	}

	if *dumpMetrics {
		if err := cli.DumpMetrics(os.Stderr, reg); err != nil {
			logger.Error().Err(err).Msg("dump metrics")
		}
	}
}
