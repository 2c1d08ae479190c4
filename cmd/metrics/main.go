package main

import (
	"flag"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"trade-edge-lab/internal/cli"
	"trade-edge-lab/internal/observability"
	"trade-edge-lab/internal/orchestrator"
	"trade-edge-lab/internal/reporting"
	"trade-edge-lab/internal/storage/memory"
)

func main() {
	cfg, logger := cli.Setup("metrics")

	// Parse flags
	var (
		tableFlags  cli.TableFlags
		policyFlags cli.PolicyFlags
		filters     cli.Filters
	)
	tableFlags.Register(flag.CommandLine)
	policyFlags.Register(flag.CommandLine, cfg)
	flag.Var(&filters, "filter", "Range filter column:min:max (repeatable, empty bound is open)")
	format := flag.String("format", "md", "Output format: md, csv")
	output := flag.String("output", "", "Output file (default: stdout)")
	dumpMetrics := flag.Bool("dump-metrics", false, "Print Prometheus metrics to stderr on exit")
	flag.Parse()

	if *format != "md" && *format != "csv" {
		logger.Fatal().Str("format", *format).Msg("invalid format, must be md or csv")
	}

	policy, err := policyFlags.Policy()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid policy")
	}

	ctx, cancel := cli.SignalContext(logger, nil)
	defer cancel()

	table, err := tableFlags.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load table")
	}
	logger.Info().Str("input", tableFlags.Input).Int("rows", table.Len()).Msg("table loaded")

	reg := prometheus.NewRegistry()
	coord := orchestrator.New(orchestrator.Options{
		Store:   memory.NewResultStore(),
		Logger:  logger,
		Metrics: observability.NewMetrics("", reg),
	})

	if _, err := coord.SetTable(ctx, table); err != nil {
		logger.Fatal().Err(err).Msg("set table")
	}
	if _, err := coord.SetFilters(ctx, filters); err != nil {
		logger.Fatal().Err(err).Msg("set filters")
	}
	if _, err := coord.SetPolicy(ctx, policy); err != nil {
		logger.Fatal().Err(err).Msg("set policy")
	}

	bundle, err := coord.Current(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("compute metrics")
	}

	var content string
	if *format == "csv" {
		content = reporting.RenderMetricsCSV(bundle.Metrics)
	} else {
		report := reporting.NewGenerator().Generate(tableFlags.Input, table, bundle)
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
