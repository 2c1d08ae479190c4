package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"trade-edge-lab/internal/cli"
	"trade-edge-lab/internal/config"
	"trade-edge-lab/internal/decision"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/observability"
	"trade-edge-lab/internal/orchestrator"
	"trade-edge-lab/internal/reporting"
	"trade-edge-lab/internal/scenario"
	"trade-edge-lab/internal/sensitivity"
	"trade-edge-lab/internal/storage/memory"
	"trade-edge-lab/internal/worker"
)

// Sweep modes.
const (
	modeStop         = "stop"
	modeOffset       = "offset"
	modePartial      = "partial"
	modeNeighborhood = "neighborhood"
	modeGrid         = "grid"
	modeStep         = "step"
)

type sweepFlags struct {
	mode string

	// stop / offset
	levels  cli.Floats
	offsets cli.Floats
	side    string

	// partial
	partialKind   string
	triggerColumn string
	target        float64
	scaleOut      float64

	// neighborhood
	perturbLevels cli.Floats
	primaryMetric string

	// grid
	axes       cli.Filters
	resolution int

	// step
	stepFilter int
	stepSide   string
	step       float64

	metricNames string
}

// outcome is what the background job hands back.
type outcome struct {
	report *reporting.Report
	csv    string
	err    error
}

func main() {
	cfg, logger := cli.Setup("sweep")

	// Parse flags
	var (
		tableFlags  cli.TableFlags
		policyFlags cli.PolicyFlags
		filters     cli.Filters
		sf          sweepFlags
	)
	tableFlags.Register(flag.CommandLine)
	policyFlags.Register(flag.CommandLine, cfg)
	flag.Var(&filters, "filter", "Range filter column:min:max (repeatable, empty bound is open)")
	flag.StringVar(&sf.mode, "mode", "", "Sweep: stop, offset, partial, neighborhood, grid, step (required)")

	sf.levels = cfg.StopLevels
	sf.offsets = cfg.EntryOffsets
	sf.perturbLevels = cfg.PerturbationLevels
	flag.Var(&sf.levels, "levels", "Stop levels, pct points (comma-separated)")
	flag.Var(&sf.offsets, "offsets", "Entry offsets, pct (comma-separated)")
	flag.StringVar(&sf.side, "side", string(scenario.SideShort), "Position side for offsets: short, long")

	flag.StringVar(&sf.partialKind, "partial", "mfe", "Partial exit trigger: mfe, time")
	flag.StringVar(&sf.triggerColumn, "trigger-col", "", "Price-change column for a time stop (e.g. chg_30m)")
	flag.Float64Var(&sf.target, "target", 10, "Trigger target, pct points")
	flag.Float64Var(&sf.scaleOut, "scale-out", 0.5, "Share of the position taken off at the target, (0, 1)")

	flag.Var(&sf.perturbLevels, "perturb-levels", "Neighborhood perturbation levels as fractions (comma-separated)")
	flag.StringVar(&sf.primaryMetric, "primary-metric", cfg.PrimaryMetric, "Metric whose degradation drives the verdict")

	flag.Var(&sf.axes, "axis", "Grid axis column:min:max (one or two)")
	flag.IntVar(&sf.resolution, "resolution", cfg.GridResolution, "Grid samples per axis")

	flag.IntVar(&sf.stepFilter, "step-filter", 0, "Index of the --filter whose bound is stepped")
	flag.StringVar(&sf.stepSide, "step-side", string(domain.BoundMin), "Bound to step: min, max")
	flag.Float64Var(&sf.step, "step", 1, "Step size, in the column's units")

	flag.StringVar(&sf.metricNames, "metrics", "", "Metrics for grid and step sweeps (comma-separated, default: standard set)")

	format := flag.String("format", "md", "Output format: md, csv")
	output := flag.String("output", "", "Output file (default: stdout)")
	dumpMetrics := flag.Bool("dump-metrics", false, "Print Prometheus metrics to stderr on exit")
	flag.Parse()

	if err := sf.validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid flags")
	}
	if *format != "md" && *format != "csv" {
		logger.Fatal().Str("format", *format).Msg("invalid format, must be md or csv")
	}

	policy, err := policyFlags.Policy()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid policy")
	}

	table, err := tableFlags.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load table")
	}
	logger.Info().Str("input", tableFlags.Input).Int("rows", table.Len()).Msg("table loaded")

	reg := prometheus.NewRegistry()
	obs := observability.NewMetrics("", reg)

	// The baseline bundle comes from the coordinator; sweeps reuse its filtered subset
	// and metrics.
	baseCtx := context.Background()
	coord := orchestrator.New(orchestrator.Options{
		Store:   memory.NewResultStore(),
		Logger:  logger,
		Metrics: obs,
	})
	published, unsubscribe := coord.Subscribe(1)
	if _, err := coord.SetTable(baseCtx, table); err != nil {
		logger.Fatal().Err(err).Msg("set table")
	}
	if _, err := coord.SetFilters(baseCtx, filters); err != nil {
		logger.Fatal().Err(err).Msg("set filters")
	}
	if _, err := coord.SetPolicy(baseCtx, policy); err != nil {
		logger.Fatal().Err(err).Msg("set policy")
	}
	var bundle *domain.ResultBundle
	select {
	case bundle = <-published:
	default:
		if bundle, err = coord.Current(baseCtx); err != nil {
			logger.Fatal().Err(err).Msg("compute baseline")
		}
	}
	unsubscribe()

	runner := worker.NewRunner(worker.RunnerOptions{Logger: logger, Metrics: obs})
	s := &sweeper{
		flags:    sf,
		cfg:      cfg,
		log:      logger,
		source:   tableFlags.Input,
		table:    table,
		filters:  filters,
		policy:   policy,
		bundle:   bundle,
		scenario: scenario.NewEngine(scenario.Options{Logger: logger}),
		sens:     sensitivity.NewEngine(sensitivity.Options{Logger: logger}),
	}

	job := worker.Submit(runner, sf.mode, nil, s.run)

	// Ctrl-C cancels the job; the truncated result is still written.
	ctx, cancel := cli.SignalContext(logger, job.Cancel)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-job.Done():
			break wait
		case <-ticker.C:
			cur, total := job.Progress()
			logger.Info().Str("job_id", job.ID).Int("current", cur).Int("total", total).Msg("sweep progress")
		case <-ctx.Done():
			// Wait for the job to observe cancellation.
			<-job.Done()
			break wait
		}
	}

	res, err := job.Wait(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("wait for sweep")
	}
	if res.err != nil {
		logger.Fatal().Err(res.err).Str("mode", sf.mode).Msg("sweep failed")
	}

	content := res.csv
	if *format == "md" {
		content = reporting.RenderMarkdown(res.report)
		if res.report.Neighborhood != nil {
			content += robustnessChecklist(logger, res.report.Neighborhood)
		}
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

func (f *sweepFlags) validate() error {
	switch f.mode {
	case modeStop, modeOffset, modeNeighborhood, modeStep:
	case modePartial:
		if f.partialKind != "mfe" && f.partialKind != "time" {
			return fmt.Errorf("--partial must be mfe or time, got %q", f.partialKind)
		}
		if f.partialKind == "time" && f.triggerColumn == "" {
			return fmt.Errorf("--trigger-col is required for a time stop")
		}
	case modeGrid:
		if len(f.axes) == 0 {
			return fmt.Errorf("--axis is required for grid mode")
		}
	case "":
		return fmt.Errorf("--mode is required")
	default:
		return fmt.Errorf("invalid mode %q", f.mode)
	}
	if f.side != string(scenario.SideShort) && f.side != string(scenario.SideLong) {
		return fmt.Errorf("--side must be short or long, got %q", f.side)
	}
	if f.stepSide != string(domain.BoundMin) && f.stepSide != string(domain.BoundMax) {
		return fmt.Errorf("--step-side must be min or max, got %q", f.stepSide)
	}
	return nil
}

func (f *sweepFlags) metricList() []string {
	if f.metricNames == "" {
		return nil
	}
	var out []string
	for _, name := range strings.Split(f.metricNames, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

type sweeper struct {
	flags    sweepFlags
	cfg      *config.Config
	log      zerolog.Logger
	source   string
	table    *domain.Table
	filters  []domain.Predicate
	policy   domain.AdjustmentPolicy
	bundle   *domain.ResultBundle
	scenario *scenario.Engine
	sens     *sensitivity.Engine
}

// run executes the selected sweep on the job goroutine.
func (s *sweeper) run(ctl worker.Control) outcome {
	report := reporting.NewGenerator().Generate(s.source, s.table, s.bundle)
	out := outcome{report: report}
	subset := s.bundle.Subset

	switch s.flags.mode {
	case modeStop:
		rows, err := s.scenario.StopSweep(ctl, subset, s.policy, s.flags.levels)
		if err != nil {
			return outcome{err: err}
		}
		report.StopScenarios = rows
		out.csv = reporting.RenderStopCSV(rows)

	case modeOffset:
		rows, err := s.scenario.OffsetSweep(ctl, subset, s.policy, s.flags.offsets, scenario.Side(s.flags.side))
		if err != nil {
			return outcome{err: err}
		}
		report.OffsetScenarios = rows
		out.csv = reporting.RenderOffsetCSV(rows)

	case modePartial:
		spec := scenario.MFETargetSpec(s.flags.target, s.flags.scaleOut)
		if s.flags.partialKind == "time" {
			spec = scenario.TimeStopSpec(s.flags.triggerColumn, s.flags.target, s.flags.scaleOut)
		}
		cmp, err := s.scenario.PartialExit(subset, s.policy, spec)
		if err != nil {
			return outcome{err: err}
		}
		ctl.Report(1, 1)
		report.PartialExit = cmp
		out.csv = reporting.RenderPartialCSV(cmp)

	case modeNeighborhood:
		res, err := s.sens.Neighborhood(ctl, s.table, s.filters, s.policy, sensitivity.NeighborhoodParams{
			Levels:        s.flags.perturbLevels,
			PrimaryMetric: s.flags.primaryMetric,
			Baseline:      s.bundle.Metrics,
		})
		if err != nil {
			return outcome{err: err}
		}
		report.Neighborhood = res
		out.csv = reporting.RenderNeighborhoodCSV(res)

	case modeGrid:
		axes := make([]domain.GridAxis, 0, len(s.flags.axes))
		for _, a := range s.flags.axes {
			if a.Min == nil || a.Max == nil {
				return outcome{err: fmt.Errorf("%w: axis %q needs both bounds", domain.ErrInvalidParameter, a.Column)}
			}
			axes = append(axes, domain.GridAxis{Column: a.Column, Min: *a.Min, Max: *a.Max})
		}
		res, err := s.sens.Grid(ctl, s.table, s.filters, s.policy, sensitivity.GridParams{
			Axes:       axes,
			Resolution: s.flags.resolution,
			Metrics:    s.flags.metricList(),
		})
		if err != nil {
			return outcome{err: err}
		}
		report.Grid = res
		metric := s.cfg.PrimaryMetric
		if names := s.flags.metricList(); len(names) > 0 {
			metric = names[0]
		}
		out.csv = reporting.RenderGridCSV(res, metric)

	case modeStep:
		rows, err := s.sens.StepSweep(ctl, s.table, s.filters, s.policy, sensitivity.StepParams{
			FilterIndex: s.flags.stepFilter,
			Side:        domain.BoundSide(s.flags.stepSide),
			Step:        s.flags.step,
			Metrics:     s.flags.metricList(),
			Baseline:    s.bundle.Metrics,
		})
		if err != nil {
			return outcome{err: err}
		}
		if s.flags.stepFilter < len(s.filters) {
			report.StepColumn = s.filters[s.flags.stepFilter].Column
		}
		report.StepRows = rows
		out.csv = reporting.RenderStepCSV(rows)
	}

	return out
}

// robustnessChecklist renders the pass/fail checklist for a neighborhood scan.
func robustnessChecklist(logger zerolog.Logger, res *domain.NeighborhoodResult) string {
	input, err := decision.FromNeighborhood(res)
	if err != nil {
		logger.Warn().Err(err).Msg("robustness checklist skipped")
		return ""
	}
	checklist, err := decision.NewEvaluator().Evaluate(*input)
	if err != nil {
		logger.Warn().Err(err).Msg("robustness checklist skipped")
		return ""
	}
	return "\n" + decision.RenderMarkdown(checklist)
}
