package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"heston-greeks/internal/collector"
	"heston-greeks/internal/config"
	"heston-greeks/internal/engine"
	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/greeks"
	"heston-greeks/internal/logging"
	"heston-greeks/internal/models"
	"heston-greeks/internal/payoff"
	"heston-greeks/internal/performance"
	"heston-greeks/internal/store"
	"heston-greeks/pkg/utils"
)

// ledgerRetry retries transient ledger write failures, such as a locked database.
var ledgerRetry = utils.RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    50 * time.Millisecond,
	MaxDelay:        500 * time.Millisecond,
	BackoffFactor:   2.0,
	RetryableErrors: []error{apperrors.ErrDatabaseError},
}

// runSettings is the configuration after command-line overrides.
type runSettings struct {
	cfg      config.Config
	scheme   models.SchemeName
	prefix   string
	noLedger bool
}

// batchReport is the JSON form of a completed run.
type batchReport struct {
	Run     models.Run             `json:"run"`
	Files   []string               `json:"files"`
	Summary []SeriesSummary        `json:"summary"`
	Series  map[string][]jsonFloat `json:"series"`
	Spots   []jsonFloat            `json:"spots"`
}

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Estimate price, delta and gamma by Monte Carlo",
		Long: `Run a batch of Greek estimates under the Heston model.

  trials  repeat the estimate at the configured spot; the random stream is
          seeded once so each trial draws fresh numbers
  sweep   estimate once per point of an evenly spaced spot grid; every point
          reuses the same random numbers`,
	}

	cmd.PersistentFlags().String("scheme", string(models.SchemeFiniteDifference), "estimator: fd or malliavin")
	cmd.PersistentFlags().Int("paths", 0, "paths per simulation (default from config)")
	cmd.PersistentFlags().Uint64("seed", 0, "random seed (default from config)")
	cmd.PersistentFlags().Float64("bump", 0, "relative spot bump for fd (default from config)")
	cmd.PersistentFlags().String("sampling", "", "PLAIN or ANTITHETIC (default from config)")
	cmd.PersistentFlags().String("out", "", "output directory for series files (default from config)")
	cmd.PersistentFlags().String("prefix", "", "file name prefix (default: none for fd, malliavin_ for malliavin)")
	cmd.PersistentFlags().Bool("no-ledger", false, "do not record the run in the ledger")

	trials := &cobra.Command{
		Use:   "trials",
		Short: "Repeat the estimate at the configured spot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.execute(cmd, models.WorkflowTrials)
		},
	}
	trials.Flags().Int("trials", 0, "number of trials (default from config)")
	trials.Flags().Float64("spot", 0, "spot price (default from config)")

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Estimate across an evenly spaced grid of spots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.execute(cmd, models.WorkflowSweep)
		},
	}
	sweep.Flags().Float64("lower", 0, "lowest spot (default from config)")
	sweep.Flags().Float64("upper", 0, "highest spot (default from config)")
	sweep.Flags().Int("points", 0, "number of grid points (default from config)")

	cmd.AddCommand(trials, sweep)
	return cmd
}

// resolveSettings applies the flags a user set on top of the loaded config.
func resolveSettings(cmd *cobra.Command, base *config.Config) (runSettings, error) {
	s := runSettings{cfg: *base}
	flags := cmd.Flags()

	name, _ := flags.GetString("scheme")
	scheme, err := models.ParseSchemeName(name)
	if err != nil {
		return s, err
	}
	s.scheme = scheme
	s.prefix = store.DefaultPrefix(scheme)

	if flags.Changed("paths") {
		s.cfg.Simulation.Paths, _ = flags.GetInt("paths")
	}
	if flags.Changed("seed") {
		s.cfg.Simulation.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("bump") {
		s.cfg.Simulation.Bump, _ = flags.GetFloat64("bump")
	}
	if flags.Changed("sampling") {
		s.cfg.Simulation.Sampling, _ = flags.GetString("sampling")
	}
	if flags.Changed("out") {
		s.cfg.Output.Dir, _ = flags.GetString("out")
	}
	if flags.Changed("prefix") {
		s.prefix, _ = flags.GetString("prefix")
	}
	s.noLedger, _ = flags.GetBool("no-ledger")

	if f := flags.Lookup("trials"); f != nil && f.Changed {
		s.cfg.Simulation.Trials, _ = flags.GetInt("trials")
	}
	if f := flags.Lookup("spot"); f != nil && f.Changed {
		s.cfg.Market.Spot, _ = flags.GetFloat64("spot")
	}
	if f := flags.Lookup("lower"); f != nil && f.Changed {
		s.cfg.Sweep.Lower, _ = flags.GetFloat64("lower")
	}
	if f := flags.Lookup("upper"); f != nil && f.Changed {
		s.cfg.Sweep.Upper, _ = flags.GetFloat64("upper")
	}
	if f := flags.Lookup("points"); f != nil && f.Changed {
		s.cfg.Sweep.Points, _ = flags.GetInt("points")
	}

	if err := s.cfg.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// execute runs one workflow end to end: estimate, write files, record the
// run in the ledger, then report.
func (a *App) execute(cmd *cobra.Command, workflow models.Workflow) error {
	output := NewOutput(cmd)

	s, err := resolveSettings(cmd, a.Config)
	if err != nil {
		return err
	}
	cfg := &s.cfg

	contract, err := cfg.Contract()
	if err != nil {
		return err
	}
	sampling, err := cfg.SamplingMode()
	if err != nil {
		return err
	}

	logger := logging.WithScheme(a.Logger, s.scheme)
	setup := greeks.Setup{
		Engine:    engine.NewHestonEngine(),
		Evaluator: payoff.NewEvaluator(contract),
		Params:    cfg.Params(),
		Paths:     cfg.Simulation.Paths,
		Sampling:  sampling,
		Logger:    logger,
	}
	scheme := greeks.New(s.scheme, setup, cfg.Simulation.Bump)

	opts := []collector.Option{collector.WithLogger(logger)}
	if !output.IsJSON() {
		label := fmt.Sprintf("%s %s", s.scheme, workflow)
		opts = append(opts, collector.WithProgress(func(done, total int) {
			output.Progress(done, total, label)
		}))
	}
	c := collector.New(scheme, cfg.MarketState(), cfg.Simulation.Seed, opts...)

	if !cfg.Params().FellerSatisfied() {
		logger.Debug().Msg("Feller condition violated, variance is floored in the scheme")
	}

	var batch *collector.Batch
	switch workflow {
	case models.WorkflowSweep:
		batch, err = c.RunSweep(cfg.Sweep.Lower, cfg.Sweep.Upper, cfg.Sweep.Points)
	default:
		batch, err = c.RunTrials(cfg.Simulation.Trials)
	}
	if err != nil {
		return err
	}

	batch.Run.Paths = cfg.Simulation.Paths
	batch.Run.Bump = cfg.Simulation.Bump
	batch.Run.Sampling = sampling
	batch.Run.OutputDir = cfg.Output.Dir

	runLog := logging.WithRun(a.Logger, batch.Run)
	for _, lap := range batch.Laps {
		runLog.Debug().Str("stage", lap.Stage).Dur("total", lap.Duration).Msg("Stage timing")
	}
	mem := performance.MemoryStats()
	runLog.Debug().
		Str("heap", performance.FormatBytes(mem.HeapAlloc)).
		Str("total_alloc", performance.FormatBytes(mem.TotalAlloc)).
		Uint32("gc_cycles", mem.NumGC).
		Msg("Memory after batch")

	writer := store.NewFileSeriesWriter(cfg.Output.Dir, s.prefix)
	files, err := writer.Write(batch.Series)
	logging.LogPersist(runLog, "series", files, err)
	if err != nil {
		return err
	}

	if cfg.Output.Ledger && !s.noLedger {
		ledger, err := a.ledger()
		if err != nil {
			return apperrors.NewPersistError("ledger", cfg.Output.LedgerPath, err)
		}
		err = utils.Retry(cmd.Context(), ledgerRetry, func() error {
			return ledger.SaveRun(cmd.Context(), batch.Run, batch.Series)
		})
		logging.LogPersist(runLog, "ledger", []string{cfg.Output.LedgerPath}, err)
		if err != nil {
			return err
		}
	}

	logging.LogRun(runLog, batch.Run)

	if output.IsJSON() {
		return output.JSON(newBatchReport(batch.Run, batch.Series, files))
	}
	renderBatch(output, batch.Run, batch.Series, files)
	return nil
}

func newBatchReport(run models.Run, series *models.ResultSeries, files []string) batchReport {
	report := batchReport{
		Run:     run,
		Files:   files,
		Summary: Summarize(series),
		Series:  make(map[string][]jsonFloat, len(store.Artifacts)),
		Spots:   jsonFloats(series.Spots),
	}
	for _, artifact := range store.Artifacts {
		report.Series[artifact] = jsonFloats(store.Column(series, artifact))
	}
	return report
}

func renderBatch(output *Output, run models.Run, series *models.ResultSeries, files []string) {
	output.Box("Heston Greeks", runLines(run))
	output.Println()

	output.Table(seriesHeaders, seriesRows(series))
	output.Println()

	output.Bold("Summary")
	output.Table([]string{"Series", "Mean", "Std Dev", "Min", "Max"}, summaryRows(Summarize(series)))
	output.Println()

	for _, f := range files {
		output.Dim("wrote %s", f)
	}
	output.Success("Execution time: %s", utils.FormatDuration(run.Duration))
}
