package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"heston-greeks/internal/config"
	"heston-greeks/internal/logging"
	"heston-greeks/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Ledger    store.RunLedger
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// the --config directory before any command runs, and the logger is then
// built from it.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "heston-greeks",
		Short: "Monte Carlo delta and gamma under the Heston model",
		Long: `heston-greeks estimates the price, delta and gamma of a European option
under the Heston stochastic volatility model.

Two estimators are available: finite differences under common random numbers
(--scheme fd) and Malliavin path weights (--scheme malliavin). Results are
written as flat series files and recorded in a local SQLite ledger.

Use 'heston-greeks run trials' to repeat the estimate at one spot, or
'heston-greeks run sweep' to trace it across a grid of spots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return err
			}
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/heston-greeks)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

// init loads configuration and logging unless they were injected.
func (a *App) init(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		dir = config.DefaultConfigDir()
	}
	a.ConfigDir = dir

	if a.Config != nil {
		return nil
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.Config = cfg
	a.Logger = logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
	return nil
}

// ledger opens the run ledger on first use.
func (a *App) ledger() (store.RunLedger, error) {
	if a.Ledger != nil {
		return a.Ledger, nil
	}
	path := a.Config.Output.LedgerPath
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	ledger, err := store.NewSQLiteLedger(path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", path).Msg("Run ledger opened")
	a.Ledger = ledger
	return ledger, nil
}

// Close releases the ledger if it was opened.
func (a *App) Close() error {
	if a.Ledger == nil {
		return nil
	}
	err := a.Ledger.Close()
	a.Ledger = nil
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("heston-greeks v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the model, market and simulation configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.ConfigFile(app.ConfigDir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Heston Model")
	output.Printf("  Kappa:    %g\n", cfg.Model.Kappa)
	output.Printf("  Theta:    %g\n", cfg.Model.Theta)
	output.Printf("  Epsilon:  %g\n", cfg.Model.Epsilon)
	output.Printf("  Rho:      %g\n", cfg.Model.Rho)
	if !cfg.Params().FellerSatisfied() {
		output.Warning("  Feller condition violated: variance can reach zero")
	}
	output.Println()

	output.Bold("Market")
	output.Printf("  Spot:     %g\n", cfg.Market.Spot)
	output.Printf("  Variance: %g\n", cfg.Market.Variance)
	output.Printf("  Maturity: %g (%d steps of %g)\n", cfg.Market.Maturity, cfg.Steps(), cfg.Market.StepSize)
	output.Println()

	output.Bold("Option")
	output.Printf("  %s %s K=%g x%g\n", cfg.Option.Side, cfg.Option.Kind, cfg.Option.Strike, cfg.Option.Notional)
	output.Println()

	output.Bold("Simulation")
	output.Printf("  Seed:     %d\n", cfg.Simulation.Seed)
	output.Printf("  Paths:    %d (%s)\n", cfg.Simulation.Paths, cfg.Simulation.Sampling)
	output.Printf("  Bump:     %g\n", cfg.Simulation.Bump)
	output.Printf("  Trials:   %d\n", cfg.Simulation.Trials)
	output.Printf("  Sweep:    %g..%g x %d\n", cfg.Sweep.Lower, cfg.Sweep.Upper, cfg.Sweep.Points)
	output.Println()

	output.Bold("Output")
	output.Printf("  Dir:      %s\n", cfg.Output.Dir)
	output.Printf("  Ledger:   %v (%s)\n", cfg.Output.Ledger, cfg.Output.LedgerPath)

	return nil
}
