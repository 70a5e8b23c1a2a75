// Package config provides configuration management for the Greek estimation runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Model      ModelConfig      `mapstructure:"model"`
	Market     MarketConfig     `mapstructure:"market"`
	Option     OptionConfig     `mapstructure:"option"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Sweep      SweepConfig      `mapstructure:"sweep"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ModelConfig holds the Heston variance process parameters.
type ModelConfig struct {
	Kappa   float64 `mapstructure:"kappa"`   // mean reversion speed
	Theta   float64 `mapstructure:"theta"`   // long-run variance
	Epsilon float64 `mapstructure:"epsilon"` // vol of vol
	Rho     float64 `mapstructure:"rho"`     // spot/variance correlation
}

// MarketConfig holds the nominal market state.
type MarketConfig struct {
	Spot     float64 `mapstructure:"spot"`
	Variance float64 `mapstructure:"variance"`
	Maturity float64 `mapstructure:"maturity"`
	StepSize float64 `mapstructure:"step_size"`
}

// OptionConfig describes the European option being priced.
type OptionConfig struct {
	Strike   float64 `mapstructure:"strike"`
	Notional float64 `mapstructure:"notional"`
	Side     string  `mapstructure:"side"` // BUY, SELL
	Kind     string  `mapstructure:"kind"` // CALL, PUT
}

// SimulationConfig holds Monte Carlo settings.
type SimulationConfig struct {
	Seed     uint64  `mapstructure:"seed"`
	Paths    int     `mapstructure:"paths"`
	Sampling string  `mapstructure:"sampling"` // PLAIN, ANTITHETIC
	Bump     float64 `mapstructure:"bump"`
	Trials   int     `mapstructure:"trials"`
}

// SweepConfig holds the spot grid of the sweep workflow.
type SweepConfig struct {
	Lower  float64 `mapstructure:"lower"`
	Upper  float64 `mapstructure:"upper"`
	Points int     `mapstructure:"points"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Dir        string `mapstructure:"dir"`
	Ledger     bool   `mapstructure:"ledger"`
	LedgerPath string `mapstructure:"ledger_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// EnvPrefix prefixes environment overrides, e.g. HESTON_SIMULATION_SEED.
const EnvPrefix = "HESTON"

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/heston-greeks"
	}
	return filepath.Join(home, ".config", "heston-greeks")
}

// ConfigFile returns the path of config.toml inside configDir.
func ConfigFile(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by a commented template and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	setDefaults(v, configDir)
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration, rooted at configDir.
func Default(configDir string) *Config {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	v := viper.New()
	setDefaults(v, configDir)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("model.kappa", 0.5)
	v.SetDefault("model.theta", 0.05)
	v.SetDefault("model.epsilon", 1.1)
	v.SetDefault("model.rho", -0.9)

	v.SetDefault("market.spot", 100.0)
	v.SetDefault("market.variance", 0.05)
	v.SetDefault("market.maturity", 2.0)
	v.SetDefault("market.step_size", 1.0/32)

	v.SetDefault("option.strike", 120.0)
	v.SetDefault("option.notional", 1.0)
	v.SetDefault("option.side", "BUY")
	v.SetDefault("option.kind", "CALL")

	v.SetDefault("simulation.seed", uint64(123456789))
	v.SetDefault("simulation.paths", 100000)
	v.SetDefault("simulation.sampling", "ANTITHETIC")
	v.SetDefault("simulation.bump", 1e-4)
	v.SetDefault("simulation.trials", 3)

	v.SetDefault("sweep.lower", 80.0)
	v.SetDefault("sweep.upper", 120.0)
	v.SetDefault("sweep.points", 100)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.ledger", true)
	v.SetDefault("output.ledger_path", filepath.Join(configDir, "runs.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "heston-greeks.log"))
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age", 30)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Model
	if c.Model.Kappa < 0 {
		return apperrors.NewValidationError("model.kappa", c.Model.Kappa, "must be non-negative")
	}
	if c.Model.Theta < 0 {
		return apperrors.NewValidationError("model.theta", c.Model.Theta, "must be non-negative")
	}
	if c.Model.Epsilon < 0 {
		return apperrors.NewValidationError("model.epsilon", c.Model.Epsilon, "must be non-negative")
	}
	if c.Model.Rho < -1 || c.Model.Rho > 1 {
		return apperrors.NewValidationError("model.rho", c.Model.Rho, "must be between -1 and 1")
	}

	// Market
	if c.Market.Spot <= 0 {
		return apperrors.NewValidationError("market.spot", c.Market.Spot, "must be positive")
	}
	if c.Market.Variance < 0 {
		return apperrors.NewValidationError("market.variance", c.Market.Variance, "must be non-negative")
	}
	if c.Market.Maturity <= 0 {
		return apperrors.NewValidationError("market.maturity", c.Market.Maturity, "must be positive")
	}
	if c.Market.StepSize <= 0 || c.Steps() < 1 {
		return apperrors.NewValidationError("market.step_size", c.Market.StepSize, "must be positive and no larger than maturity")
	}

	// Option
	if c.Option.Strike < 0 {
		return apperrors.NewValidationError("option.strike", c.Option.Strike, "must be non-negative")
	}
	if _, err := models.ParseSide(c.Option.Side); err != nil {
		return apperrors.NewValidationError("option.side", c.Option.Side, err.Error())
	}
	if _, err := models.ParseOptionKind(c.Option.Kind); err != nil {
		return apperrors.NewValidationError("option.kind", c.Option.Kind, err.Error())
	}

	// Simulation
	if err := c.Simulation.Validate(); err != nil {
		return err
	}

	// Sweep
	if c.Sweep.Points < 1 {
		return apperrors.NewValidationError("sweep.points", c.Sweep.Points, "must be at least 1")
	}
	if c.Sweep.Lower <= 0 || c.Sweep.Upper < c.Sweep.Lower {
		return apperrors.NewValidationError("sweep", fmt.Sprintf("%g..%g", c.Sweep.Lower, c.Sweep.Upper), "need 0 < lower <= upper")
	}

	// Output
	if c.Output.Dir == "" {
		return apperrors.NewValidationError("output.dir", c.Output.Dir, "must not be empty")
	}
	if c.Output.Ledger && c.Output.LedgerPath == "" {
		return apperrors.NewValidationError("output.ledger_path", c.Output.LedgerPath, "required when the ledger is enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return apperrors.NewValidationError("logging.level", c.Logging.Level, "must be debug, info, warn or error")
	}

	return nil
}

// Validate checks the Monte Carlo settings. It is also used after command-line
// flags have overridden the loaded values.
func (s SimulationConfig) Validate() error {
	if s.Paths <= 0 {
		return apperrors.NewValidationError("simulation.paths", s.Paths, "must be positive")
	}
	mode, err := models.ParseSamplingMode(s.Sampling)
	if err != nil {
		return apperrors.NewValidationError("simulation.sampling", s.Sampling, err.Error())
	}
	if mode == models.SamplingAntithetic && s.Paths%2 != 0 {
		return apperrors.NewValidationError("simulation.paths", s.Paths, "must be even for antithetic sampling")
	}
	if s.Bump <= 0 {
		return apperrors.NewValidationError("simulation.bump", s.Bump, "must be positive")
	}
	if s.Trials <= 0 {
		return apperrors.NewValidationError("simulation.trials", s.Trials, "must be positive")
	}
	return nil
}

// Steps returns the number of time steps per path.
func (c *Config) Steps() int {
	return models.StepsFor(c.Market.Maturity, c.Market.StepSize)
}

// Params returns the Heston parameters.
func (c *Config) Params() models.SimulationParameters {
	return models.SimulationParameters{
		MeanReversion:   c.Model.Kappa,
		LongRunVariance: c.Model.Theta,
		VolOfVol:        c.Model.Epsilon,
		Correlation:     c.Model.Rho,
	}
}

// MarketState returns the nominal market state.
func (c *Config) MarketState() models.MarketState {
	return models.MarketState{
		Spot:     c.Market.Spot,
		Variance: c.Market.Variance,
		Maturity: c.Market.Maturity,
		Steps:    c.Steps(),
	}
}

// Contract returns the configured option.
func (c *Config) Contract() (models.OptionContract, error) {
	side, err := models.ParseSide(c.Option.Side)
	if err != nil {
		return models.OptionContract{}, err
	}
	kind, err := models.ParseOptionKind(c.Option.Kind)
	if err != nil {
		return models.OptionContract{}, err
	}
	return models.NewOptionContract(c.Option.Strike, c.Option.Notional, side, kind, c.Market.Spot, c.Market.Maturity), nil
}

// SamplingMode returns the configured sampling mode.
func (c *Config) SamplingMode() (models.SamplingMode, error) {
	return models.ParseSamplingMode(c.Simulation.Sampling)
}
