package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Heston Greeks Configuration
# Every key can be overridden from the environment, e.g. HESTON_SIMULATION_SEED=42

[model]
# Mean reversion speed of the variance
kappa = 0.5
# Long-run variance
theta = 0.05
# Volatility of variance
epsilon = 1.1
# Correlation between spot and variance shocks (-1 to 1)
rho = -0.9

[market]
# Nominal spot price
spot = 100.0
# Initial variance
variance = 0.05
# Maturity in years
maturity = 2.0
# Time step in years
step_size = 0.03125

[option]
strike = 120.0
notional = 1.0
# BUY or SELL
side = "BUY"
# CALL or PUT
kind = "CALL"

[simulation]
seed = 123456789
# Paths per simulation (must be even for antithetic sampling)
paths = 100000
# PLAIN or ANTITHETIC
sampling = "ANTITHETIC"
# Relative spot bump for finite differences
bump = 0.0001
# Trials for the trials workflow
trials = 3

[sweep]
lower = 80.0
upper = 120.0
points = 100

[output]
# Directory for the series files
dir = "."
# Record every run in the SQLite ledger
ledger = true
# ledger_path = "~/.config/heston-greeks/runs.db"

[logging]
# debug, info, warn, error
level = "info"
console = true
file = true
# file_path = "~/.config/heston-greeks/logs/heston-greeks.log"
max_size = 100
max_backups = 7
max_age = 30
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
