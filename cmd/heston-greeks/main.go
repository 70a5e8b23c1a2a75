// Command heston-greeks estimates Heston-model option Greeks by Monte Carlo.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"heston-greeks/internal/cli"
)

func main() {
	// Configuration and logging are loaded from --config once flags are parsed.
	rootCmd := cli.NewRootCmd(nil, zerolog.Nop())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
