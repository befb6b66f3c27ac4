package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/srg/divex/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootConfig holds the defaults every subcommand's logger/timeouts are
// built from; overridden per-invocation by --config if set.
var rootConfig = config.New()

func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

var rootCmd = &cobra.Command{
	Use:   "divex",
	Short: "Mares dive-computer extraction tool",
	Long: `divex talks to Mares GENIUS-family dive computers over BLE:

- Scan for nearby supported devices
- Read device info (model, PCB number, dive count)
- Download dive logs and export them as JSON or CSV
- Set the device's on-board clock

The transport and protocol decoder are the hard parts; this CLI is a
thin driver over them.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(setClockCmd)
	rootCmd.AddCommand(debugCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "Verbose (debug-level) logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}

var configPath string

// loadConfig resolves rootConfig from --config if given, otherwise keeps
// the struct-tag defaults already in rootConfig.
func loadConfig() error {
	if configPath == "" {
		return nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rootConfig = cfg
	return nil
}
