package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/divex/internal/transport"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for supported dive computers",
	Long: `Scan for nearby Mares GENIUS-family dive computers.

Only devices whose advertised name matches the vendor allow-list are
shown (Mares, Sirius, Quad Ci, Quad2, Puck4, Puck Lite, Puck Pro U, Puck).`,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanFormat   string
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration (defaults to the configured scan timeout)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	timeout := rootConfig.ScanTimeout
	if scanDuration > 0 {
		timeout = scanDuration
	}

	adapter, err := transport.OpenAdapter(logger)
	if err != nil {
		return err
	}

	progress := NewCountdownProgressPrinter("Scanning for dive computers", "Scanning", timeout)
	progress.Start()
	peripherals, err := adapter.Scan(context.Background(), timeout)
	progress.Stop()
	if err != nil {
		return err
	}

	sort.Slice(peripherals, func(i, j int) bool {
		return peripherals[i].Name < peripherals[j].Name
	})

	if scanFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(peripherals)
	}
	return printPeripheralsTable(peripherals)
}

func printPeripheralsTable(peripherals []transport.Peripheral) error {
	if len(peripherals) == 0 {
		fmt.Println("No supported devices discovered")
		return nil
	}

	colorize := term.IsTerminal(int(os.Stdout.Fd()))
	rssiGood := color.New(color.FgGreen)
	rssiWeak := color.New(color.FgYellow)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI")
	for _, p := range peripherals {
		rssi := fmt.Sprintf("%d dBm", p.RSSI)
		if colorize {
			c := rssiWeak
			if p.RSSI > -70 {
				c = rssiGood
			}
			rssi = c.Sprint(rssi)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Address, rssi)
	}
	return w.Flush()
}
