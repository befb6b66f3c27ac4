package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var setClockCmd = &cobra.Command{
	Use:   "setclock <device-address>",
	Short: "Set the device's on-board clock to the current time",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetClock,
}

func runSetClock(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	address := args[0]
	ctx := context.Background()

	progress := NewProgressPrinter(fmt.Sprintf("Connecting to %s", address), "Connecting", "Done")
	progress.Start()
	defer progress.Stop()

	dev, err := connectByAddress(ctx, address, logger, progress.Callback())
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	if err := dev.object.SetClock(ctx); err != nil {
		return fmt.Errorf("set clock: %w", err)
	}
	progress.Callback()("Done")

	fmt.Println("clock set")
	return nil
}
