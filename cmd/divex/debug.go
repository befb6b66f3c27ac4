package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// debugCmd connects to a device and issues CMD_VERSION, running the SDO
// engine at debug log level so every frame is hex-dumped to stderr. This
// is a diagnostic aid, not a data-extraction path.
var debugCmd = &cobra.Command{
	Use:   "debug <device-address>",
	Short: "Hex-dump every SDO frame exchanged with a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDebug,
}

func runDebug(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	logger.SetLevel(logrus.DebugLevel)
	cmd.SilenceUsage = true

	address := args[0]
	ctx := context.Background()

	dev, err := connectByAddress(ctx, address, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	info, err := dev.object.GetDeviceInfo(ctx)
	if err != nil {
		return fmt.Errorf("get device info: %w", err)
	}
	fmt.Printf("model: %s (0x%02X)\n", info.ModelName, byte(info.Model))

	count, err := dev.object.CountDives(ctx)
	if err != nil {
		return fmt.Errorf("count dives: %w", err)
	}
	fmt.Printf("dive count: %d\n", count)
	return nil
}
