package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <device-address>",
	Short: "Show device info and dive count",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

type deviceInfoReport struct {
	ModelName string `json:"model_name"`
	Model     string `json:"model"`
	PCBNumber string `json:"pcb_number"`
	DiveCount int    `json:"dive_count"`
}

func runInfo(cmd *cobra.Command, args []string) error {
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

	info, err := dev.object.GetDeviceInfo(ctx)
	if err != nil {
		return fmt.Errorf("get device info: %w", err)
	}
	pcb, err := dev.object.ReadPCBNumber(ctx)
	if err != nil {
		return fmt.Errorf("read pcb number: %w", err)
	}
	count, err := dev.object.CountDives(ctx)
	if err != nil {
		return fmt.Errorf("count dives: %w", err)
	}
	progress.Callback()("Done")

	report := deviceInfoReport{
		ModelName: info.ModelName,
		Model:     fmt.Sprintf("0x%02X", byte(info.Model)),
		PCBNumber: pcb,
		DiveCount: count,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
