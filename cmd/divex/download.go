package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srg/divex/internal/divedecode"
	"github.com/srg/divex/internal/divemodel"
)

var downloadCmd = &cobra.Command{
	Use:   "download <device-address>",
	Short: "Download and decode dive logs",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

var (
	downloadOutput string
	downloadFormat string
	downloadRawDir string
)

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "dives.json", "Output file (json) or basename (csv, one file per dive)")
	downloadCmd.Flags().StringVarP(&downloadFormat, "format", "f", "json", "Export format (json, csv)")
	downloadCmd.Flags().StringVar(&downloadRawDir, "save-raw", "", "Also save each dive's raw header/profile blobs to this directory")
}

type diveData struct {
	Dives []divemodel.DiveLog `json:"dives"`
}

func runDownload(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	if downloadFormat != "json" && downloadFormat != "csv" {
		return fmt.Errorf("invalid format %q: must be json or csv", downloadFormat)
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
		logger.WithError(err).Warn("could not set device clock")
	}

	progress.Callback()("Counting dives")
	count, err := dev.object.CountDives(ctx)
	if err != nil {
		return fmt.Errorf("count dives: %w", err)
	}
	if count == 0 {
		progress.Callback()("Done")
		fmt.Println("No dives on device.")
		return nil
	}

	dives := make([]divemodel.DiveLog, 0, count)
	for i := 0; i < count; i++ {
		progress.Callback()(fmt.Sprintf("Downloading dive %d/%d", i+1, count))

		header, err := dev.object.ReadDiveHeader(ctx, uint32(i))
		if err != nil {
			return fmt.Errorf("read dive header %d: %w", i, err)
		}
		profile, err := dev.object.ReadDiveProfile(ctx, uint32(i))
		if err != nil {
			return fmt.Errorf("read dive profile %d: %w", i, err)
		}

		if downloadRawDir != "" {
			if err := saveRawDive(downloadRawDir, i, header, profile); err != nil {
				return fmt.Errorf("save raw dive %d: %w", i, err)
			}
		}

		parsed, err := divedecode.DecodeHeader(uint32(i), header)
		if err != nil {
			logger.WithError(err).Warnf("dive %d: header parse error, skipping", i)
			continue
		}
		samples := divedecode.DecodeProfile(profile)

		dives = append(dives, divemodel.DiveLog{
			Number:          parsed.Number,
			DateTime:        parsed.DateTime,
			DurationSeconds: parsed.DurationSeconds,
			DurationFlagged: parsed.DurationFlagged,
			MaxDepthM:       parsed.MaxDepthM,
			Mode:            parsed.Mode,
			GasMixes:        parsed.GasMixes,
			Samples:         samples,
		})
	}
	progress.Callback()("Done")

	sort.Slice(dives, func(i, j int) bool { return dives[i].Number < dives[j].Number })
	printDiveSummaries(dives)

	if downloadFormat == "csv" {
		return writeDivesCSV(dives, downloadOutput)
	}
	return writeDivesJSON(dives, downloadOutput)
}

func saveRawDive(dir string, index int, header, profile []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("dive_%03d_header.bin", index)), header, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fmt.Sprintf("dive_%03d_profile.bin", index)), profile, 0o644)
}

func printDiveSummaries(dives []divemodel.DiveLog) {
	ok := color.New(color.FgGreen)
	flagged := color.New(color.FgYellow)
	for _, d := range dives {
		line := fmt.Sprintf("  Dive #%d: %s | %.1fm | %ds | %d samples",
			d.Number, d.DateTime.String(), d.MaxDepthM, d.DurationSeconds, len(d.Samples))
		if d.DurationFlagged {
			flagged.Println(line + " (duration saturated)")
		} else {
			ok.Println(line)
		}
	}
}

func writeDivesJSON(dives []divemodel.DiveLog, output string) error {
	data, err := json.MarshalIndent(diveData{Dives: dives}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Dive data saved to %s (%d dives)\n", output, len(dives))
	return nil
}

func writeDivesCSV(dives []divemodel.DiveLog, output string) error {
	stem := output[:len(output)-len(filepath.Ext(output))]
	for _, d := range dives {
		path := fmt.Sprintf("%s_%03d.csv", stem, d.Number)
		if err := os.WriteFile(path, []byte(diveToCSV(d)), 0o644); err != nil {
			return err
		}
		fmt.Printf("  Dive #%d -> %s\n", d.Number, path)
	}
	return nil
}

// diveToCSV is grounded on the original tool's dive_to_csv: one row per
// sample, optionals rendered as empty fields.
func diveToCSV(d divemodel.DiveLog) string {
	csv := "time_s,depth_m,temp_c,pressure_bar\n"
	for _, s := range d.Samples {
		tempC := ""
		if s.TempC != nil {
			tempC = fmt.Sprintf("%.1f", *s.TempC)
		}
		pressureBar := ""
		if s.PressureBar != nil {
			pressureBar = fmt.Sprintf("%.1f", *s.PressureBar)
		}
		csv += fmt.Sprintf("%d,%.1f,%s,%s\n", s.TimeSeconds, s.DepthM, tempC, pressureBar)
	}
	return csv
}
