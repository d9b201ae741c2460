package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"trafficcount/config"
	"trafficcount/internal/export"
	"trafficcount/internal/model"
	"trafficcount/internal/service"
	"trafficcount/internal/service/analysis"
)

func newRecordCmd(a *app) *cobra.Command {
	var entry model.Entry
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a manual traffic count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := entry.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if analysis.IsHighTraffic(entry, a.cfg.Dashboard.HighTrafficThreshold) {
				fmt.Fprintf(out, "High traffic alert! Total manual vehicles: %d\n", entry.Total())
			}
			_, msg, err := a.services.Dashboard.Record(cmd.Context(), entry)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, msg.Text)
			return nil
		},
	}
	cmd.Flags().IntVar(&entry.Cars, "cars", 0, "number of cars")
	cmd.Flags().IntVar(&entry.Bicycles, "bicycles", 0, "number of bicycles")
	cmd.Flags().IntVar(&entry.Pedestrians, "pedestrians", 0, "number of pedestrians")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Append one random sample",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := a.services.Generator.Generate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Auto-generated data - Cars: %d, Bicycles: %d, Pedestrians: %d\n",
				record.Cars, record.Bicycles, record.Pedestrians)
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Append many random samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 || count > service.MaxSeedCount {
				return fmt.Errorf("count must be between 1 and %d", service.MaxSeedCount)
			}
			bar := progressbar.NewOptions(count,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("seeding"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			n, err := a.services.Seeder.Run(cmd.Context(), count, "cli", func(done int) {
				_ = bar.Set(done)
			})
			_ = bar.Finish()
			if err != nil {
				return fmt.Errorf("seeded %d of %d samples: %w", n, count, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d samples\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", config.DefaultSeedCount, "number of samples")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all recorded traffic counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.services.Dashboard.Records(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No data recorded yet.")
				return nil
			}
			renderRecords(out, records)
			return nil
		},
	}
}

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Summarize traffic by hour of day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.services.Dashboard.Analyze(cmd.Context())
			out := cmd.OutOrStdout()
			if errors.Is(err, analysis.ErrEmptyInput) {
				fmt.Fprintln(out, "No data recorded yet.")
				return nil
			}
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Hour", "Total"})
			table.SetAlignment(tablewriter.ALIGN_RIGHT)
			for _, b := range view.Hourly {
				table.Append([]string{fmt.Sprintf("%d:00", b.Hour), strconv.Itoa(b.Total)})
			}
			table.Render()
			fmt.Fprintln(out, view.Headline)
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded traffic counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.services.Dashboard.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg.Text)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		formatName string
		outPath    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records as csv, json or parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			records, err := a.services.Dashboard.Records(cmd.Context())
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				return export.Write(cmd.OutOrStdout(), records, format)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := export.Write(f, records, format); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", len(records), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&formatName, "format", string(export.FormatCSV), "csv, json or parquet")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func renderRecords(w io.Writer, records []model.TrafficRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Time", "Cars", "Bicycles", "Pedestrians", "Total"})
	for _, r := range records {
		table.Append([]string{
			r.Date,
			r.Time.Format(model.TimeLayout),
			strconv.Itoa(r.Cars),
			strconv.Itoa(r.Bicycles),
			strconv.Itoa(r.Pedestrians),
			strconv.Itoa(r.Total()),
		})
	}
	table.Render()
}
