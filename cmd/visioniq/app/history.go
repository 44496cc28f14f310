package app

import (
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"visioniq.io/visioniq/cmd/visioniq/app/options"
	"visioniq.io/visioniq/internal/store"
)

const chartHeight = 15

var chartSeries = map[string]struct {
	caption string
	value   func(store.Sample) float64
}{
	"range":   {"EV Driving Range (miles)", func(s store.Sample) float64 { return s.DrivingRange }},
	"charge":  {"Charging Level (%)", func(s store.Sample) float64 { return s.ChargingLevel }},
	"mileage": {"Total Miles", func(s store.Sample) float64 { return s.Mileage }},
}

func newHistoryCommand(opts *options.VisionIQOptions) *cobra.Command {
	var (
		limit int
		chart string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded samples as a table or an ASCII chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.ValidateHistory(); err != nil {
				return err
			}

			samples, err := store.NewCSVStore(opts.StoreOptions.Path).ReadAll()
			if err != nil {
				return err
			}
			samples = tail(samples, limit)

			if chart != "" {
				return printChart(cmd.OutOrStdout(), samples, chart)
			}
			printTable(cmd.OutOrStdout(), samples)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the last N samples (0 shows all).")
	cmd.Flags().StringVar(&chart, "chart", "", "Draw an ASCII chart instead of a table: range, charge or mileage.")
	return cmd
}

func tail(samples []store.Sample, n int) []store.Sample {
	if n <= 0 || n >= len(samples) {
		return samples
	}
	return samples[len(samples)-n:]
}

func printTable(w io.Writer, samples []store.Sample) {
	if len(samples) == 0 {
		fmt.Fprintln(w, "No samples recorded.")
		return
	}

	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("TIMESTAMP", "CHARGE(%)", "MILEAGE", "HEALTH(%)", "RANGE", "LOCATION")
	for _, s := range samples {
		ts := "-"
		if !s.Timestamp.IsZero() {
			ts = store.FormatTimestamp(s.Timestamp)
		}
		loc := "-"
		if s.Location != nil {
			loc = fmt.Sprintf("%.5f,%.5f", s.Location.Latitude, s.Location.Longitude)
		}
		table.AddRow(ts, s.ChargingLevel, s.Mileage, s.BatteryHealth, s.DrivingRange, loc)
	}
	fmt.Fprintln(w, table)
}

func printChart(w io.Writer, samples []store.Sample, name string) error {
	series, ok := chartSeries[name]
	if !ok {
		return fmt.Errorf("unknown chart %q, must be range, charge or mileage", name)
	}

	data := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Timestamp.IsZero() {
			continue
		}
		data = append(data, series.value(s))
	}
	if len(data) == 0 {
		fmt.Fprintln(w, "No samples recorded.")
		return nil
	}

	fmt.Fprintln(w, asciigraph.Plot(data,
		asciigraph.Height(chartHeight),
		asciigraph.Caption(series.caption),
	))
	return nil
}
