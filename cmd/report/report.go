package report

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cecat/soundviz-go/internal/analysis"
	"github.com/cecat/soundviz-go/internal/conf"
	"github.com/cecat/soundviz-go/internal/logging"
	"github.com/cecat/soundviz-go/internal/summary"
)

// Command creates the report command, which aggregates a sound log and
// writes the resulting summary artifacts.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [log.csv]",
		Short: "Aggregate a sound log and write summary artifacts",
		Long: `Read a sound-detection log, process it in parallel chunks and write
per-group, per-camera, per-class and event-span summaries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				settings.Input.Path = args[0]
			}
			return run(cmd, settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings) error {
	start := time.Now()

	agg, err := analysis.Aggregate(cmd.Context(), analysis.OptionsFromSettings(settings))
	if err != nil {
		return err
	}

	switch settings.Output.Format {
	case "table":
		// Tables go to stdout unless an output target was named.
		target := ""
		if cmd.Flags().Changed("output") {
			target = settings.Output.Path
		}
		if err := summary.WriteSummaryTable(agg, target); err != nil {
			return err
		}
	default:
		if err := summary.WriteSummaryCSV(agg, settings.Output.Path); err != nil {
			return err
		}
	}

	logging.Info("report complete",
		"input", settings.Input.Path,
		"rows", agg.TotalRows,
		"skipped", agg.SkippedRows,
		"events", len(agg.EventSpans),
		"elapsed", time.Since(start).Round(time.Millisecond).String())

	return nil
}

// setupFlags defines report-specific flags and binds them to viper.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringP("output", "o", viper.GetString("output.path"), "Directory or file to write summaries to")
	cmd.Flags().StringP("format", "f", viper.GetString("output.format"), "Summary format: table or csv")
	cmd.Flags().Int("chunk-size", viper.GetInt("analysis.chunksize"), "Rows per processing chunk")
	cmd.Flags().IntP("cores", "c", viper.GetInt("analysis.workers"), "Worker count, 0 for automatic")
	cmd.Flags().Float64("noise-threshold", viper.GetFloat64("analysis.noisethreshold"), "Minimum class score counted as signal")
	cmd.Flags().String("match-policy", viper.GetString("analysis.matchpolicy"), "Event-end matching policy: fifo or lifo")

	bindings := map[string]string{
		"output.path":             "output",
		"output.format":           "format",
		"analysis.chunksize":      "chunk-size",
		"analysis.workers":        "cores",
		"analysis.noisethreshold": "noise-threshold",
		"analysis.matchpolicy":    "match-policy",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			logging.Error(fmt.Sprintf("failed to bind %s flag", flag), "error", err)
		}
	}
}
