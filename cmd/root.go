package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cecat/soundviz-go/cmd/combine"
	configcmd "github.com/cecat/soundviz-go/cmd/config"
	"github.com/cecat/soundviz-go/cmd/report"
	"github.com/cecat/soundviz-go/internal/conf"
	"github.com/cecat/soundviz-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "soundviz",
		Short: "SoundViz sound-log aggregation CLI",
		Long:  `Aggregate sound-detection logs into per-group, per-camera and per-class statistics with resolved event spans.`,
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		report.Command(settings),
		combine.Command(settings),
		configcmd.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Sync the settings struct with viper so command-line arguments
		// take precedence over config file values and defaults.
		if err := viper.Unmarshal(settings); err != nil {
			return err
		}
		applyLogLevel(settings)
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags configures the global flags for the root command and binds
// them to their viper keys.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().Bool("debug", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", viper.GetBool("verbose"), "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("silent", "s", viper.GetBool("silent"), "Suppress all but warning/error output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logging.Error("failed to bind debug flag", "error", err)
	}
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		logging.Error("failed to bind verbose flag", "error", err)
	}
	if err := viper.BindPFlag("silent", rootCmd.PersistentFlags().Lookup("silent")); err != nil {
		logging.Error("failed to bind silent flag", "error", err)
	}
}

func applyLogLevel(settings *conf.Settings) {
	level := slog.LevelInfo
	switch {
	case settings.Debug || settings.Verbose:
		level = slog.LevelDebug
	case settings.Silent:
		level = slog.LevelWarn
	}
	logging.Init(level)
}
