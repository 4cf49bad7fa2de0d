package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cecat/soundviz-go/internal/conf"
)

// Command creates the config command, which prints the effective
// configuration as YAML.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return settings.DumpYAML(os.Stdout)
		},
	}
}
