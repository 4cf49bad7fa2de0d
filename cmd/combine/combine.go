package combine

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cecat/soundviz-go/internal/conf"
	"github.com/cecat/soundviz-go/internal/logcombine"
	"github.com/cecat/soundviz-go/internal/logging"
)

// Command creates the combine command, which concatenates rotated log
// files in a directory into a single chronological log.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "combine [directory]",
		Short: "Combine rotated sound logs into one chronological file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Dir(settings.Input.Path)
			if len(args) > 0 {
				dir = args[0]
			}
			out, err := logcombine.Combine(dir)
			if err != nil {
				return err
			}
			logging.Info("combined log written", "path", out)
			return nil
		},
	}
}
