// conf/validate.go settings validation
package conf

import (
	"fmt"

	"github.com/cecat/soundviz-go/internal/errors"
)

// ValidateSettings checks the loaded settings for values the aggregation
// engine cannot run with. Validation failures are fatal.
func ValidateSettings(settings *Settings) error {
	if settings.Analysis.ChunkSize <= 0 {
		return errors.Newf("analysis.chunksize must be positive, got %d", settings.Analysis.ChunkSize).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if settings.Analysis.Workers < 0 {
		return errors.Newf("analysis.workers must not be negative, got %d", settings.Analysis.Workers).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if t := settings.Analysis.NoiseThreshold; t < 0 || t > 1 {
		return errors.Newf("analysis.noisethreshold must be within [0, 1], got %g", t).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	switch settings.Analysis.MatchPolicy {
	case MatchPolicyFIFO, MatchPolicyLIFO:
	default:
		return errors.Newf("analysis.matchpolicy must be %q or %q, got %q",
			MatchPolicyFIFO, MatchPolicyLIFO, settings.Analysis.MatchPolicy).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	switch settings.Output.Format {
	case "table", "csv":
	default:
		return errors.New(fmt.Errorf("output.format must be \"table\" or \"csv\", got %q", settings.Output.Format)).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	return nil
}
