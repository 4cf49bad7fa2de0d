// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("silent", false)

	viper.SetDefault("main.name", "SoundViz")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/soundviz.log")

	viper.SetDefault("input.path", "logs/log.csv")

	viper.SetDefault("output.path", "output/")
	viper.SetDefault("output.format", "csv")

	viper.SetDefault("analysis.chunksize", 50000)
	viper.SetDefault("analysis.workers", 0)
	viper.SetDefault("analysis.noisethreshold", 0.0)
	viper.SetDefault("analysis.matchpolicy", MatchPolicyFIFO)
}
