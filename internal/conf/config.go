// config.go: settings for the soundviz report pipeline. Defines the
// settings struct and functions to load settings from defaults, an optional
// config file and bound command-line flags.
package conf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cecat/soundviz-go/internal/errors"
)

// Match policies accepted by analysis.matchpolicy.
const (
	MatchPolicyFIFO = "fifo"
	MatchPolicyLIFO = "lifo"
)

// LogConfig contains settings for a rotating log file.
type LogConfig struct {
	Enabled bool   // true to enable file logging
	Path    string // path to log file
}

// MainSettings contains main application settings.
type MainSettings struct {
	Name string    // name of this node, used in summaries
	Log  LogConfig // main log file settings
}

// InputSettings contains settings for the input sound log.
type InputSettings struct {
	Path string // path to the combined CSV sound log
}

// OutputSettings contains settings for summary artifacts.
type OutputSettings struct {
	Path   string // directory for summary artifacts
	Format string // summary format, "table" or "csv"
}

// AnalysisSettings contains settings for the aggregation engine.
type AnalysisSettings struct {
	ChunkSize      int     // rows per chunk
	Workers        int     // worker count, 0 for automatic sizing
	NoiseThreshold float64 // minimum class score for class-level counts
	MatchPolicy    string  // event stitching tie-break, "fifo" or "lifo"
}

// Settings contains all application settings.
type Settings struct {
	Debug   bool // true to enable debug output
	Verbose bool // true to enable verbose output
	Silent  bool // true to suppress all but warning/error output

	Main     MainSettings
	Input    InputSettings
	Output   OutputSettings
	Analysis AnalysisSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a Settings struct: defaults first, then
// an optional config.yaml from the standard paths, with bound flags taking
// precedence through viper.
func Load() (*Settings, error) {
	settings := &Settings{}

	initViper()

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	return settings, nil
}

func initViper() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths := configSearchPaths()
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and flags carry the run.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "error reading config file: %v\n", err)
		}
	}
}

// configSearchPaths returns the directories viper should search for
// config.yaml, current directory first.
func configSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "soundviz"))
	}
	return paths
}

// Setting returns the global settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		settingsMutex.Lock()
		defer settingsMutex.Unlock()
		var err error
		settingsInstance, err = Load()
		if err != nil {
			panic(fmt.Sprintf("error loading settings: %v", err))
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DumpYAML writes the effective settings as YAML.
func (s *Settings) DumpYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("error encoding settings to yaml: %w", err)
	}
	return enc.Close()
}
