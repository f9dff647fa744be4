// Package config handles configuration loading for readycheck.
// It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/halverson/readycheck/internal/validation"
)

// projectConfigName is the per-project override file.
const projectConfigName = ".readycheck.yaml"

// Config holds all settings for a validation run plus tool-level
// options that never reach the validation core.
type Config struct {
	Validation ValidationConfig `mapstructure:"validation"`
	History    HistoryConfig    `mapstructure:"history"`
	TUI        TUIConfig        `mapstructure:"tui"`
}

// ValidationConfig maps directly onto the core ExecutionConfig.
type ValidationConfig struct {
	// Phases lists the enabled phase identifiers. "all" enables every
	// phase in the catalog.
	Phases []string `mapstructure:"phases"`
	// SkipOptionalChecks omits non-essential engine checks.
	SkipOptionalChecks bool `mapstructure:"skip_optional_checks"`
	// MaxConcurrentUsers is the synthetic load for database simulation.
	MaxConcurrentUsers int `mapstructure:"max_concurrent_users"`
	// Timeout bounds each engine lifecycle call.
	Timeout time.Duration `mapstructure:"timeout"`
	// OutputFormat is JSON, MARKDOWN or HTML.
	OutputFormat string `mapstructure:"output_format"`
	// LogLevel is the minimum recorded log level.
	LogLevel string `mapstructure:"log_level"`
}

// HistoryConfig controls run persistence.
type HistoryConfig struct {
	// Enabled turns run persistence on.
	Enabled bool `mapstructure:"enabled"`
	// Path overrides the history database location.
	Path string `mapstructure:"path"`
}

// TUIConfig holds live-progress display settings.
type TUIConfig struct {
	// RefreshRate is how often the progress view polls the controller.
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration with the usual precedence:
// environment variables, then project config (.readycheck.yaml in the
// current directory or a parent), then user config
// (~/.config/readycheck/config.yaml), then built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("READYCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// ExecutionConfig converts the loaded settings into the immutable core
// configuration, validating phase identifiers and formats.
func (c *Config) ExecutionConfig() (validation.ExecutionConfig, error) {
	phases, err := resolvePhases(c.Validation.Phases)
	if err != nil {
		return validation.ExecutionConfig{}, err
	}

	format := validation.OutputFormat(strings.ToUpper(c.Validation.OutputFormat))
	switch format {
	case validation.FormatJSON, validation.FormatMarkdown, validation.FormatHTML:
	default:
		return validation.ExecutionConfig{}, fmt.Errorf("unknown output format %q", c.Validation.OutputFormat)
	}

	return validation.ExecutionConfig{
		EnabledPhases:      phases,
		SkipOptionalChecks: c.Validation.SkipOptionalChecks,
		MaxConcurrentUsers: c.Validation.MaxConcurrentUsers,
		Timeout:            c.Validation.Timeout,
		OutputFormat:       format,
		LogLevel:           validation.ParseLogLevel(strings.ToUpper(c.Validation.LogLevel)),
	}, nil
}

// resolvePhases maps configured names to phase identifiers.
func resolvePhases(names []string) ([]validation.PhaseID, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) == 1 && strings.EqualFold(names[0], "all") {
		return validation.AllPhaseIDs(), nil
	}

	var phases []validation.PhaseID
	for _, name := range names {
		id := validation.PhaseID(strings.ToLower(strings.TrimSpace(name)))
		if _, ok := validation.PhaseByID(id); !ok {
			return nil, fmt.Errorf("unknown phase %q", name)
		}
		phases = append(phases, id)
	}
	return phases, nil
}

// GetUserConfigPath returns the path of the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

func getUserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "readycheck")
}

// findProjectConfig walks up from the working directory looking for the
// project override file.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, projectConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("validation.phases", []string{"all"})
	v.SetDefault("validation.skip_optional_checks", false)
	v.SetDefault("validation.max_concurrent_users", 10)
	v.SetDefault("validation.timeout", "5m")
	v.SetDefault("validation.output_format", "JSON")
	v.SetDefault("validation.log_level", "INFO")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")

	v.SetDefault("tui.refresh_rate", "200ms")
}
