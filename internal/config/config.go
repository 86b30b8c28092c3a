package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "SWITCHYARD"

// Settings are the CLI knobs, read from flags, SWITCHYARD_* variables and
// an optional config file, in that order of precedence
type Settings struct {
	LogLevel    string `mapstructure:"log_level"`
	LogJSON     bool   `mapstructure:"log_json"`
	Parallelism int    `mapstructure:"parallelism"`
	EnvFile     string `mapstructure:"env_file"`
	Output      string `mapstructure:"output"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("parallelism", 1)
	v.SetDefault("env_file", "")
	v.SetDefault("output", "json")
}

// Init points v at cfgFile, or at $HOME/.switchyard.yaml when cfgFile is
// empty, and reads it if present. It returns the file used, if any.
func Init(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".switchyard")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes v into Settings
func Load(v *viper.Viper) (Settings, error) {
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return settings, fmt.Errorf("failed to decode settings: %w", err)
	}
	if settings.Parallelism < 0 {
		return settings, fmt.Errorf("parallelism must not be negative, got %d", settings.Parallelism)
	}
	return settings, nil
}
