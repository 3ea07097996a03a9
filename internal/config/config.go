// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port              int `mapstructure:"port"`
	SyncInterval      int `mapstructure:"sync_interval"`       // Minutes between artifact sync runs
	FeedCheckInterval int `mapstructure:"feed_check_interval"` // Minutes between feed checks
	ClaimTimeout      int `mapstructure:"claim_timeout"`       // Minutes before a worker claim is considered stalled
	Database          struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Artifacts struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"artifacts"`
	Scripts struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"scripts"`
	Generation struct {
		Workers      int    `mapstructure:"workers"`
		DefaultVoice string `mapstructure:"default_voice"`
		SampleRate   int    `mapstructure:"sample_rate"`
	} `mapstructure:"generation"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "PODMILL_" prefix.
	// e.g., PODMILL_DATABASE_PATH will override the `database.path` key.
	viper.SetEnvPrefix("PODMILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("sync_interval", 60)
	viper.SetDefault("feed_check_interval", 360)
	viper.SetDefault("claim_timeout", 30)
	viper.SetDefault("database.path", "./podmill.db")
	viper.SetDefault("artifacts.path", "./artifacts")
	viper.SetDefault("scripts.path", "./scripts")
	viper.SetDefault("generation.workers", 2)
	viper.SetDefault("generation.default_voice", "narrator")
	viper.SetDefault("generation.sample_rate", 22050)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
