// Package config loads command-surface defaults with spf13/viper:
// default log verbosity, the default key size for "create", and the
// default range-list count "k" for "list" when the caller omits it.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the defaults the command surface falls back to when a
// flag is not explicitly set.
type Config struct {
	Verbose        bool `mapstructure:"verbose"`
	DefaultKeySize int  `mapstructure:"default_key_size"`
	DefaultListK   int  `mapstructure:"default_list_k"`
}

// Load reads btreeindex.yaml from the search paths below, falling back
// to built-in defaults when no file is found, and allows BTREEINDEX_*
// environment variables to override either. Command-line flags take
// precedence over both and are applied by the caller after Load
// returns.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("btreeindex")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.btreeindex")
	v.AddConfigPath("/etc/btreeindex")

	v.SetDefault("verbose", false)
	v.SetDefault("default_key_size", 8)
	v.SetDefault("default_list_k", 10)

	v.SetEnvPrefix("BTREEINDEX")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading btreeindex config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling btreeindex config: %w", err)
	}
	return &cfg, nil
}
