// Package config loads sharecore configuration the way the teacher's
// vvfs/config package does: viper reads a YAML file (or environment
// overrides) into a typed, mapstructure-tagged struct.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/h0od/airdcpp-webclient/share/internal/paths"

	"github.com/spf13/viper"
)

// Config is the root sharecore configuration.
type Config struct {
	Share ShareConfig `mapstructure:"share"`
	Fuse  FuseConfig  `mapstructure:"fuse"`
}

// RootConfig describes one configured share root.
type RootConfig struct {
	Path        string `mapstructure:"path"`
	VirtualName string `mapstructure:"virtualName"`
	Profiles    []int  `mapstructure:"profiles"`
	Incoming    bool   `mapstructure:"incoming"`
}

// ShareConfig stores everything the scanner and share manager need.
type ShareConfig struct {
	Roots            []RootConfig `mapstructure:"roots"`
	SkipList         []string     `mapstructure:"skipList"`
	ShareHidden      bool         `mapstructure:"shareHidden"`
	MaxFileSizeBytes int64        `mapstructure:"maxFileSizeBytes"`
	RemoveForbidden  bool         `mapstructure:"removeForbidden"`
	Generator        string       `mapstructure:"generator"`
	RegistryDSN      string       `mapstructure:"registryDSN"`
	BloomBits        uint         `mapstructure:"bloomBits"`
}

// FuseConfig configures the optional local read-only mount (§4.15).
type FuseConfig struct {
	Mountpoint string `mapstructure:"mountpoint"`
}

// AppConfig is the process-wide loaded configuration, mirroring the
// teacher's package-level AppConfig variable.
var AppConfig Config

// defaultBloomBits mirrors share.DefaultBloomBits without importing the
// root share package (which itself depends on this package's Config type).
const defaultBloomBits uint = 1 << 20

// Load reads configuration from configPath, or from the default search
// path/env vars when configPath is empty.
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath(filepath.Join("etc", paths.AppName))
		viper.AddConfigPath(paths.ConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("share.shareHidden", false)
	viper.SetDefault("share.removeForbidden", true)
	viper.SetDefault("share.generator", "sharecore 1.0")
	viper.SetDefault("share.registryDSN", paths.RegistryDSN)
	viper.SetDefault("share.bloomBits", defaultBloomBits)
	viper.SetDefault("share.maxFileSizeBytes", int64(0))

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &AppConfig, nil
}
