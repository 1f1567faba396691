// Package config loads config.toml into a validated AppConfig, mirroring
// the teacher's two-stage viper populate-then-validate flow.
package config

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP/WS bind address and optional bearer password.
type ServerConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Password string `mapstructure:"password"`
}

// ClusterConfig controls the size of the worker pool backing per-player
// voice-WS and pacer goroutines.
type ClusterConfig struct {
	Workers int `mapstructure:"workers"`
}

// AppConfig is the root of config.toml.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Cluster ClusterConfig `mapstructure:"cluster"`
}

// Workers resolves the configured worker count, falling back to
// runtime.GOMAXPROCS(0) when unset or zero, as spec §6 requires.
func (c *AppConfig) Workers() int {
	if c.Cluster.Workers > 0 {
		return c.Cluster.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Load reads config.toml from the given path (or the working directory when
// path is empty) and validates it.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 2333)
	v.SetDefault("cluster.workers", 0)
}
