package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/playernet/internal/config"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "cmd/playerd/config.toml"

type options struct {
	configPath string
	listen     string
	admin      string
	logPackets bool
}

// loadConfig reads the config file and applies flag overrides. A missing
// file at the default path falls back to built-in defaults.
func loadConfig(opts options) (config.ServerConfig, error) {
	path := strings.TrimSpace(opts.configPath)
	if path == "" {
		path = defaultConfigPath
	}

	var cfg config.ServerConfig
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		log.Warn().Str("path", path).Msg("config not found, using defaults")
		cfg = config.Default()
	} else {
		loaded, err := config.LoadServerConfig(path)
		if err != nil {
			return config.ServerConfig{}, err
		}
		cfg = loaded
	}

	if v := strings.TrimSpace(opts.listen); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(opts.admin); v != "" {
		cfg.AdminAddr = v
	}
	if opts.logPackets {
		cfg.Observers.LogPackets = true
	}
	if err := config.ValidateServerConfig(cfg); err != nil {
		return config.ServerConfig{}, fmt.Errorf("invalid config after overrides: %w", err)
	}
	return cfg, nil
}
