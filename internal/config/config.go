package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultName            = "playerd"
	DefaultListenAddr      = ":19132"
	DefaultAdminAddr       = ":9400"
	DefaultFlushInterval   = "50ms"
	DefaultMaxPayloadBytes = 2 * 1024 * 1024
	DefaultMaxViewDistance = 16
)

type ServerConfig struct {
	Name        string   `toml:"name"`
	ListenAddr  string   `toml:"listen_addr"`
	AdminAddr   string   `toml:"admin_addr"`
	CorsOrigins []string `toml:"cors_origins"`
	// AdminToken guards mutating admin routes when set.
	AdminToken string `toml:"admin_token"`

	FlushInterval   string `toml:"flush_interval"`
	MaxPayloadBytes uint32 `toml:"max_payload_bytes"`

	MaxViewDistance int    `toml:"max_view_distance"`
	ProtocolVersion uint32 `toml:"protocol_version"`
	Welcome         string `toml:"welcome"`

	SettingsForm map[string]any `toml:"settings_form"`
	Observers    ObserverConfig `toml:"observers"`
}

// ObserverConfig enables the built-in interception observers.
type ObserverConfig struct {
	// LogPackets attaches a passive observer logging every message.
	LogPackets bool `toml:"log_packets"`
	// BlockedWords cancels inbound chat containing any of these words.
	BlockedWords []string `toml:"blocked_words"`
	// DropKinds cancels messages of these kinds in both directions.
	DropKinds []string `toml:"drop_kinds"`
}

func LoadServerConfig(path string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	cfg.ApplyDefaults()
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// Default returns a config with every default applied.
func Default() ServerConfig {
	var cfg ServerConfig
	cfg.ApplyDefaults()
	return cfg
}

func (c *ServerConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.AdminAddr == "" {
		c.AdminAddr = DefaultAdminAddr
	}
	if c.FlushInterval == "" {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.MaxPayloadBytes == 0 {
		c.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if c.MaxViewDistance == 0 {
		c.MaxViewDistance = DefaultMaxViewDistance
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("server config missing name")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("server config missing listen_addr")
	}
	if strings.TrimSpace(cfg.AdminAddr) == "" {
		return fmt.Errorf("server config missing admin_addr")
	}
	if cfg.ListenAddr == cfg.AdminAddr {
		return fmt.Errorf("listen_addr and admin_addr must differ")
	}
	d, err := time.ParseDuration(cfg.FlushInterval)
	if err != nil {
		return fmt.Errorf("flush_interval invalid: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("flush_interval must be positive")
	}
	if cfg.MaxViewDistance < 1 {
		return fmt.Errorf("max_view_distance must be at least 1")
	}
	for i, kind := range cfg.Observers.DropKinds {
		if _, ok := KindByName(kind); !ok {
			return fmt.Errorf("observers.drop_kinds[%d] unknown kind: %s", i, kind)
		}
	}
	return nil
}
