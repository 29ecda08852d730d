package config

import (
	"strings"
	"time"

	"github.com/danmuck/playernet/internal/player"
	"github.com/danmuck/playernet/internal/protocol"
)

// PlayerConfig maps server settings onto the per-player config.
func (c ServerConfig) PlayerConfig() player.Config {
	cfg := player.Config{
		MaxViewDistance: c.MaxViewDistance,
		ProtocolVersion: c.ProtocolVersion,
		Welcome:         c.Welcome,
	}
	if len(c.SettingsForm) > 0 {
		cfg.SettingsForm = c.SettingsForm
	}
	return cfg
}

// Flush returns the parsed flush interval. Validated configs never fail.
func (c ServerConfig) Flush() time.Duration {
	d, err := time.ParseDuration(c.FlushInterval)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultFlushInterval)
	}
	return d
}

// KindByName resolves "TextPacket" or "Text", ignoring case.
func KindByName(name string) (protocol.MessageKind, bool) {
	name = strings.TrimSpace(name)
	for _, k := range protocol.Kinds() {
		full := k.String()
		if strings.EqualFold(full, name) || strings.EqualFold(strings.TrimSuffix(full, "Packet"), name) {
			return k, true
		}
	}
	return 0, false
}

// DropKinds resolves the configured drop list, skipping unknown names.
func (c ServerConfig) DropKinds() []protocol.MessageKind {
	out := make([]protocol.MessageKind, 0, len(c.Observers.DropKinds))
	for _, name := range c.Observers.DropKinds {
		if k, ok := KindByName(name); ok {
			out = append(out, k)
		}
	}
	return out
}
