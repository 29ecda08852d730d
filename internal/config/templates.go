package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "playerd", "server":
		return serverTemplate, nil
	case "targets", "playerctl":
		return targetsTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `name = "playerd"
listen_addr = ":19132"
admin_addr = ":9400"
cors_origins = ["http://localhost:3000"]
admin_token = ""

flush_interval = "50ms"
max_payload_bytes = 2097152

max_view_distance = 16
protocol_version = 282
welcome = "Welcome to playernet"

[settings_form]
type = "custom_form"
title = "Server settings"
content = []

[observers]
log_packets = false
blocked_words = []
drop_kinds = []
`

const targetsTemplate = `default = "local"

[targets.local]
game_addr = "localhost:19132"
admin_addr = "http://localhost:9400"
username = "steve"
admin_token = ""
`
