package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const defaultTargetsPath = "cmd/playerctl/targets.toml"

// targetsFile names the playerd instances playerctl can reach.
type targetsFile struct {
	Default string                 `toml:"default"`
	Targets map[string]targetEntry `toml:"targets"`
}

type targetEntry struct {
	GameAddr   string `toml:"game_addr"`
	AdminAddr  string `toml:"admin_addr"`
	Username   string `toml:"username"`
	AdminToken string `toml:"admin_token"`
}

// target is one resolved entry with flag overrides applied.
type target struct {
	Name       string
	GameAddr   string
	AdminAddr  string
	Username   string
	AdminToken string
}

func builtinTargets() targetsFile {
	return targetsFile{
		Default: "local",
		Targets: map[string]targetEntry{
			"local": {
				GameAddr:  "localhost:19132",
				AdminAddr: "http://localhost:9400",
				Username:  "steve",
			},
		},
	}
}

// loadTargets reads path. A missing file at the default path yields the
// built-in local target.
func loadTargets(path string) (targetsFile, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultTargetsPath {
		return builtinTargets(), nil
	}

	var raw targetsFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return targetsFile{}, fmt.Errorf("load targets: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return targetsFile{}, fmt.Errorf("load targets: unknown keys: %s", strings.Join(keys, ", "))
	}
	if !meta.IsDefined("targets") || len(raw.Targets) == 0 {
		return targetsFile{}, fmt.Errorf("load targets: no targets defined in %s", path)
	}
	if !meta.IsDefined("default") {
		names := raw.names()
		raw.Default = names[0]
	}
	return raw, nil
}

func (f targetsFile) names() []string {
	out := make([]string, 0, len(f.Targets))
	for name := range f.Targets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (f targetsFile) resolve(name string) (target, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = f.Default
	}
	entry, ok := f.Targets[name]
	if !ok {
		return target{}, fmt.Errorf("unknown target %q (have %s)", name, strings.Join(f.names(), ", "))
	}
	t := target{
		Name:       name,
		GameAddr:   strings.TrimSpace(entry.GameAddr),
		AdminAddr:  strings.TrimRight(strings.TrimSpace(entry.AdminAddr), "/"),
		Username:   strings.TrimSpace(entry.Username),
		AdminToken: strings.TrimSpace(entry.AdminToken),
	}
	if t.AdminAddr != "" && !strings.Contains(t.AdminAddr, "://") {
		t.AdminAddr = "http://" + t.AdminAddr
	}
	return t, nil
}
