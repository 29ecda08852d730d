package main

import (
	"fmt"
	"os"

	"github.com/danmuck/playernet/internal/config"
	"github.com/danmuck/playernet/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	kind := pflag.StringP("kind", "k", "playerd", "config kind: playerd|targets")
	output := pflag.StringP("output", "o", "", "output path for config template")
	validate := pflag.Bool("validate", false, "validate an existing playerd config file")
	input := pflag.StringP("input", "i", "", "config path for validation (defaults to the per-kind cmd path)")
	force := pflag.BoolP("force", "f", false, "overwrite existing config file")
	pflag.Parse()

	logging.ConfigureRuntime()

	if err := run(*kind, *output, *input, *validate, *force); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func run(kind, output, input string, validate, force bool) error {
	if validate {
		path := input
		if path == "" {
			p, err := defaultPath(kind)
			if err != nil {
				return err
			}
			path = p
		}
		if kind != "playerd" && kind != "server" {
			return fmt.Errorf("validation supports playerd configs only, got %s", kind)
		}
		if _, err := config.LoadServerConfig(path); err != nil {
			return err
		}
		log.Info().Str("kind", kind).Str("path", path).Msg("config validated")
		return nil
	}

	target := output
	if target == "" {
		p, err := defaultPath(kind)
		if err != nil {
			return err
		}
		target = p
	}
	if err := config.WriteTemplate(target, kind, force); err != nil {
		return err
	}
	log.Info().Str("kind", kind).Str("path", target).Msg("config template written")
	return nil
}

func defaultPath(kind string) (string, error) {
	switch kind {
	case "playerd", "server":
		return "cmd/playerd/config.toml", nil
	case "targets", "playerctl":
		return "cmd/playerctl/targets.toml", nil
	default:
		return "", fmt.Errorf("unknown kind: %s", kind)
	}
}
