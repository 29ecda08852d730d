package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/playernet/internal/logging"
	"github.com/danmuck/playernet/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "server config path")
	pflag.StringVar(&opts.listen, "listen", "", "override listen_addr")
	pflag.StringVar(&opts.admin, "admin", "", "override admin_addr")
	pflag.BoolVar(&opts.logPackets, "log-packets", false, "log every message passing the session pipeline")
	pflag.Parse()

	logging.ConfigureRuntime()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "playerd: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "playerd: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("name", cfg.Name).
		Str("listen", cfg.ListenAddr).
		Str("admin", cfg.AdminAddr).
		Msg("playerd starting")
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "playerd: %v\n", err)
		os.Exit(1)
	}
}
