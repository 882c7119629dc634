// Command pokerserver runs the authoritative multiplayer Texas Hold'em
// service: HTTP/websocket listener, session registry, game engine, and
// broadcast router. Grounded on the teacher's cmd/holdem-server/main.go
// kong-flag-plus-HCL-config wiring and graceful shutdown handling.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"

	"github.com/tablestack/pokerserver/internal/server"
)

var cli struct {
	Config string `short:"c" long:"config" default:"pokerserver.hcl" help:"Path to HCL configuration file"`
	Addr   string `short:"a" long:"addr" help:"Server address to bind to (overrides config and env)"`
}

func main() {
	ctx := kong.Parse(&cli)

	cfg, err := server.LoadConfig(cli.Config)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	cfg.ApplyEnvOverrides()
	if cli.Addr != "" {
		cfg.ServerAddr = cli.Addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "error", err)
	}

	logger := log.New(os.Stderr)
	zlog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	srv := server.New(cfg, logger, zlog)

	runCtx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server exited with error", "error", err)
		ctx.Exit(1)
	}
}
