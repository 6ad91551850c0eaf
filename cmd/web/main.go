package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/leed-ll97/internal/config"
	"github.com/leed-ll97/internal/logging"
	"github.com/leed-ll97/internal/web"
)

func main() {
	configFile := flag.String("config", "", "Config file (default leedlink.yaml in the working directory)")
	flag.Parse()

	settings, err := config.Load(*configFile)
	if err != nil {
		boot := logging.Default()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Configure(&logging.Config{Level: settings.LogLevel, Format: settings.LogFormat, Output: "stderr"})
	log := logging.WithComponent("web")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := web.FromSettings(settings)
	server, err := web.NewServer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("auth", cfg.Auth.APIKey != "").
		Float64("rate_limit", cfg.RateLimit.RequestsPerSecond).
		Msg("LEED-LL97 review server")

	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
