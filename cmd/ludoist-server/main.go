package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/undeconstructed/ludoist/config"
	"github.com/undeconstructed/ludoist/server"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rand.Seed(time.Now().UnixNano())

	cfg := config.Load()
	srv := server.NewServer(cfg)

	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt)

	err := srv.Run(ctx)
	log.Info().Err(err).Msg("server return")
	if err != nil && err != context.Canceled {
		os.Exit(1)
	}
}
