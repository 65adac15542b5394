package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/fullyloaded/fullyloaded/pkg/fullyloaded"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fullyloaded.Main(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatal().Err(err).Msg("fullyloaded exited")
	}
}
