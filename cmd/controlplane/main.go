// Command controlplane runs the syncsocial control plane in one of four
// modes selected by SYNCSOCIAL_MODE: migrate, api, dispatcher, or seed.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/xxrenzhe/syncsocial/internal/app"
	"github.com/xxrenzhe/syncsocial/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("control plane exited: %v", err)
	}
}
