package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"courtmux/server/internal/app"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the server configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{ConfigPath: *configPath}); err != nil {
		log.Fatalf("%v", err)
	}
}
