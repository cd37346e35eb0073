// Package app wires configuration, persistence, logging and the network
// endpoint into one runnable server process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	server "courtmux/server"
	"courtmux/server/commands"
	"courtmux/server/internal/config"
	"courtmux/server/internal/net/ws"
	"courtmux/server/internal/store"
	"courtmux/server/logging"
	"courtmux/server/logging/lifecycle"
	loggingSinks "courtmux/server/logging/sinks"
)

// Config carries the process-level knobs cmd/server passes in.
type Config struct {
	ConfigPath string
	Logger     *log.Logger
}

// Run boots the server and blocks until ctx is cancelled or the listener
// fails.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	file, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}

	logCfg := file.LoggingConfig()
	sinks := []logging.NamedSink{}
	if logCfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsoleSink(os.Stdout, logCfg.Console),
		})
	}
	if logCfg.HasSink("json") && logCfg.JSON.FilePath != "" {
		f, oerr := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if oerr != nil {
			return fmt.Errorf("open json log %s: %w", logCfg.JSON.FilePath, oerr)
		}
		defer f.Close()
		sinks = append(sinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(f, logCfg.JSON.FlushInterval),
		})
	}
	router, err := logging.NewRouter(nil, logCfg, sinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("logging router close: %v", cerr)
		}
	}()

	roster, err := file.LoadRoster()
	if err != nil {
		return err
	}
	music, err := file.LoadMusic()
	if err != nil {
		return err
	}
	topo, err := file.LoadTopology()
	if err != nil {
		return err
	}

	db, err := store.Open(file.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	world := server.NewWorld(file.ServerConfig(), roster, music)
	world.SetRoomLogger(db)
	world.SetCharacterStore(db)
	world.SetFriendStore(db)
	world.SetPublisher(router)
	if err := world.ApplyTopology(topo); err != nil {
		return err
	}
	lifecycle.TopologyApplied(ctx, router, len(world.Hubs()))

	dispatcher := commands.New(world, router, logger, file.MusicDir)
	handler := ws.NewHandler(world, dispatcher, logger, router)

	mux := http.NewServeMux()
	mux.Handle("/", handler)

	srv := &http.Server{Addr: file.ListenAddr, Handler: mux}
	logger.Printf("server listening on %s", srv.Addr)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Printf("server shutdown: %v", serr)
		}
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}
