// Command aelira boots the voice gateway: loads config.toml, wires the
// session/source/stats/route-planner registries, and serves the REST
// and control-WebSocket surfaces until a termination signal arrives.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/ecliptia/aelira/internal/config"
	"github.com/ecliptia/aelira/internal/controlws"
	"github.com/ecliptia/aelira/internal/logging"
	"github.com/ecliptia/aelira/internal/player"
	"github.com/ecliptia/aelira/internal/rest"
	"github.com/ecliptia/aelira/internal/routeplanner"
	"github.com/ecliptia/aelira/internal/session"
	"github.com/ecliptia/aelira/internal/source"
	"github.com/ecliptia/aelira/internal/source/local"
	"github.com/ecliptia/aelira/internal/stats"
)

// version is the gateway's own semver, reported on /version and /v4/info.
const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(false, "info")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	workers := cfg.Workers()
	runtime.GOMAXPROCS(workers)
	logger.Infow("starting aelira", "version", version, "workers", workers)

	sources := source.NewManager()
	sources.Register(local.New())

	var streams player.StreamLoader = sources
	sessions := session.NewManager(streams, logger)
	sampler := stats.New()
	planner := routeplanner.NewManager()

	engine := rest.NewEngine(&rest.Deps{
		Sessions:     sessions,
		Sources:      sources,
		Stats:        sampler,
		RoutePlanner: planner,
		Logger:       logger,
		Version:      version,
		Password:     cfg.Server.Password,
	})

	wsHandlers := &controlws.Handlers{
		Sessions: sessions,
		Password: cfg.Server.Password,
		Logger:   logger,
	}
	engine.GET("/v4/websocket", wsHandlers.Serve)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go controlws.RunBroadcastLoop(ctx, sessions, sampler)

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("graceful shutdown failed", "error", err)
		}
	}()

	logger.Infow("listening", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorw("server exited with error", "error", err)
		os.Exit(1)
	}
}
