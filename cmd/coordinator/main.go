// Package main provides the session coordinator binary: a WebSocket
// server that pairs two players and any number of spectators into rooms
// and relays their game traffic.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/romgon-game/coordinator/internal/config"
	"github.com/romgon-game/coordinator/internal/game/coordinator"
	"github.com/romgon-game/coordinator/internal/game/room"
	"github.com/romgon-game/coordinator/internal/observability"
	"github.com/romgon-game/coordinator/internal/protocol"
	"github.com/romgon-game/coordinator/internal/server"
	"github.com/romgon-game/coordinator/internal/transport/ws"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	flag.Parse()

	ctx := context.Background()

	var cfg config.Config
	if *configPath == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting session coordinator",
		zap.String("addr", cfg.Server.Addr()),
		zap.Duration("grace_window", cfg.Room.GraceWindow),
		zap.Duration("idle_threshold", cfg.Room.IdleThreshold),
	)

	codes := room.NewCodeGenerator(cfg.Room.CodeLength)
	registry := room.NewRegistry(codes, cfg.Room.CreateRetries)

	// The transport and the coordinator reference each other: events
	// flow transport -> coordinator, broadcasts flow back. The sender
	// indirection breaks the construction cycle.
	var wsSrv *ws.Server
	sender := coordinator.SenderFunc(func(connID string, env protocol.Envelope) {
		wsSrv.Send(connID, env)
	})
	coord := coordinator.New(cfg.Room, registry, sender, logger)
	defer coord.Close()

	wsSrv = ws.NewServer(cfg.Server, cfg.WebSocket, coord, logger)
	sweeper := coordinator.NewSweeper(coord, cfg.Room.SweepInterval, logger)

	lc := server.NewLifecycle(logger)
	lc.Add("sweeper", sweeper)
	lc.Add("websocket", wsSrv)

	logger.Info("coordinator ready",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lc.Run(ctx); err != nil {
		logger.Fatal("lifecycle error", zap.Error(err))
	}
}
