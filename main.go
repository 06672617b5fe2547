package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/wfunc/walkandtalk/broadcast"
	"github.com/wfunc/walkandtalk/config"
	"github.com/wfunc/walkandtalk/grpcapi"
	"github.com/wfunc/walkandtalk/logger"
	"github.com/wfunc/walkandtalk/monitor"
	"github.com/wfunc/walkandtalk/network"
	"github.com/wfunc/walkandtalk/persistence"
	"github.com/wfunc/walkandtalk/room"
	"github.com/wfunc/walkandtalk/rpc"
	"github.com/wfunc/walkandtalk/server"
	"github.com/wfunc/walkandtalk/services"
	"github.com/wfunc/walkandtalk/state"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		logger.Log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Session journal
	inner, err := openJournal(cfg.Journal)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	journal := persistence.NewAsyncJournal(inner, cfg.Journal.Buffer)
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Log.Errorf("Failed to close journal: %v", err)
		}
	}()

	mon := monitor.NewMonitor("walkandtalk")
	names := network.Names{Prefix: cfg.Game.TopicPrefix}
	game := state.NewGameState()
	hub := broadcast.NewHub()
	svc := services.NewGameService(services.NewGameServiceOptions{
		Game:    game,
		Journal: journal,
		Monitor: mon,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameRoom := room.NewRoom(room.NewRoomOptions{
		Game:         game,
		Broadcaster:  hub,
		Names:        names,
		Monitor:      mon,
		TickInterval: cfg.Game.TickInterval,
		Timeout:      cfg.Game.PlayerTimeout,
		OnExpired: func(ids []int) {
			svc.RecordTimeouts(context.WithoutCancel(ctx), ids)
		},
	})

	wsServer := server.NewGameServer(server.NewGameServerOptions{
		Address:     cfg.Server.HTTPAddress,
		Hub:         hub,
		Service:     svc,
		Names:       names,
		SendBuffer:  cfg.Game.SendBuffer,
		ReadTimeout: cfg.Game.PlayerTimeout,
	})

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, svc)
	if err != nil {
		logger.Log.Fatalf("Failed to start RPC server: %v", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gameRoom.Run(ctx)
		return nil
	})
	g.Go(func() error { return wsServer.Serve(ctx) })
	g.Go(func() error { return rpcServer.Serve(ctx) })
	if cfg.Server.GRPCAddress != "" {
		grpcService := grpcapi.NewService(grpcapi.NewServiceOptions{
			Service: svc,
			Hub:     hub,
			Names:   names,
			Buffer:  cfg.Game.SendBuffer,
		})
		g.Go(func() error { return grpcService.Serve(ctx, cfg.Server.GRPCAddress) })
	}
	if cfg.Server.MetricsAddress != "" {
		g.Go(func() error { return mon.Serve(ctx, cfg.Server.MetricsAddress) })
	}

	logger.Log.Infof("Walk and talk server started, topic prefix %q", cfg.Game.TopicPrefix)
	if err := g.Wait(); err != nil {
		logger.Log.Errorf("Server stopped: %v", err)
	}
	logger.Log.Info("Server shut down.")
}

func openJournal(cfg config.JournalConfig) (persistence.Journal, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "gorm":
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sql":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return persistence.Nop{}, nil
	}
}
