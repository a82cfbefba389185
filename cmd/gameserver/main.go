// Package main provides the game server binary that listens for binary
// protocol clients and runs the lobby, creator, and dungeon areas.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/auth"
	"github.com/delvegame/delve/internal/config"
	"github.com/delvegame/delve/internal/game/area"
	"github.com/delvegame/delve/internal/game/dice"
	"github.com/delvegame/delve/internal/game/membership"
	"github.com/delvegame/delve/internal/game/registry"
	"github.com/delvegame/delve/internal/game/session"
	"github.com/delvegame/delve/internal/game/task"
	"github.com/delvegame/delve/internal/net"
	"github.com/delvegame/delve/internal/observability"
	"github.com/delvegame/delve/internal/scripting"
	"github.com/delvegame/delve/internal/server"
	"github.com/delvegame/delve/internal/storage/postgres"
)

// runtimeIDBase keeps ids handed to freshly created characters clear of
// the row ids assigned by the database on load.
const runtimeIDBase = 1 << 20

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dungeonsDir := flag.String("dungeons", "", "path to dungeon YAML files directory; empty = use config")
	scriptsDir := flag.String("scripts", "", "path to Lua behavior scripts directory; empty = use config")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *dungeonsDir != "" {
		cfg.Game.DungeonsDir = *dungeonsDir
	}
	if *scriptsDir != "" {
		cfg.Game.ScriptsDir = *scriptsDir
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	src := dice.NewCryptoSource()

	logger.Info("starting game server",
		zap.String("addr", cfg.Server.Addr()),
	)

	// Connect to PostgreSQL for account and character persistence.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	accountRepo := postgres.NewAccountRepository(pool.DB())
	charRepo := postgres.NewCharacterRepository(pool.DB())

	sched := task.NewScheduler(logger, cfg.Server.OutQueueSize)
	agg := membership.NewAggregator(logger, sched, cfg.Game.MembershipTick)
	arena := registry.NewArena()

	// Initialise the behavior scripting engine. A missing directory
	// disables scripted behavior rather than failing startup.
	scriptMgr := scripting.NewManager(src, logger)
	if cfg.Game.ScriptsDir != "" {
		if info, statErr := os.Stat(cfg.Game.ScriptsDir); statErr == nil && info.IsDir() {
			scriptStart := time.Now()
			if err := scriptMgr.LoadDir(cfg.Game.ScriptsDir, scripting.DefaultInstructionLimit); err != nil {
				logger.Fatal("loading behavior scripts",
					zap.String("dir", cfg.Game.ScriptsDir), zap.Error(err))
			}
			logger.Info("behavior scripts loaded",
				zap.String("dir", cfg.Game.ScriptsDir),
				zap.Duration("elapsed", time.Since(scriptStart)))
		} else {
			logger.Warn("scripts directory not found, behavior scripting disabled",
				zap.String("dir", cfg.Game.ScriptsDir))
		}
	}

	deps := area.Deps{
		Logger:    logger,
		Arena:     arena,
		Agg:       agg,
		Sched:     sched,
		Src:       src,
		DamageDie: cfg.Game.DamageDie,
		Store:     charRepo,
	}

	lobby := area.FindOrCreateLobby(deps)
	lobbyFn := func() session.Area { return lobby }

	var idCounter atomic.Int32
	idCounter.Store(runtimeIDBase)
	nextID := func() int32 { return idCounter.Add(1) }

	creator := area.FindOrCreateCreator(deps, nextID, lobbyFn)
	creatorFn := func() session.Area { return creator }

	dungeonStart := time.Now()
	dungeons, err := area.LoadDungeons(cfg.Game.DungeonsDir, deps, cfg.Game.AITick, scriptMgr.BehaviorFor, nextID)
	if err != nil {
		logger.Fatal("loading dungeons",
			zap.String("dir", cfg.Game.DungeonsDir), zap.Error(err))
	}
	logger.Info("dungeons loaded",
		zap.Int("count", len(dungeons)),
		zap.Duration("elapsed", time.Since(dungeonStart)),
	)

	sessions := session.NewRegistry(arena, logger, sched, src, cfg.Game.DamageDie, lobbyFn)
	gate := auth.NewGate(logger, accountRepo, charRepo, sessions, lobbyFn, creatorFn)
	tcpServer := net.NewServer(cfg.Server, logger, gate.HandleConn)

	// Wire lifecycle. The aggregator starts before the listener so the
	// earliest joins are collected, and stops after it so disconnect
	// deltas from closing connections still flush.
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("scheduler", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn:  sched.Stop,
	})

	lifecycle.Add("membership", &server.FuncService{
		StartFn: func() error {
			agg.Start()
			return nil
		},
		StopFn: agg.Stop,
	})

	lifecycle.Add("scripting", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn:  scriptMgr.Close,
	})

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: pool.Close,
	})

	lifecycle.Add("tcp", tcpServer)

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("addr", cfg.Server.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
