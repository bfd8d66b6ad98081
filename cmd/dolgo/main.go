package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/dolgo/server/internal/config"
	coresys "github.com/dolgo/server/internal/core/system"
	"github.com/dolgo/server/internal/data"
	"github.com/dolgo/server/internal/dialog"
	"github.com/dolgo/server/internal/handler"
	gonet "github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
	"github.com/dolgo/server/internal/persist"
	"github.com/dolgo/server/internal/region"
	"github.com/dolgo/server/internal/scripting"
	"github.com/dolgo/server/internal/system"
	"github.com/dolgo/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const (
	housekeepingTick = time.Second
	autosaveTicks    = 300 // 5 minutes
	statsTicks       = 60
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               DOLGo  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m    Dark Age of Camelot 1.68 · Go server   \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mServer:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - utf8.RuneCountInString(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - utf8.RuneCountInString(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := flag.String("config", "config/server.toml", "path to server.toml")
	listOpcodes := flag.Bool("list-opcodes", false, "print the registered handlers and exit")
	flag.Parse()
	if p := os.Getenv("DOLGO_CONFIG"); p != "" {
		*cfgPath = p
	}
	cfg, err := config.Load(*cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Storage: PostgreSQL when configured, memory otherwise
	printSection("Database")
	var (
		accounts persist.AccountStore
		chars    persist.CharacterStore
		wal      persist.WALWriter
	)
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("Migrations applied")

		accounts = persist.NewAccountRepo(db)
		chars = persist.NewCharacterRepo(db)
		wal = persist.NewWALRepo(db)
	} else {
		log.Warn("no database dsn, accounts and characters are kept in memory")
		accounts = persist.NewMemoryAccounts()
		chars = persist.NewMemoryCharacters()
		wal = persist.NewMemoryWAL()
		printOK("In-memory stores")
	}
	fmt.Println()

	journal := persist.NewJournal(chars, wal,
		cfg.Database.JournalQueue, cfg.Database.JournalBatch, cfg.Database.FlushInterval, log)

	// 4. Static data and scripts
	printSection("Data")
	tables, err := data.LoadAll(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}
	printStat("Regions", tables.Regions.Count())
	printStat("Zone points", tables.ZonePoints.Count())
	printStat("Item templates", tables.Items.Count())
	printStat("Merchant lists", tables.Merchants.Count())

	luaEngine, err := scripting.NewEngine(cfg.Data.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer luaEngine.Close()
	printOK(fmt.Sprintf("Lua scripts loaded from %s", filepath.Clean(cfg.Data.ScriptsDir)))
	fmt.Println()

	// 5. World and regions
	printSection("World")
	regions := region.NewManager(cfg.Region.TickRate, log)
	for _, info := range tables.Regions.All() {
		if _, err := regions.Add(info.ID, info.Name); err != nil {
			return fmt.Errorf("regions: %w", err)
		}
	}
	printStat("Region queues", regions.Count())

	deps := &handler.Deps{
		Config:    cfg,
		Log:       log,
		World:     world.NewState(),
		Regions:   regions,
		Dialogs:   dialog.NewRegistry(cfg.Dialog.TTL, log),
		Tables:    tables,
		Scripting: luaEngine,
		Accounts:  persist.NewAuthenticator(accounts, cfg.Server.AutoCreateAccounts, log),
		Chars:     chars,
		Journal:   journal,
	}
	printStat("Doors", deps.SpawnDoors())
	fmt.Println()

	// 6. Packet handlers
	pktReg := packet.NewRegistry(packet.Version(cfg.Protocol.Version), log)
	pktReg.SetSlowThreshold(cfg.Protocol.SlowHandler)
	if err := handler.RegisterAll(pktReg, deps); err != nil {
		return fmt.Errorf("register handlers: %w", err)
	}
	if *listOpcodes {
		for _, h := range pktReg.Describe() {
			fmt.Printf("  %-28s %-24s %v\n", h.Opcode, h.Description, h.Statuses)
		}
		return nil
	}

	// 7. Network server
	opts := gonet.SessionOptions{
		OutQueueSize:  cfg.Network.OutQueueSize,
		ReadTimeout:   cfg.Network.ReadTimeout,
		WriteTimeout:  cfg.Network.WriteTimeout,
		DumpOnFailure: cfg.Protocol.DumpOnFailure,
	}
	if cfg.RateLimit.Enabled {
		opts.PacketsPerSecond = cfg.RateLimit.PacketsPerSecond
	}
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, pktReg, opts, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}

	// 8. Housekeeping systems
	runner := coresys.NewRunner()
	runner.Register(system.NewDialogExpirySystem(deps.Dialogs, log))
	runner.Register(system.NewPersistenceSystem(deps, journal, log, autosaveTicks))
	runner.Register(system.NewStatsSystem(deps, journal, log, statsTicks))

	// 9. Run until signalled. The journal outlives everything else so the
	// saves queued by disconnects during shutdown are written.
	journalCtx, stopJournal := context.WithCancel(context.Background())
	defer stopJournal()
	go journal.Run(journalCtx)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return netServer.Serve(gctx) })
	g.Go(func() error { return regions.Run(gctx) })
	g.Go(func() error { return runner.Run(gctx, housekeepingTick) })
	g.Go(func() error {
		select {
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	printSection("Ready")
	printReady(fmt.Sprintf("Listening on %s (client %d)", netServer.Addr().String(), cfg.Protocol.Version))
	printReady(fmt.Sprintf("Region tick %s, %d handlers", cfg.Region.TickRate, pktReg.Len()))
	fmt.Println()

	err = g.Wait()
	stopJournal()
	<-journal.Done()
	st := journal.Stats()
	log.Info("server stopped",
		zap.Uint64("saves", st.Saves),
		zap.Uint64("wal", st.WAL),
		zap.Uint64("journal_failed", st.Failed),
	)
	return err
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
