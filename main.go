package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scalp-core/internal/api"
	"scalp-core/internal/engine"
	"scalp-core/internal/events"
	"scalp-core/internal/gates"
	"scalp-core/internal/indicators"
	"scalp-core/internal/ledger"
	"scalp-core/internal/market"
	"scalp-core/internal/monitor"
	"scalp-core/internal/options"
	"scalp-core/internal/persistence"
	"scalp-core/internal/refdata"
	"scalp-core/internal/sizer"
	"scalp-core/pkg/cache"
	"scalp-core/pkg/config"
	"scalp-core/pkg/db"
)

const buildVersion = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := database.Init(); err != nil {
		log.Fatalf("init database: %v", err)
	}

	gateCfg, err := gates.LoadConfig(cfg.GateConfigPath)
	if err != nil {
		log.Fatalf("load gate config: %v", err)
	}

	bus := events.NewBus()
	metrics := monitor.NewSystemMetrics()
	ltp := cache.NewShardedPriceCache()

	journal := persistence.NewJournal(database, metrics, 50, 500*time.Millisecond)
	defer journal.Close()

	led := ledger.New(ltp, journal)
	restorePositions(database, led)

	tracker := indicators.NewTracker()
	resolver := options.NewResolver(ltp)
	gateEngine := gates.NewEngine(gateCfg)
	lots := refdata.NewLotSizes(cfg.LotSizePath, cfg.DefaultLotSize)

	siz := &sizer.Sizer{
		Risk:     cfg.RiskPerTrade,
		MaxQty:   cfg.MaxQuantity,
		Lots:     lots,
		Resolver: resolver,
		Ledger:   led,
	}

	exitCfg := ledger.ExitConfig{
		PartialTPFraction:   cfg.PartialTPFraction,
		TrailingEnabled:     cfg.TrailingEnabled,
		TrailTriggerATR:     cfg.TrailTriggerATR,
		TrailRefEMA9:        cfg.TrailRefEMA9,
		TPExtendATR:         cfg.TPExtendATR,
		BreakEvenBufferFrac: cfg.BreakEvenBufferFrac,
	}

	core := engine.NewCore(tracker, gateEngine, resolver, led, siz, bus, metrics, exitCfg)

	if len(cfg.IndexSymbols) > 0 {
		weights, err := refdata.LoadIndexWeights(cfg.WeightsPath, cfg.IndexSymbols[0])
		if err != nil {
			log.Printf("Index weights unavailable (%v), weighted breadth disabled", err)
		} else {
			core.Weights = weights
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := market.NewFeed(cfg.FeedURL, core)
	go feed.Start(ctx)

	server := api.NewServer(core, led, gateEngine, resolver, metrics, bus, api.SystemMeta{
		Symbols: cfg.IndexSymbols,
		FeedURL: cfg.FeedURL,
		Version: buildVersion,
	})
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	log.Printf("scalp core %s up: feed=%s api=:%s symbols=%v",
		buildVersion, cfg.FeedURL, cfg.Port, cfg.IndexSymbols)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}

// restorePositions loads still-open rows and today's closed rows so a
// restart resumes the session intact.
func restorePositions(database *db.Database, led *ledger.Ledger) {
	now := time.Now().In(market.IST)
	sessionStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, market.IST)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, err := database.LoadPositions(ctx, sessionStart)
	if err != nil {
		log.Printf("load positions: %v (starting empty)", err)
		return
	}
	persistence.RestoreInto(led, records)
}
