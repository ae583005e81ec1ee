package engine

import (
	"sync"
	"time"

	"scalp-core/internal/events"
	"scalp-core/internal/gates"
	"scalp-core/internal/indicators"
	"scalp-core/internal/ledger"
	"scalp-core/internal/market"
	"scalp-core/internal/monitor"
	"scalp-core/internal/options"
	"scalp-core/internal/refdata"
	"scalp-core/internal/sizer"
	"scalp-core/pkg/cache"
)

// Core wires the per-bar pipeline: indicators, technical exits, position
// management, gate evaluation, and execution. It owns no goroutines; the
// transport calls it synchronously. Calls for different symbols may run
// concurrently; calls for one symbol are serialized with striped locks.
type Core struct {
	Tracker  *indicators.Tracker
	Gates    *gates.Engine
	Resolver *options.Resolver
	Ledger   *ledger.Ledger
	Sizer    *sizer.Sizer
	Bus      *events.Bus
	Metrics  *monitor.SystemMetrics
	ExitCfg  ledger.ExitConfig

	// Weights is optional; when set, constituent bars feed the weighted
	// index-delta aggregate surfaced alongside breadth.
	Weights *refdata.IndexWeights

	locks *cache.KeyedMutex

	breadthMu sync.RWMutex
	breadth   market.BreadthSnapshot
}

func NewCore(tracker *indicators.Tracker, gateEngine *gates.Engine, resolver *options.Resolver,
	led *ledger.Ledger, siz *sizer.Sizer, bus *events.Bus, metrics *monitor.SystemMetrics,
	exitCfg ledger.ExitConfig) *Core {
	return &Core{
		Tracker:  tracker,
		Gates:    gateEngine,
		Resolver: resolver,
		Ledger:   led,
		Sizer:    siz,
		Bus:      bus,
		Metrics:  metrics,
		ExitCfg:  exitCfg,
		locks:    &cache.KeyedMutex{},
	}
}

// OnBar runs the full pipeline for one bar. Steps run in a fixed order: the
// underlying's technical-exit status is written before any position exit
// check, so a pending close is always visible to the traded instrument's
// next bar.
func (c *Core) OnBar(bar market.Bar) {
	c.locks.Lock(bar.Symbol)
	defer c.locks.Unlock(bar.Symbol)

	start := time.Now()

	ind := c.Tracker.Update(bar)
	c.Ledger.UpdateLtp(bar.Symbol, bar.Close)
	if c.Weights != nil && bar.Open > 0 {
		c.Weights.SetDelta(bar.Symbol, (bar.Close-bar.Open)/bar.Open)
	}
	if options.IsIndex(bar.Symbol) {
		c.Resolver.UpdateSpot(bar.Symbol, bar.Close)
	}

	c.Gates.CheckTechnicalExits(bar)

	pending := c.Gates.PendingReason(bar.Symbol)
	if ev := c.Ledger.EvaluateBar(bar, ind, c.ExitCfg, pending); ev != nil {
		if ev.Final {
			c.Gates.OnPositionClosed(bar.Symbol, bar.StartTime)
			c.Metrics.IncrementPositionsClosed()
			c.Bus.Publish(events.EventPositionClosed, ev.Position)
		} else {
			c.Bus.Publish(events.EventPartialExit, ev.Position)
		}
	}

	gateStart := time.Now()
	sigs := c.Gates.Evaluate(bar, ind)
	c.Metrics.GateLatency.RecordDuration(time.Since(gateStart))

	for _, sig := range sigs {
		c.Metrics.IncrementSignals()
		c.Bus.Publish(events.EventSignalEmitted, sig)

		instrument, ok := c.Sizer.Execute(sig)
		if !ok {
			c.Bus.Publish(events.EventSignalDropped, sig)
			continue
		}
		c.Gates.BindExecution(sig, instrument, bar.StartTime)
		c.Metrics.IncrementPositionsOpened()
		if p, found := c.Ledger.Get(instrument); found {
			c.Bus.Publish(events.EventPositionOpened, p)
		}
	}

	c.Metrics.IncrementBars()
	c.Metrics.BarLatency.RecordDuration(time.Since(start))
}

// OnOptionTick feeds a raw option quote into the resolver and the LTP cache.
func (c *Core) OnOptionTick(tick market.OptionTick) {
	c.Resolver.UpdateTick(tick)
	c.Ledger.UpdateLtp(tick.Symbol, tick.Price)
}

// OnChainSnapshot stores an externally supplied option-chain batch.
func (c *Core) OnChainSnapshot(indexSymbol string, entries []market.OptionChainEntry) {
	c.Resolver.InjectChain(indexSymbol, entries)
	c.Bus.Publish(events.EventChainSnapshot, indexSymbol)
}

// OnAuctionState records the external auction classification for a symbol.
// Serialized against OnBar for the same symbol so the classification never
// changes mid-pipeline.
func (c *Core) OnAuctionState(symbol string, state market.AuctionState) {
	c.locks.Lock(symbol)
	c.Gates.SetAuctionState(symbol, state)
	c.locks.Unlock(symbol)
	c.Bus.Publish(events.EventAuctionState, state)
}

// OnBreadth stores the market-wide advance/decline snapshot.
func (c *Core) OnBreadth(snap market.BreadthSnapshot) {
	c.breadthMu.Lock()
	c.breadth = snap
	c.breadthMu.Unlock()
	c.Bus.Publish(events.EventBreadth, snap)
}

// Breadth returns the latest advance/decline snapshot.
func (c *Core) Breadth() market.BreadthSnapshot {
	c.breadthMu.RLock()
	defer c.breadthMu.RUnlock()
	return c.breadth
}

// WeightedDelta returns the weight-aggregated intraday move of the tracked
// index constituents, or 0 when no weight table is loaded.
func (c *Core) WeightedDelta() float64 {
	if c.Weights == nil {
		return 0
	}
	return c.Weights.WeightedDelta()
}

// BeginSession rolls the session boundary for a symbol: indicator prior-day
// stats and intraday gate state.
func (c *Core) BeginSession(symbol string) {
	c.locks.Lock(symbol)
	defer c.locks.Unlock(symbol)
	c.Tracker.BeginSession(symbol)
	c.Gates.BeginSession(symbol)
}
