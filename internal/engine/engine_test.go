package engine

import (
	"math"
	"sync"
	"testing"
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

const nifty = "NSE_INDEX|Nifty 50"

func ts(h, m int) int64 {
	return time.Date(2024, 1, 15, h, m, 0, 0, market.IST).UnixMilli()
}

func newTestCore() (*Core, *ledger.Ledger) {
	ltp := cache.NewShardedPriceCache()
	led := ledger.New(ltp, nil)
	resolver := options.NewResolver(ltp)
	gateEngine := gates.NewEngine(gates.DefaultConfig())
	siz := &sizer.Sizer{
		Risk:     1000,
		MaxQty:   1800,
		Lots:     refdata.NewLotSizes("", 25),
		Resolver: resolver,
		Ledger:   led,
	}
	core := NewCore(indicators.NewTracker(), gateEngine, resolver, led, siz,
		events.NewBus(), monitor.NewSystemMetrics(), ledger.DefaultExitConfig())
	return core, led
}

func TestOnBarUpdatesSpotAndLtp(t *testing.T) {
	core, led := newTestCore()

	core.OnBar(market.Bar{
		Symbol: nifty, StartTime: ts(9, 20),
		Open: 22100, High: 22160, Low: 22090, Close: 22150,
		Volume: 100, VWAP: 22120, PCR: 1.0,
	})

	if spot, ok := core.Resolver.Spot(nifty); !ok || spot != 22150 {
		t.Fatalf("spot = %.2f ok=%v, want 22150", spot, ok)
	}
	if got := led.Ltp(nifty); got != 22150 {
		t.Fatalf("ltp = %.2f, want 22150", got)
	}
	if snap := core.Metrics.GetSnapshot(); snap.BarsProcessed != 1 {
		t.Fatalf("bars processed = %d, want 1", snap.BarsProcessed)
	}
}

// A technical exit detected on the underlying must close the traded option
// position on that instrument's next bar.
func TestUnderlyingStopCloseFlowsToTradedInstrument(t *testing.T) {
	core, led := newTestCore()
	inst := "NSE_FO|NIFTY24JAN22150CE"

	sig := gates.NewSignal(nifty, gates.GateOrbL, ts(10, 0), 22150, 22100, 22250, 7)
	core.Gates.BindExecution(sig, inst, ts(10, 0))
	if !led.Add(inst, 50, ledger.SideLong, 110.75, ts(10, 0), 99.675, 132.9, "ORB_L") {
		t.Fatalf("seed position rejected")
	}

	// Underlying pierces the signal stop.
	core.OnBar(market.Bar{
		Symbol: nifty, StartTime: ts(10, 1),
		Open: 22140, High: 22145, Low: 22090, Close: 22110,
		Volume: 100, VWAP: 22120, PCR: 1.0,
	})
	if got := core.Gates.PendingReason(inst); got != gates.ReasonTechSL {
		t.Fatalf("pending reason = %q, want %s", got, gates.ReasonTechSL)
	}

	// Next bar for the option itself resolves the pending close.
	core.OnBar(market.Bar{
		Symbol: inst, StartTime: ts(10, 2),
		Open: 106, High: 107, Low: 104, Close: 105,
		Volume: 10, VWAP: 106, PCR: 1.0,
	})

	if _, open := led.Get(inst); open {
		t.Fatalf("position should be closed")
	}
	closed := led.ClosedPositions()
	if len(closed) != 1 {
		t.Fatalf("closed count = %d, want 1", len(closed))
	}
	p := closed[0]
	if p.ExitReason != gates.ReasonTechSL {
		t.Fatalf("exit reason = %q, want %s", p.ExitReason, gates.ReasonTechSL)
	}
	wantPnL := 50 * (105 - 110.75)
	if math.Abs(p.RealizedPnL-wantPnL) > 1e-9 {
		t.Fatalf("realized = %.2f, want %.2f", p.RealizedPnL, wantPnL)
	}
	if snap := core.Metrics.GetSnapshot(); snap.PositionsClosed != 1 {
		t.Fatalf("positions closed = %d, want 1", snap.PositionsClosed)
	}
}

func TestWeightedDeltaAggregatesConstituents(t *testing.T) {
	core, _ := newTestCore()
	core.Weights = refdata.NewIndexWeights(map[string]float64{"NSE_EQ|RELIANCE": 0.5})

	core.OnBar(market.Bar{
		Symbol: "NSE_EQ|RELIANCE", StartTime: ts(10, 0),
		Open: 100, High: 102.5, Low: 99.5, Close: 102,
		Volume: 100, VWAP: 101, PCR: 1.0,
	})

	if got := core.WeightedDelta(); math.Abs(got-0.01) > 1e-9 {
		t.Fatalf("weighted delta = %.4f, want 0.01", got)
	}
}

func TestAuctionStateSerializedAgainstBars(t *testing.T) {
	core, _ := newTestCore()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			core.OnBar(market.Bar{
				Symbol: nifty, StartTime: ts(9, 20) + int64(i)*60_000,
				Open: 22100, High: 22160, Low: 22090, Close: 22150,
				Volume: 100, VWAP: 22120, PCR: 1.0,
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			state := market.RejectionUp
			if i%2 == 1 {
				state = market.Rotation
			}
			core.OnAuctionState(nifty, state)
		}
	}()
	wg.Wait()

	if snap := core.Metrics.GetSnapshot(); snap.BarsProcessed != 100 {
		t.Fatalf("bars processed = %d, want 100", snap.BarsProcessed)
	}
}

func TestBreadthSnapshotStored(t *testing.T) {
	core, _ := newTestCore()
	snap := market.BreadthSnapshot{Advances: 30, Declines: 15, Unchanged: 5, Total: 50}
	core.OnBreadth(snap)

	if got := core.Breadth(); got != snap {
		t.Fatalf("breadth = %+v, want %+v", got, snap)
	}
	if core.WeightedDelta() != 0 {
		t.Fatalf("weighted delta should be 0 without a weight table")
	}
}
