package ledger

import (
	"math"
	"testing"

	"scalp-core/internal/indicators"
	"scalp-core/internal/market"
	"scalp-core/pkg/cache"
)

const inst = "NSE|OPTION|NIFTY_22150_CE"

func newTestLedger() *Ledger {
	return New(cache.NewShardedPriceCache(), nil)
}

func TestAddRejectsDuplicate(t *testing.T) {
	l := newTestLedger()
	if !l.Add(inst, 100, SideLong, 100, 1, 90, 120, "ORB_L") {
		t.Fatalf("first add should succeed")
	}
	if l.Add(inst, 50, SideLong, 101, 2, 91, 121, "ORB_L") {
		t.Fatalf("second add for same instrument should be suppressed")
	}
	if p, _ := l.Get(inst); p.Quantity != 100 {
		t.Fatalf("expected original position to survive, got qty %d", p.Quantity)
	}
}

func TestPartialClosesMatchSingleClose(t *testing.T) {
	cases := []struct {
		name  string
		side  Side
		entry float64
		exit  float64
	}{
		{"long", SideLong, 100, 112},
		{"short", SideShort, 100, 88},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			single := newTestLedger()
			single.Add(inst, 100, tc.side, tc.entry, 1, 0, 0, "TEST")
			want := single.Close(inst, tc.exit, 2, "MANUAL")

			split := newTestLedger()
			split.Add(inst, 100, tc.side, tc.entry, 1, 0, 0, "TEST")
			got := split.PartialClose(inst, 40, tc.exit, 2, "PARTIAL_TP")
			got += split.PartialClose(inst, 60, tc.exit, 3, "MANUAL")

			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("split pnl %.4f != single pnl %.4f", got, want)
			}
			closed := split.ClosedPositions()
			if len(closed) != 1 {
				t.Fatalf("expected one closed position, got %d", len(closed))
			}
			if math.Abs(closed[0].RealizedPnL-want) > 1e-9 {
				t.Fatalf("closed pnl %.4f != %.4f", closed[0].RealizedPnL, want)
			}
		})
	}
}

func TestPartialCloseClampsToRemaining(t *testing.T) {
	l := newTestLedger()
	l.Add(inst, 50, SideLong, 100, 1, 90, 120, "TEST")
	realized := l.PartialClose(inst, 500, 110, 2, "MANUAL")
	if realized != 500 {
		t.Fatalf("expected pnl 500 for 50 lots, got %.2f", realized)
	}
	if _, ok := l.Get(inst); ok {
		t.Fatalf("position should be fully closed")
	}
}

func TestLtpFallsBackToEntryPrice(t *testing.T) {
	l := newTestLedger()
	l.Add(inst, 25, SideLong, 107.5, 1, 90, 120, "TEST")
	if got := l.Ltp(inst); got != 107.5 {
		t.Fatalf("expected entry-price fallback 107.5, got %.2f", got)
	}
	l.UpdateLtp(inst, 111)
	if got := l.Ltp(inst); got != 111 {
		t.Fatalf("expected live ltp 111, got %.2f", got)
	}
	if got := l.Ltp("NSE|OPTION|NIFTY_22200_CE"); got != 0 {
		t.Fatalf("unknown instrument should return 0, got %.2f", got)
	}
}

func mkBar(open, high, low, close float64) market.Bar {
	return market.Bar{Symbol: inst, StartTime: 1, Open: open, High: high, Low: low, Close: close, Volume: 1000, VWAP: close, PCR: 1.0}
}

func flatIndicators(close float64) *indicators.State {
	return &indicators.State{ATR: 2, EMA9: close}
}

func TestBreakEvenFlipsOnce(t *testing.T) {
	l := newTestLedger()
	cfg := DefaultExitConfig()
	cfg.TrailingEnabled = false
	l.Add(inst, 100, SideLong, 100, 1, 90, 150, "TEST")

	// Gain of 11 exceeds the original 10-point risk: stop migrates past entry.
	if ev := l.EvaluateBar(mkBar(108, 111, 107, 110), flatIndicators(110), cfg, ""); ev != nil {
		t.Fatalf("unexpected close event: %+v", ev)
	}
	if !l.IsBreakEven(inst) {
		t.Fatalf("expected breakeven after covering original risk")
	}
	p, _ := l.Get(inst)
	wantStop := 100 + 100*cfg.BreakEvenBufferFrac
	if math.Abs(p.StopLoss-wantStop) > 1e-9 {
		t.Fatalf("expected stop %.4f, got %.4f", wantStop, p.StopLoss)
	}

	// Later bars must not move the stop back down.
	l.EvaluateBar(mkBar(110, 112, wantStop+0.01, 111), flatIndicators(111), cfg, "")
	p, _ = l.Get(inst)
	if math.Abs(p.StopLoss-wantStop) > 1e-9 {
		t.Fatalf("breakeven stop moved: %.4f", p.StopLoss)
	}
}

func TestHardStopFiresOnIntrabarTouch(t *testing.T) {
	l := newTestLedger()
	cfg := DefaultExitConfig()
	cfg.TrailingEnabled = false
	l.Add(inst, 100, SideLong, 100, 1, 95, 150, "TEST")

	// Low pierces the stop even though the close recovers above it.
	ev := l.EvaluateBar(mkBar(99, 100, 94, 98), flatIndicators(98), cfg, "")
	if ev == nil || !ev.Final || ev.Reason != ReasonHardSL {
		t.Fatalf("expected final HARD_SL_HIT, got %+v", ev)
	}
	if ev.Price != 95 {
		t.Fatalf("stop exits fill at the stop price, got %.2f", ev.Price)
	}
	if _, ok := l.Get(inst); ok {
		t.Fatalf("position should be removed after hard stop")
	}
}

func TestPartialTakeProfitExtendsTarget(t *testing.T) {
	l := newTestLedger()
	cfg := DefaultExitConfig()
	cfg.TrailingEnabled = false
	l.Add(inst, 100, SideLong, 100, 1, 90, 110, "TEST")

	ev := l.EvaluateBar(mkBar(108, 111, 107, 109), flatIndicators(109), cfg, "")
	if ev == nil || ev.Final || ev.Reason != ReasonPartialTP {
		t.Fatalf("expected partial take-profit, got %+v", ev)
	}
	if ev.Quantity != 50 {
		t.Fatalf("expected half the initial quantity, got %d", ev.Quantity)
	}
	p, _ := l.Get(inst)
	if p.Quantity != 50 {
		t.Fatalf("expected 50 remaining, got %d", p.Quantity)
	}
	if p.StopLoss != 100 {
		t.Fatalf("runner stop should sit at entry, got %.2f", p.StopLoss)
	}
	wantTP := 100 + cfg.TPExtendATR*2
	if math.Abs(p.TakeProfit-wantTP) > 1e-9 {
		t.Fatalf("expected extended target %.2f, got %.2f", wantTP, p.TakeProfit)
	}

	// A second target touch exhausts the runner in full.
	ev = l.EvaluateBar(mkBar(102, wantTP+1, 101, wantTP), flatIndicators(wantTP), cfg, "")
	if ev == nil || !ev.Final || ev.Reason != ReasonHardTP {
		t.Fatalf("expected final HARD_TP_HIT, got %+v", ev)
	}
	closed := l.ClosedPositions()
	if len(closed) != 1 {
		t.Fatalf("expected one closed position, got %d", len(closed))
	}
}

func TestPendingReasonForcesFullClose(t *testing.T) {
	l := newTestLedger()
	cfg := DefaultExitConfig()
	l.Add(inst, 100, SideLong, 100, 1, 90, 150, "TEST")

	ev := l.EvaluateBar(mkBar(101, 102, 100, 101), flatIndicators(101), cfg, "TECH_SL_HIT")
	if ev == nil || !ev.Final || ev.Reason != "TECH_SL_HIT" {
		t.Fatalf("expected forced technical close, got %+v", ev)
	}
	if ev.Price != 101 {
		t.Fatalf("forced closes fill at the bar close, got %.2f", ev.Price)
	}
}

func TestTrailingStopMigratesOneWay(t *testing.T) {
	l := newTestLedger()
	cfg := DefaultExitConfig()
	l.Add(inst, 100, SideLong, 100, 1, 98, 200, "TEST")

	// ATR 2, trigger 1.5 ATRs = 3 points of favorable excursion.
	ind := &indicators.State{ATR: 2, EMA9: 106}
	l.EvaluateBar(mkBar(105.5, 106, 105.2, 105.8), ind, cfg, "")
	p, _ := l.Get(inst)
	if want := 106 - 0.5*2.0; math.Abs(p.StopLoss-want) > 1e-9 {
		t.Fatalf("expected trail %.2f, got %.2f", want, p.StopLoss)
	}

	// A lower reference must not loosen the stop.
	ind.EMA9 = 104.5
	l.EvaluateBar(mkBar(105.8, 106.2, 105.3, 106), ind, cfg, "")
	p, _ = l.Get(inst)
	if want := 106 - 0.5*2.0; math.Abs(p.StopLoss-want) > 1e-9 {
		t.Fatalf("trail loosened to %.2f", p.StopLoss)
	}
}

func TestSidePnLDirection(t *testing.T) {
	l := newTestLedger()
	l.Add(inst, 10, SideShort, 200, 1, 210, 180, "TEST")
	realized := l.Close(inst, 190, 2, "MANUAL")
	if realized != 100 {
		t.Fatalf("short exit below entry should profit, got %.2f", realized)
	}
}
