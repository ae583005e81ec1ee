package sizer

import (
	"testing"

	"scalp-core/internal/gates"
	"scalp-core/internal/ledger"
	"scalp-core/internal/options"
	"scalp-core/internal/refdata"
	"scalp-core/pkg/cache"
)

const nifty = "NSE_INDEX|Nifty 50"

func newTestSizer(risk float64, maxQty int) *Sizer {
	ltp := cache.NewShardedPriceCache()
	return &Sizer{
		Risk:     risk,
		MaxQty:   maxQty,
		Lots:     refdata.FixedLotSize(25),
		Resolver: options.NewResolver(ltp),
		Ledger:   ledger.New(ltp, nil),
	}
}

func TestQuantityLotRounding(t *testing.T) {
	s := newTestSizer(1000, 10000)

	cases := []struct {
		entry, stop, scale float64
		lot                int
		want               int
	}{
		{100, 90, 1.0, 25, 100}, // 1000/10 = 100, already a lot multiple
		{100, 90, 0.5, 25, 50},  // wall scale halves to 2 lots
		{100, 99, 1.0, 25, 1000},
		{100, 90, 1.0, 30, 90},    // rounds down to a lot multiple
		{100, 100, 1.0, 25, 10000}, // zero stop distance hits the epsilon floor, capped
		{500, 250, 1.0, 25, 25},   // tiny raw quantity bumps up to one lot
	}
	for _, tc := range cases {
		if got := s.quantity(tc.entry, tc.stop, tc.lot, tc.scale); got != tc.want {
			t.Fatalf("quantity(%.0f, %.0f, lot=%d, scale=%.1f) = %d, want %d",
				tc.entry, tc.stop, tc.lot, tc.scale, got, tc.want)
		}
	}
}

func TestQuantityRespectsCap(t *testing.T) {
	s := newTestSizer(100000, 180)
	// Raw quantity 10000, cap 180 rounds down to 175.
	if got := s.quantity(100, 90, 25, 1.0); got != 175 {
		t.Fatalf("expected capped quantity 175, got %d", got)
	}
}

func TestExecuteConvertsIndexSignalToOption(t *testing.T) {
	s := newTestSizer(1000, 10000)
	s.Resolver.UpdateSpot(nifty, 22150)

	sig := gates.NewSignal(nifty, gates.GateOrbL, 1000, 22150, 22100, 22300, 7)
	inst, ok := s.Execute(sig)
	if !ok {
		t.Fatalf("execution should succeed with a synthetic fallback price")
	}

	p, found := s.Ledger.Get(inst)
	if !found {
		t.Fatalf("expected open position on %s", inst)
	}
	if p.Side != ledger.SideLong {
		t.Fatalf("option conversion always buys, got %v", p.Side)
	}
	// ATM synthetic premium 110.75, percentage levels off the premium.
	if p.EntryPrice != 110.75 {
		t.Fatalf("expected entry 110.75, got %.4f", p.EntryPrice)
	}
	if want := 110.75 * 0.9; p.StopLoss != want {
		t.Fatalf("expected stop %.4f, got %.4f", want, p.StopLoss)
	}
	if want := 110.75 * 1.2; p.TakeProfit != want {
		t.Fatalf("expected target %.4f, got %.4f", want, p.TakeProfit)
	}
	if p.Quantity%25 != 0 || p.Quantity <= 0 {
		t.Fatalf("quantity %d is not a positive lot multiple", p.Quantity)
	}
	if p.Strategy != "ORB_L" {
		t.Fatalf("strategy tag should carry the gate name, got %q", p.Strategy)
	}
}

func TestExecuteShortSignalBuysPut(t *testing.T) {
	s := newTestSizer(1000, 10000)
	s.Resolver.UpdateSpot(nifty, 22150)

	sig := gates.NewSignal(nifty, gates.GateOrbS, 1000, 22150, 22200, 22000, 7)
	inst, ok := s.Execute(sig)
	if !ok {
		t.Fatalf("short execution should succeed")
	}
	p, _ := s.Ledger.Get(inst)
	if p.Side != ledger.SideLong {
		t.Fatalf("puts are bought, not sold short; got %v", p.Side)
	}
}

func TestExecuteAbandonedWithoutSpot(t *testing.T) {
	s := newTestSizer(1000, 10000)
	sig := gates.NewSignal(nifty, gates.GateOrbL, 1000, 22150, 22100, 22300, 7)
	if inst, ok := s.Execute(sig); ok {
		t.Fatalf("execution without a resolvable option should be abandoned, got %s", inst)
	}
	if len(s.Ledger.OpenPositions()) != 0 {
		t.Fatalf("no position should exist after an abandoned execution")
	}
}

func TestExecuteSuppressedWhenPositionOpen(t *testing.T) {
	s := newTestSizer(1000, 10000)
	s.Resolver.UpdateSpot(nifty, 22150)

	sig := gates.NewSignal(nifty, gates.GateOrbL, 1000, 22150, 22100, 22300, 7)
	if _, ok := s.Execute(sig); !ok {
		t.Fatalf("first execution should open")
	}
	again := gates.NewSignal(nifty, gates.GateOrbL, 2000, 22150, 22100, 22300, 7)
	if _, ok := s.Execute(again); ok {
		t.Fatalf("second execution on the same instrument should be suppressed")
	}
}

func TestExecuteEquitySignalKeepsSide(t *testing.T) {
	s := newTestSizer(1000, 10000)
	sig := gates.NewSignal("NSE_EQ|RELIANCE", gates.GateHitchS, 1000, 2500, 2520, 2450, 6)
	inst, ok := s.Execute(sig)
	if !ok {
		t.Fatalf("equity execution should not need option resolution")
	}
	if inst != "NSE_EQ|RELIANCE" {
		t.Fatalf("equity signals trade the underlying itself, got %s", inst)
	}
	p, _ := s.Ledger.Get(inst)
	if p.Side != ledger.SideShort {
		t.Fatalf("target below entry should infer a short, got %v", p.Side)
	}
}
