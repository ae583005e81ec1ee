package ledger

import (
	"log"

	"scalp-core/internal/indicators"
	"scalp-core/internal/market"
)

// ExitConfig controls the in-trade management applied on every bar of the
// traded instrument.
type ExitConfig struct {
	// PartialTPFraction is the share of the initial quantity closed when the
	// take-profit level is first crossed.
	PartialTPFraction float64
	// TrailingEnabled turns on the ATR-referenced trailing stop.
	TrailingEnabled bool
	// TrailTriggerATR is how many ATRs of favorable movement arm the trail.
	TrailTriggerATR float64
	// TrailRefEMA9 selects EMA9 as the trail reference; otherwise VWAP.
	TrailRefEMA9 bool
	// TPExtendATR is the distance in ATRs of the extended target set after a
	// partial take-profit.
	TPExtendATR float64
	// BreakEvenBufferFrac pads the breakeven stop past entry by this fraction
	// of the entry price, in the trade's favor.
	BreakEvenBufferFrac float64
}

// DefaultExitConfig returns the standard management parameters.
func DefaultExitConfig() ExitConfig {
	return ExitConfig{
		PartialTPFraction:   0.5,
		TrailingEnabled:     true,
		TrailTriggerATR:     1.5,
		TrailRefEMA9:        true,
		TPExtendATR:         1.5,
		BreakEvenBufferFrac: 0.0005,
	}
}

// Exit reasons stamped on closed positions.
const (
	ReasonHardSL    = "HARD_SL_HIT"
	ReasonHardTP    = "HARD_TP_HIT"
	ReasonPartialTP = "PARTIAL_TP"
)

// CloseEvent describes an exit (full or partial) produced by EvaluateBar.
// The caller publishes it; the ledger has already mutated its state.
type CloseEvent struct {
	Position Position
	Quantity int
	Price    float64
	Reason   string
	Final    bool
	Realized float64
}

// EvaluateBar runs the management sequence for the open position on the
// bar's instrument, in order: forced close for a pending technical reason,
// breakeven migration, trailing-stop migration, then hard stop and target
// checks. Returns nil when nothing fired.
//
// Stop checks use the bar's adverse extreme and targets use the favorable
// extreme, so intrabar touches count even when the close recovers.
func (l *Ledger) EvaluateBar(bar market.Bar, ind *indicators.State, cfg ExitConfig, pendingReason string) *CloseEvent {
	sh := l.shardFor(bar.Symbol)
	sh.mu.Lock()
	s, ok := sh.slots[bar.Symbol]
	if !ok {
		sh.mu.Unlock()
		return nil
	}
	p := s.pos
	dir := p.Side.Dir()

	// 1. A pending technical-exit reason always closes in full at the close.
	if pendingReason != "" {
		realized, _ := l.reduceLocked(sh, s, p.Quantity, bar.Close, bar.StartTime, pendingReason)
		ev := &CloseEvent{Position: *p, Quantity: p.InitialQuantity, Price: bar.Close, Reason: pendingReason, Final: true, Realized: realized}
		sh.mu.Unlock()
		l.persist(ev.Position, true)
		return ev
	}

	// 2. Track the most favorable price and migrate the stop to breakeven
	// once the open gain covers the original risk. The flip happens once.
	favorable := bar.High
	adverse := bar.Low
	if p.Side == SideShort {
		favorable = bar.Low
		adverse = bar.High
	}
	if (favorable-s.bestPrice)*dir > 0 {
		s.bestPrice = favorable
	}
	if !s.breakEven && s.origRisk > 0 && (s.bestPrice-p.EntryPrice)*dir >= s.origRisk {
		p.StopLoss = p.EntryPrice + p.EntryPrice*cfg.BreakEvenBufferFrac*dir
		s.breakEven = true
		log.Printf("breakeven set: %s stop -> %.2f", p.Instrument, p.StopLoss)
	}

	// 3. Trailing stop referenced off EMA9 or VWAP, offset half an ATR, armed
	// after the configured favorable excursion. Migration is one-way.
	atr := ind.ATR
	if floor := bar.Close * 0.001; atr < floor {
		atr = floor
	}
	if cfg.TrailingEnabled && (s.bestPrice-p.EntryPrice)*dir >= cfg.TrailTriggerATR*atr {
		ref := bar.VWAP
		if cfg.TrailRefEMA9 {
			ref = ind.EMA9
		}
		if ref > 0 {
			trail := ref - 0.5*atr*dir
			if (trail-p.StopLoss)*dir > 0 {
				p.StopLoss = trail
			}
		}
	}

	// 4. Hard stop first, then the target.
	if (adverse-p.StopLoss)*dir <= 0 {
		reason := ReasonHardSL
		realized, _ := l.reduceLocked(sh, s, p.Quantity, p.StopLoss, bar.StartTime, reason)
		ev := &CloseEvent{Position: *p, Quantity: p.InitialQuantity, Price: p.StopLoss, Reason: reason, Final: true, Realized: realized}
		sh.mu.Unlock()
		l.persist(ev.Position, true)
		return ev
	}

	if (favorable-p.TakeProfit)*dir >= 0 {
		partial := int(float64(p.InitialQuantity) * cfg.PartialTPFraction)
		if partial <= 0 || partial >= p.Quantity {
			// Nothing sensible left to scale out; close the remainder.
			realized, _ := l.reduceLocked(sh, s, p.Quantity, p.TakeProfit, bar.StartTime, ReasonHardTP)
			ev := &CloseEvent{Position: *p, Quantity: p.InitialQuantity, Price: p.TakeProfit, Reason: ReasonHardTP, Final: true, Realized: realized}
			sh.mu.Unlock()
			l.persist(ev.Position, true)
			return ev
		}
		exitPrice := p.TakeProfit
		realized, _ := l.reduceLocked(sh, s, partial, exitPrice, bar.StartTime, ReasonPartialTP)
		// Protect the runner: stop to entry, target extended along the trade.
		p.StopLoss = p.EntryPrice
		p.TakeProfit = p.EntryPrice + cfg.TPExtendATR*atr*dir
		ev := &CloseEvent{Position: *p, Quantity: partial, Price: exitPrice, Reason: ReasonPartialTP, Final: false, Realized: realized}
		sh.mu.Unlock()
		l.persist(ev.Position, false)
		return ev
	}

	sh.mu.Unlock()
	return nil
}
