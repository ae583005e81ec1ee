package gates

import (
	"log"
	"math"
	"sync"

	"scalp-core/internal/indicators"
	"scalp-core/internal/market"
	"scalp-core/internal/refdata"
)

// Technical exit reasons detected on the underlying, resolved by the ledger
// on the traded instrument's next bar.
const (
	ReasonTechSL = "TECH_SL_HIT"
	ReasonTechTP = "TECH_TP_HIT"
)

// symState is the per-underlying evaluation state. Bars for one symbol are
// serialized by the caller, so only the engine-level map needs locking.
type symState struct {
	hist        []market.Bar
	orbHigh     float64
	orbLow      float64
	cloudAbove  int
	cloudBelow  int
	lastBarTime int64
	auction     market.AuctionState
}

// Engine evaluates the fixed rule set per underlying on each bar and owns
// the cooldown and signal-status bookkeeping.
type Engine struct {
	cfg Config

	mu   sync.RWMutex
	syms map[string]*symState

	cdMu      sync.Mutex
	cooldowns map[string]int64 // underlying + "_" + gate -> bar-time watermark

	sigMu        sync.RWMutex
	active       map[string]*Signal   // traded instrument -> live signal
	byUnderlying map[string][]*Signal // underlying -> live signals
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:          cfg,
		syms:         make(map[string]*symState),
		cooldowns:    make(map[string]int64),
		active:       make(map[string]*Signal),
		byUnderlying: make(map[string][]*Signal),
	}
}

func (e *Engine) sym(symbol string) *symState {
	e.mu.RLock()
	s, ok := e.syms[symbol]
	e.mu.RUnlock()
	if ok {
		return s
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok = e.syms[symbol]; ok {
		return s
	}
	s = &symState{}
	e.syms[symbol] = s
	return s
}

// SetAuctionState stores the externally computed auction classification.
func (e *Engine) SetAuctionState(symbol string, state market.AuctionState) {
	e.sym(symbol).auction = state
}

// BeginSession clears intraday evaluation state at the session boundary.
func (e *Engine) BeginSession(symbol string) {
	s := e.sym(symbol)
	s.hist = s.hist[:0]
	s.orbHigh, s.orbLow = 0, 0
	s.cloudAbove, s.cloudBelow = 0, 0
	s.lastBarTime = 0
	s.auction = market.Rotation
}

// Evaluate runs every enabled rule against the bar and returns the candidate
// signals that survive cooldown. Out-of-order bars and bars inside the
// no-trade zone are skipped without error.
func (e *Engine) Evaluate(bar market.Bar, ind *indicators.State) []*Signal {
	s := e.sym(bar.Symbol)

	if bar.StartTime < s.lastBarTime {
		return nil
	}
	s.lastBarTime = bar.StartTime

	t := bar.SessionTime()
	minute := t.Hour()*60 + t.Minute()

	e.updateIntraday(s, bar, ind, minute)

	if len(s.hist) < e.cfg.MinHistory {
		return nil
	}

	volRatio := 0.0
	if ind.AvgVolume > 0 {
		volRatio = float64(bar.Volume) / ind.AvgVolume
	}
	if e.noTradeZone(minute, ind, volRatio) {
		return nil
	}

	atr := ind.ATR
	if floor := bar.Close * 0.001; atr < floor {
		atr = floor
	}
	ctx := &ruleContext{
		bar:        bar,
		ind:        ind,
		hist:       s.hist,
		auction:    s.auction,
		atr:        atr,
		volRatio:   volRatio,
		minute:     minute,
		orbHigh:    s.orbHigh,
		orbLow:     s.orbLow,
		cloudAbove: s.cloudAbove,
		cloudBelow: s.cloudBelow,
		strongNear: func(price float64) bool {
			return e.strongLevel(bar.Symbol, price, ind)
		},
	}

	var out []*Signal
	for _, gate := range AllGates() {
		if e.cfg.disabled[gate] {
			continue
		}
		cand, ok := rules[gate](ctx)
		if !ok || cand.entry == cand.stop {
			continue
		}
		if e.inCooldown(bar.Symbol, gate, bar.StartTime) {
			continue
		}
		score := e.score(ctx, cand)
		sig := NewSignal(bar.Symbol, gate, bar.StartTime, cand.entry, cand.stop, cand.target, score)
		out = append(out, sig)
		log.Printf("gate fired: %s %s entry=%.2f stop=%.2f target=%.2f score=%.1f",
			bar.Symbol, gate, cand.entry, cand.stop, cand.target, score)
	}
	return out
}

// updateIntraday maintains the history ring, opening range, and cloud
// counters for the symbol.
func (e *Engine) updateIntraday(s *symState, bar market.Bar, ind *indicators.State, minute int) {
	s.hist = append(s.hist, bar)
	if len(s.hist) > e.cfg.HistorySize {
		s.hist = s.hist[len(s.hist)-e.cfg.HistorySize:]
	}

	if minute >= sessionOpenMinute && minute < orbEndMinute {
		if s.orbHigh == 0 || bar.High > s.orbHigh {
			s.orbHigh = bar.High
		}
		if s.orbLow == 0 || bar.Low < s.orbLow {
			s.orbLow = bar.Low
		}
	}

	if ind.EVWMA20 > 0 {
		if bar.Close > ind.EVWMA20 {
			s.cloudAbove++
			s.cloudBelow = 0
		} else if bar.Close < ind.EVWMA20 {
			s.cloudBelow++
			s.cloudAbove = 0
		}
	}
}

func (e *Engine) noTradeZone(minute int, ind *indicators.State, volRatio float64) bool {
	if minute < e.cfg.sessionStartMin || minute >= e.cfg.sessionEndMin {
		return true
	}
	if ind.ADX < e.cfg.MinADX {
		return true
	}
	if volRatio < e.cfg.MinVolumeRatio {
		return true
	}
	return false
}

// strongLevel reports whether price sits within 0.1% of the session or
// prior-day extremes, or near a round number for the symbol's family.
func (e *Engine) strongLevel(symbol string, price float64, ind *indicators.State) bool {
	if price <= 0 {
		return false
	}
	tol := price * 0.001
	for _, level := range []float64{ind.SessionHigh, ind.SessionLow, ind.PrevDayHigh, ind.PrevDayLow} {
		if level > 0 && math.Abs(price-level) <= tol {
			return true
		}
	}
	step := refdata.RoundStep(symbol)
	if step > 0 {
		rem := math.Mod(price, step)
		if rem <= tol || step-rem <= tol {
			return true
		}
	}
	return false
}

// score computes the 0-10 playbook score: base 5, strong-level proximity +2,
// heavy relative volume +1.5, strong trend +1.5.
func (e *Engine) score(ctx *ruleContext, cand candidate) float64 {
	score := 5.0
	if ctx.strongNear(cand.entry) {
		score += 2.0
	}
	if ctx.volRatio >= 2.0 {
		score += 1.5
	}
	if ctx.ind.ADX >= 25 {
		score += 1.5
	}
	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}
	return score
}

func cooldownKey(underlying string, gate Gate) string {
	return underlying + "_" + gate.String()
}

func (e *Engine) inCooldown(underlying string, gate Gate, barTime int64) bool {
	e.cdMu.Lock()
	defer e.cdMu.Unlock()
	last, ok := e.cooldowns[cooldownKey(underlying, gate)]
	return ok && barTime-last < e.cfg.CooldownMillis
}

// BindExecution records that a signal became a position on the given traded
// instrument. The cooldown clock for the (underlying, gate) pair starts at
// execution time.
func (e *Engine) BindExecution(sig *Signal, instrument string, execTime int64) {
	e.cdMu.Lock()
	e.cooldowns[cooldownKey(sig.Underlying, sig.Gate)] = execTime
	e.cdMu.Unlock()

	e.sigMu.Lock()
	e.active[instrument] = sig
	e.byUnderlying[sig.Underlying] = append(e.byUnderlying[sig.Underlying], sig)
	e.sigMu.Unlock()
}

// OnPositionClosed retires the instrument's signal and refreshes the cooldown
// to the exit time, so a new trade needs a full fresh window after each
// round-trip.
func (e *Engine) OnPositionClosed(instrument string, exitTime int64) {
	e.sigMu.Lock()
	sig, ok := e.active[instrument]
	if !ok {
		e.sigMu.Unlock()
		return
	}
	delete(e.active, instrument)
	live := e.byUnderlying[sig.Underlying][:0]
	for _, s := range e.byUnderlying[sig.Underlying] {
		if s != sig {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		delete(e.byUnderlying, sig.Underlying)
	} else {
		e.byUnderlying[sig.Underlying] = live
	}
	e.sigMu.Unlock()

	sig.MarkClosed()

	e.cdMu.Lock()
	e.cooldowns[cooldownKey(sig.Underlying, sig.Gate)] = exitTime
	e.cdMu.Unlock()
}

// CheckTechnicalExits tests each live signal for the bar's underlying
// against its own stop and target at the underlying level. A crossing marks
// the signal pending-close; the ledger resolves it on the traded
// instrument's next bar. The status write happens here, before any position
// exit check runs, so the ordering the close depends on holds.
func (e *Engine) CheckTechnicalExits(bar market.Bar) {
	e.sigMu.RLock()
	live := e.byUnderlying[bar.Symbol]
	sigs := make([]*Signal, len(live))
	copy(sigs, live)
	e.sigMu.RUnlock()

	for _, sig := range sigs {
		if st, _ := sig.Status(); st != StatusActive {
			continue
		}
		if sig.Long() {
			if bar.Low <= sig.Stop {
				sig.MarkPendingClose(ReasonTechSL)
			} else if bar.High >= sig.Target {
				sig.MarkPendingClose(ReasonTechTP)
			}
		} else {
			if bar.High >= sig.Stop {
				sig.MarkPendingClose(ReasonTechSL)
			} else if bar.Low <= sig.Target {
				sig.MarkPendingClose(ReasonTechTP)
			}
		}
	}
}

// PendingReason returns the pending technical-exit reason for the traded
// instrument's signal, or "" when none applies.
func (e *Engine) PendingReason(instrument string) string {
	e.sigMu.RLock()
	sig, ok := e.active[instrument]
	e.sigMu.RUnlock()
	if !ok {
		return ""
	}
	if st, reason := sig.Status(); st == StatusPendingClose {
		return reason
	}
	return ""
}

// ActiveSignals returns a snapshot of live signals keyed by traded
// instrument, for the dashboard.
func (e *Engine) ActiveSignals() map[string]*Signal {
	e.sigMu.RLock()
	defer e.sigMu.RUnlock()
	out := make(map[string]*Signal, len(e.active))
	for k, v := range e.active {
		out[k] = v
	}
	return out
}
