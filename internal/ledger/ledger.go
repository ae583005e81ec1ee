package ledger

import (
	"hash/fnv"
	"log"
	"sync"

	"github.com/google/uuid"

	"scalp-core/pkg/cache"
)

const numShards = 16

// Store receives position lifecycle changes for durable persistence. All
// methods must be non-blocking; the ledger calls them on the per-bar path.
type Store interface {
	PositionOpened(p Position)
	PositionUpdated(p Position)
	PositionClosed(p Position)
}

// slot bundles an open position with the ledger's exit-tracking state.
type slot struct {
	pos *Position

	bestPrice float64 // most favorable traded price since entry
	breakEven bool
	origRisk  float64 // |entry - initial stop|, fixed at entry
}

type shard struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// Ledger owns the open and closed position sets. Open positions are sharded
// by instrument key so per-symbol operations do not contend on one mutex.
// At most one open position exists per instrument key.
type Ledger struct {
	shards [numShards]*shard

	closedMu sync.RWMutex
	closed   []Position

	ltp   *cache.ShardedPriceCache
	store Store
}

// New creates a ledger. store may be nil for in-memory operation.
func New(ltp *cache.ShardedPriceCache, store Store) *Ledger {
	l := &Ledger{ltp: ltp, store: store}
	for i := range l.shards {
		l.shards[i] = &shard{slots: make(map[string]*slot)}
	}
	return l
}

func (l *Ledger) shardFor(instrument string) *shard {
	h := fnv.New32a()
	h.Write([]byte(instrument))
	return l.shards[h.Sum32()%numShards]
}

// Restore seeds an open position loaded from the durable store at startup.
func (l *Ledger) Restore(p Position) {
	sh := l.shardFor(p.Instrument)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.slots[p.Instrument]; exists {
		return
	}
	cp := p
	sh.slots[p.Instrument] = &slot{
		pos:       &cp,
		bestPrice: cp.EntryPrice,
		origRisk:  abs(cp.EntryPrice - cp.StopLoss),
	}
}

// RestoreClosed seeds a closed position loaded from the durable store.
func (l *Ledger) RestoreClosed(p Position) {
	l.closedMu.Lock()
	l.closed = append(l.closed, p)
	l.closedMu.Unlock()
}

// Add opens a position. It is a silent no-op returning false when an open
// position already exists for the instrument; idempotent suppression is the
// intended behavior, not an error.
func (l *Ledger) Add(instrument string, qty int, side Side, entryPrice float64, entryTime int64, stop, target float64, strategy string) bool {
	if qty <= 0 {
		return false
	}
	sh := l.shardFor(instrument)

	sh.mu.Lock()
	if _, exists := sh.slots[instrument]; exists {
		sh.mu.Unlock()
		return false
	}
	p := &Position{
		ID:              uuid.NewString(),
		Instrument:      instrument,
		Quantity:        qty,
		InitialQuantity: qty,
		Side:            side,
		EntryPrice:      entryPrice,
		EntryTime:       entryTime,
		StopLoss:        stop,
		TakeProfit:      target,
		Strategy:        strategy,
	}
	sh.slots[instrument] = &slot{
		pos:       p,
		bestPrice: entryPrice,
		origRisk:  abs(entryPrice - stop),
	}
	cp := *p
	sh.mu.Unlock()

	if l.store != nil {
		l.store.PositionOpened(cp)
	}
	log.Printf("position opened [%s]: %s qty=%d @ %.2f SL=%.2f TP=%.2f (%s)",
		side, instrument, qty, entryPrice, stop, target, strategy)
	return true
}

// PartialClose reduces the position by min(qty, remaining) and accrues the
// realized PnL for the closed portion. When the remainder reaches zero the
// position moves to the closed set with final exit fields stamped. Returns
// the amount realized by this call.
func (l *Ledger) PartialClose(instrument string, qty int, exitPrice float64, exitTime int64, reason string) float64 {
	sh := l.shardFor(instrument)
	sh.mu.Lock()
	s, ok := sh.slots[instrument]
	if !ok {
		sh.mu.Unlock()
		return 0
	}
	realized, final := l.reduceLocked(sh, s, qty, exitPrice, exitTime, reason)
	cp := *s.pos
	sh.mu.Unlock()

	l.persist(cp, final)
	return realized
}

// Close fully exits the position; equivalent to a full-quantity PartialClose.
func (l *Ledger) Close(instrument string, exitPrice float64, exitTime int64, reason string) float64 {
	sh := l.shardFor(instrument)
	sh.mu.Lock()
	s, ok := sh.slots[instrument]
	if !ok {
		sh.mu.Unlock()
		return 0
	}
	realized, final := l.reduceLocked(sh, s, s.pos.Quantity, exitPrice, exitTime, reason)
	cp := *s.pos
	sh.mu.Unlock()

	l.persist(cp, final)
	return realized
}

// reduceLocked performs the side-aware PnL accrual under the shard lock.
func (l *Ledger) reduceLocked(sh *shard, s *slot, qty int, exitPrice float64, exitTime int64, reason string) (realized float64, final bool) {
	p := s.pos
	if qty > p.Quantity {
		qty = p.Quantity
	}
	if qty <= 0 {
		return 0, false
	}

	realized = (exitPrice - p.EntryPrice) * p.Side.Dir() * float64(qty)
	p.RealizedPnL += realized
	p.Quantity -= qty

	if p.Quantity == 0 {
		p.ExitPrice = exitPrice
		p.ExitTime = exitTime
		p.ExitReason = reason
		delete(sh.slots, p.Instrument)

		l.closedMu.Lock()
		l.closed = append(l.closed, *p)
		l.closedMu.Unlock()

		log.Printf("position closed [%s]: %s @ %.2f reason=%s pnl=%.2f",
			p.Side, p.Instrument, exitPrice, reason, p.RealizedPnL)
		return realized, true
	}

	log.Printf("partial exit [%s]: %s closed %d @ %.2f reason=%s remaining=%d realized=%.2f",
		p.Side, p.Instrument, qty, exitPrice, reason, p.Quantity, realized)
	return realized, false
}

func (l *Ledger) persist(p Position, final bool) {
	if l.store == nil {
		return
	}
	if final {
		l.store.PositionClosed(p)
	} else {
		l.store.PositionUpdated(p)
	}
}

// Get returns a copy of the open position for an instrument.
func (l *Ledger) Get(instrument string) (Position, bool) {
	sh := l.shardFor(instrument)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.slots[instrument]
	if !ok {
		return Position{}, false
	}
	return *s.pos, true
}

// IsBreakEven reports whether the stop has migrated to breakeven.
func (l *Ledger) IsBreakEven(instrument string) bool {
	sh := l.shardFor(instrument)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.slots[instrument]
	return ok && s.breakEven
}

// OpenPositions returns a snapshot of all open positions.
func (l *Ledger) OpenPositions() []Position {
	var out []Position
	for _, sh := range l.shards {
		sh.mu.RLock()
		for _, s := range sh.slots {
			out = append(out, *s.pos)
		}
		sh.mu.RUnlock()
	}
	return out
}

// ClosedPositions returns a snapshot of all closed positions.
func (l *Ledger) ClosedPositions() []Position {
	l.closedMu.RLock()
	defer l.closedMu.RUnlock()
	out := make([]Position, len(l.closed))
	copy(out, l.closed)
	return out
}

// UpdateLtp records the last traded price for an instrument.
func (l *Ledger) UpdateLtp(instrument string, price float64) {
	if l.ltp != nil {
		l.ltp.Set(instrument, price)
	}
}

// Ltp returns the last traded price, falling back to the open position's
// entry price when no live price has arrived yet. The fallback avoids a
// false zero-PnL reading on the first tick after a restart.
func (l *Ledger) Ltp(instrument string) float64 {
	if l.ltp != nil {
		if price, ok := l.ltp.Get(instrument); ok {
			return price
		}
	}
	if p, ok := l.Get(instrument); ok {
		return p.EntryPrice
	}
	return 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
