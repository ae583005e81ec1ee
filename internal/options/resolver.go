package options

import (
	"math"
	"sort"
	"sync"

	"scalp-core/internal/market"
	"scalp-core/internal/refdata"
	"scalp-core/pkg/cache"
)

const (
	// Synthetic premium model: 0.5% of spot time value, floored at 5.0.
	synthPremiumPct = 0.005
	synthPriceFloor = 5.0

	// Chain window published to telemetry: ATM +/- 2 strikes.
	// Covers every strike the danger-side skew scan inspects.
	chainWindowSize = 3
)

// Instrument is a resolved tradable option and its reference price.
type Instrument struct {
	Symbol string
	Price  float64
}

// Resolver maps (index, spot, side) onto a tradable at-the-money option with
// a three-tier price fallback: injected chain snapshot, observed option
// ticks, then a synthetic model. It also runs the OI-skew scan feeding the
// sizer's risk scaling.
type Resolver struct {
	mu     sync.RWMutex
	spots  map[string]float64
	ticks  map[string]market.OptionTick
	prevOI map[string]float64
	chain  map[string][]market.OptionChainEntry // index symbol -> latest injected snapshot

	ltp *cache.ShardedPriceCache
}

// NewResolver builds a resolver; ltp may be nil when synthetic quotes need
// not be published.
func NewResolver(ltp *cache.ShardedPriceCache) *Resolver {
	return &Resolver{
		spots:  make(map[string]float64),
		ticks:  make(map[string]market.OptionTick),
		prevOI: make(map[string]float64),
		chain:  make(map[string][]market.OptionChainEntry),
		ltp:    ltp,
	}
}

// UpdateSpot records the latest index spot and refreshes the synthetic ATM
// quotes in the price cache so option exits always have a reference price.
func (r *Resolver) UpdateSpot(indexSymbol string, spot float64) {
	if !IsIndex(indexSymbol) || spot <= 0 {
		return
	}
	r.mu.Lock()
	r.spots[indexSymbol] = spot
	r.mu.Unlock()

	if r.ltp == nil {
		return
	}
	strike := atmStrike(indexSymbol, spot)
	r.ltp.Set(synthSymbol(indexSymbol, strike, "CE"), syntheticPrice(spot, strike, "CE"))
	r.ltp.Set(synthSymbol(indexSymbol, strike, "PE"), syntheticPrice(spot, strike, "PE"))
}

// UpdateTick records a raw option quote, tracking OI change vs the previous
// observation when the feed did not annotate one.
func (r *Resolver) UpdateTick(tick market.OptionTick) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tick.OIChangePct == 0 {
		if prev, ok := r.prevOI[tick.Symbol]; ok && prev > 0 {
			tick.OIChangePct = (tick.OI - prev) / prev * 100
		}
	}
	r.prevOI[tick.Symbol] = tick.OI
	r.ticks[tick.Symbol] = tick

	if r.ltp != nil && tick.Price > 0 {
		r.ltp.Set(tick.Symbol, tick.Price)
	}
}

// InjectChain stores an externally supplied chain snapshot for an index.
func (r *Resolver) InjectChain(indexSymbol string, entries []market.OptionChainEntry) {
	if len(entries) == 0 {
		return
	}
	cp := make([]market.OptionChainEntry, len(entries))
	copy(cp, entries)
	r.mu.Lock()
	r.chain[indexSymbol] = cp
	r.mu.Unlock()
}

// Spot returns the last known spot for an index.
func (r *Resolver) Spot(indexSymbol string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.spots[indexSymbol]
	return s, ok
}

// ResolveATM resolves the at-the-money instrument for a directional index
// trade. A long index view buys the call, a short view buys the put.
// Resolution order: injected chain, observed ticks, synthetic model. The
// synthetic tier always succeeds, so ok is false only when no spot exists.
func (r *Resolver) ResolveATM(indexSymbol string, long bool) (Instrument, bool) {
	r.mu.RLock()
	spot, ok := r.spots[indexSymbol]
	r.mu.RUnlock()
	if !ok || spot <= 0 {
		return Instrument{}, false
	}

	strike := atmStrike(indexSymbol, spot)
	typ := "CE"
	if !long {
		typ = "PE"
	}

	// 1. Injected chain snapshot.
	r.mu.RLock()
	entries := r.chain[indexSymbol]
	r.mu.RUnlock()
	for _, e := range entries {
		if e.Strike == strike && e.Type == typ && e.Price > 0 {
			return Instrument{Symbol: synthSymbol(indexSymbol, strike, typ), Price: e.Price}, true
		}
	}

	// 2. Real tick state.
	r.mu.RLock()
	for sym, tick := range r.ticks {
		os, parsed := ParseOptionSymbol(sym)
		if parsed && os.Strike == strike && os.Type == typ && tick.Price > 0 {
			r.mu.RUnlock()
			return Instrument{Symbol: sym, Price: tick.Price}, true
		}
	}
	r.mu.RUnlock()

	// 3. Synthetic model.
	return Instrument{
		Symbol: synthSymbol(indexSymbol, strike, typ),
		Price:  syntheticPrice(spot, strike, typ),
	}, true
}

// ChainWindow returns the ATM +/- 3 strike rows derived from observed ticks,
// sorted by strike. Used by the dashboard and as skew-scan input when no
// injected snapshot exists.
func (r *Resolver) ChainWindow(indexSymbol string) []market.OptionChainEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spot, ok := r.spots[indexSymbol]
	if !ok || spot <= 0 {
		return nil
	}
	step := refdata.StrikeStep(indexSymbol)
	atm := atmStrike(indexSymbol, spot)
	lower := atm - chainWindowSize*step
	upper := atm + chainWindowSize*step

	var out []market.OptionChainEntry
	for sym, tick := range r.ticks {
		os, parsed := ParseOptionSymbol(sym)
		if !parsed || os.Strike < lower || os.Strike > upper {
			continue
		}
		out = append(out, market.OptionChainEntry{
			Strike:      os.Strike,
			Type:        os.Type,
			Price:       tick.Price,
			OI:          tick.OI,
			OIChangePct: tick.OIChangePct,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strike != out[j].Strike {
			return out[i].Strike < out[j].Strike
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func atmStrike(indexSymbol string, spot float64) int {
	step := refdata.StrikeStep(indexSymbol)
	return int(math.Round(spot/float64(step))) * step
}

func syntheticPrice(spot float64, strike int, typ string) float64 {
	intrinsic := spot - float64(strike)
	if typ == "PE" {
		intrinsic = float64(strike) - spot
	}
	return math.Max(synthPriceFloor, intrinsic+spot*synthPremiumPct)
}
