package sizer

import (
	"log"
	"math"

	"scalp-core/internal/gates"
	"scalp-core/internal/ledger"
	"scalp-core/internal/options"
	"scalp-core/internal/refdata"
)

// Option entries use percentage levels off the premium instead of the
// index-level stop distance.
const (
	optionStopPct   = 0.10
	optionTargetPct = 0.20
)

// Sizer turns a candidate signal into a concrete position: instrument
// resolution for index underlyings, risk-budget quantity with lot rounding,
// OI-skew scaling, and the max-quantity cap.
type Sizer struct {
	Risk     float64 // risk budget per trade, currency units
	MaxQty   int     // hard quantity cap, rounded down to a lot multiple
	Lots     refdata.LotSizeLookup
	Resolver *options.Resolver
	Ledger   *ledger.Ledger
}

// Execute realizes the signal into a position. Returns the traded
// instrument and true when a position was opened; false when the execution
// was abandoned (unresolvable option) or suppressed (position already open).
func (s *Sizer) Execute(sig *gates.Signal) (string, bool) {
	long := sig.Long()

	instrument := sig.Underlying
	entry, stop, target := sig.Entry, sig.Stop, sig.Target
	side := ledger.SideLong
	if !long {
		side = ledger.SideShort
	}

	if options.IsIndex(sig.Underlying) {
		inst, ok := s.Resolver.ResolveATM(sig.Underlying, long)
		if !ok {
			log.Printf("execution abandoned: no ATM option for %s (%s)", sig.Underlying, sig.GateName)
			return "", false
		}
		// Options are always bought; the CE/PE choice already encodes the
		// directional intent. Levels come off the premium.
		instrument = inst.Symbol
		entry = inst.Price
		stop = entry * (1 - optionStopPct)
		target = entry * (1 + optionTargetPct)
		side = ledger.SideLong

		sig.OIScale = s.Resolver.SkewScale(sig.Underlying, long)
	}

	lot := s.Lots.LotSize(instrument)
	if lot < 1 {
		lot = 1
	}
	qty := s.quantity(entry, stop, lot, sig.OIScale)
	if qty <= 0 {
		return "", false
	}

	if !s.Ledger.Add(instrument, qty, side, entry, sig.CreatedAt, stop, target, sig.GateName) {
		return "", false
	}
	return instrument, true
}

// quantity sizes off the risk budget: floor(risk / stop distance), at least
// one lot, rounded down to a lot multiple, capped, then scaled by the
// OI-skew factor with the same lot discipline.
func (s *Sizer) quantity(entry, stop float64, lot int, scale float64) int {
	perUnit := math.Abs(entry - stop)
	if eps := entry * 1e-4; perUnit < eps {
		perUnit = eps
	}
	qty := int(s.Risk / perUnit)
	if qty < lot {
		qty = lot
	}
	qty = qty / lot * lot

	if maxQty := s.MaxQty / lot * lot; maxQty > 0 && qty > maxQty {
		qty = maxQty
	}

	if scale > 0 && scale < 1 {
		qty = int(float64(qty)*scale) / lot * lot
		if qty < lot {
			qty = lot
		}
	}
	return qty
}
