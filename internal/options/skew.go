package options

import (
	"math"

	"scalp-core/internal/refdata"
)

const (
	// Wall detection thresholds for the danger-side scan.
	wallRatio           = 2.0
	wallOIThreshold     = 3_000_000.0
	wallChangeThreshold = 500_000.0
	wallScale           = 0.5

	// Global put/call OI-change band; outside it one direction is penalized.
	pcrChangeLow  = 0.7
	pcrChangeHigh = 1.3
	pcrScale      = 0.8

	dangerStrikes = 3
)

// SkewScale scans open-interest crowding on the danger side of spot and
// returns a risk scale in (0, 1]. A long (call) trade is endangered by
// strikes above spot, a short (put) trade by strikes below. Any flagged wall
// sets 0.5; a skewed global OI-change ratio multiplies a further 0.8 against
// the unfavorable direction. With no chain data the scale is 1.0.
func (r *Resolver) SkewScale(indexSymbol string, long bool) float64 {
	r.mu.RLock()
	spot, ok := r.spots[indexSymbol]
	entries := r.chain[indexSymbol]
	r.mu.RUnlock()
	if !ok || spot <= 0 {
		return 1.0
	}
	if len(entries) == 0 {
		entries = r.ChainWindow(indexSymbol)
	}
	if len(entries) == 0 {
		return 1.0
	}

	step := refdata.StrikeStep(indexSymbol)
	atm := atmStrike(indexSymbol, spot)

	// Index entries per strike.
	type strikeOI struct {
		callOI, putOI         float64
		callChange, putChange float64 // OI x pct-change/100, in contracts
	}
	byStrike := make(map[int]*strikeOI)
	var totalCallChange, totalPutChange float64
	for _, e := range entries {
		s := byStrike[e.Strike]
		if s == nil {
			s = &strikeOI{}
			byStrike[e.Strike] = s
		}
		change := e.OI * e.OIChangePct / 100
		if e.Type == "PE" {
			s.putOI = e.OI
			s.putChange = change
			totalPutChange += change
		} else {
			s.callOI = e.OI
			s.callChange = change
			totalCallChange += change
		}
	}

	scale := 1.0
	dir := 1
	if !long {
		dir = -1
	}
	for i := 1; i <= dangerStrikes; i++ {
		s := byStrike[atm+dir*i*step]
		if s == nil {
			continue
		}

		// Zero-OI floor keeps the ratio defined on illiquid strikes.
		ratio := s.putOI / math.Max(1, s.callOI)

		var heavy bool
		var dangerOI, changeDiff float64
		if long {
			// Calls written above spot cap the upside.
			heavy = ratio <= 1/wallRatio
			dangerOI = s.callOI
			changeDiff = s.callChange - s.putChange
		} else {
			heavy = ratio >= wallRatio
			dangerOI = s.putOI
			changeDiff = s.putChange - s.callChange
		}

		wall := (heavy && dangerOI > wallOIThreshold) || changeDiff > wallChangeThreshold
		if wall {
			scale = math.Min(scale, wallScale)
		}
	}

	// Global sentiment: heavy put building penalizes longs, heavy call
	// building penalizes shorts. Skipped when the snapshot carries no
	// change data at all.
	if totalPutChange != 0 || totalCallChange != 0 {
		changeRatio := totalPutChange / math.Max(1, totalCallChange)
		if long && changeRatio > pcrChangeHigh {
			scale *= pcrScale
		}
		if !long && changeRatio < pcrChangeLow {
			scale *= pcrScale
		}
	}

	return scale
}
