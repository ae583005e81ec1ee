package gates

import (
	"scalp-core/internal/indicators"
	"scalp-core/internal/market"
)

// ruleContext carries everything a rule may inspect for one bar. Built once
// per evaluation and shared read-only across the rule set.
type ruleContext struct {
	bar     market.Bar
	ind     *indicators.State
	hist    []market.Bar // recent window, oldest first, current bar last
	auction market.AuctionState

	atr      float64 // floored ATR
	volRatio float64 // bar volume / average volume
	minute   int     // minutes since midnight, session clock

	orbHigh, orbLow float64 // opening range, zero until the window completes
	cloudAbove      int     // consecutive closes above EVWMA20
	cloudBelow      int

	strongNear func(price float64) bool
}

func (c *ruleContext) prev() market.Bar {
	if len(c.hist) < 2 {
		return market.Bar{}
	}
	return c.hist[len(c.hist)-2]
}

// windowRange returns the high, low of the n bars before the current one.
func (c *ruleContext) windowRange(n int) (high, low float64, ok bool) {
	if len(c.hist) < n+1 {
		return 0, 0, false
	}
	window := c.hist[len(c.hist)-n-1 : len(c.hist)-1]
	high, low = window[0].High, window[0].Low
	for _, b := range window[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, true
}

// candidate holds a rule's raw output before scoring and cooldown checks.
type candidate struct {
	entry, stop, target float64
}

type ruleFunc func(c *ruleContext) (candidate, bool)

// rules maps each gate to its detection function. Evaluation order comes
// from AllGates, not map iteration.
var rules = map[Gate]ruleFunc{
	GateStuffS:      stuffShort,
	GateCrushL:      crushLong,
	GateRebid:       rebid,
	GateReset:       reset,
	GateHitchL:      hitchLong,
	GateHitchS:      hitchShort,
	GateCloudL:      cloudLong,
	GateCloudS:      cloudShort,
	GateRubberL:     rubberLong,
	GateRubberS:     rubberShort,
	GateSnapB:       snapBuy,
	GateSnapS:       snapSell,
	GateVwapRec:     vwapReclaim,
	GateVwapRej:     vwapReject,
	GateMagnet:      magnet,
	GateOrbL:        orbLong,
	GateOrbS:        orbShort,
	GateLateSq:      lateSqueeze,
	GateGapGoL:      gapGoLong,
	GateGapGoS:      gapGoShort,
	GateBaseHitL:    baseHitLong,
	GateBaseHitS:    baseHitShort,
	GateFashionL:    fashionLong,
	GateFashionS:    fashionShort,
	GateRetestL:     retestLong,
	GateRetestS:     retestShort,
	GateBacksideL:   backsideLong,
	GateBacksideS:   backsideShort,
	GateDayTwoL:     dayTwoLong,
	GateDayTwoS:     dayTwoShort,
	GateMiddayBreak: middayBreak,
}

// Session clock marks, minutes since midnight.
const (
	sessionOpenMinute  = 9*60 + 15
	orbEndMinute       = 9*60 + 30
	morningEndMinute   = 10*60 + 30
	fashionStartMinute = 11 * 60
	middayStartMinute  = 12 * 60
	middayEndMinute    = 14 * 60
	lateStartMinute    = 14*60 + 45
	sessionCloseMinute = 15*60 + 15
)

// Group 1: rejection at session extremes.

// stuffShort fades a failed push through the session high: the bar tags the
// high, leaves a dominant upper wick, and closes back under VWAP on volume.
func stuffShort(c *ruleContext) (candidate, bool) {
	b := c.bar
	rng := b.High - b.Low
	if rng <= 0 || b.High < c.ind.SessionHigh {
		return candidate{}, false
	}
	// A dominant upper wick or an external rejection-up classification both
	// count as confirmation of the failed push.
	upperWick := b.High - max(b.Open, b.Close)
	if upperWick <= 0.3*rng && c.auction != market.RejectionUp {
		return candidate{}, false
	}
	if b.PCR >= 1.1 || c.volRatio <= 1.2 || b.Close >= b.VWAP {
		return candidate{}, false
	}
	return candidate{entry: b.Low, stop: b.High + 0.25*c.atr, target: b.Close - 2.1*c.atr}, true
}

// crushLong mirrors stuffShort at the session low.
func crushLong(c *ruleContext) (candidate, bool) {
	b := c.bar
	rng := b.High - b.Low
	if rng <= 0 || b.Low > c.ind.SessionLow {
		return candidate{}, false
	}
	lowerWick := min(b.Open, b.Close) - b.Low
	if lowerWick <= 0.3*rng && c.auction != market.RejectionDown {
		return candidate{}, false
	}
	if b.PCR <= 0.9 || c.volRatio <= 1.2 || b.Close <= c.ind.EMA20 {
		return candidate{}, false
	}
	return candidate{entry: b.High, stop: b.Low - 0.25*c.atr, target: b.Close + 2.1*c.atr}, true
}

// rebid buys an aggressive defense of the session low on a volume burst.
func rebid(c *ruleContext) (candidate, bool) {
	b := c.bar
	if c.volRatio <= 2.0 || b.Close <= b.Open || b.Low > c.ind.SessionLow+0.1*c.atr {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.Low - 0.1*c.atr, target: b.Close + 1.5*c.atr}, true
}

// reset sells an aggressive rejection of the session high on a volume burst.
func reset(c *ruleContext) (candidate, bool) {
	b := c.bar
	if c.volRatio <= 2.0 || b.Close >= b.Open || b.High < c.ind.SessionHigh-0.1*c.atr {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.High + 0.1*c.atr, target: b.Close - 1.5*c.atr}, true
}

// Group 2: trend continuation.

// hitchLong buys a pullback to EMA20 inside an established uptrend.
func hitchLong(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if b.Close <= ind.EMA200 || ind.EMA20 <= ind.EMA50 {
		return candidate{}, false
	}
	if b.Low > ind.EMA20 || b.Close <= ind.EMA20 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.Low - 0.2*c.atr, target: b.Close + 2.5*c.atr}, true
}

func hitchShort(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if b.Close >= ind.EMA200 || ind.EMA20 >= ind.EMA50 {
		return candidate{}, false
	}
	if b.High < ind.EMA20 || b.Close >= ind.EMA20 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.High + 0.2*c.atr, target: b.Close - 2.5*c.atr}, true
}

// cloudLong rides a persistent hold above the elastic average: ten straight
// closes above EVWMA20 with the fast elastic average leading.
func cloudLong(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if c.cloudAbove < 10 || b.Close <= ind.EVWMA5 || ind.EVWMA5 <= ind.EVWMA20 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: ind.EVWMA20, target: b.Close + 3.0*c.atr}, true
}

// cloudShort is the mirror rule. It ships disabled in the default gate
// config and only runs when explicitly enabled.
func cloudShort(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if c.cloudBelow < 10 || b.Close >= ind.EVWMA5 || ind.EVWMA5 >= ind.EVWMA20 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: ind.EVWMA20, target: b.Close - 3.0*c.atr}, true
}

// Group 3: elasticity.

// rubberLong buys a 1.2% stretch below the fast elastic average once the bar
// turns back up.
func rubberLong(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if ind.EVWMA5 <= 0 || b.Close >= ind.EVWMA5*(1-0.012) || b.Close <= b.Open {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.Low - 0.25*c.atr, target: b.Close + 2.0*c.atr}, true
}

func rubberShort(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if ind.EVWMA5 <= 0 || b.Close <= ind.EVWMA5*(1+0.012) || b.Close >= b.Open {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.High + 0.25*c.atr, target: b.Close - 2.0*c.atr}, true
}

// snapBuy enters on the close snapping back above the fast elastic average
// with participation.
func snapBuy(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	prev := c.prev()
	if prev.Close == 0 || prev.Close >= ind.EVWMA5 || b.Close <= ind.EVWMA5 || c.volRatio <= 1.5 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.Low - 0.2*c.atr, target: b.Close + 1.8*c.atr}, true
}

func snapSell(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	prev := c.prev()
	if prev.Close == 0 || prev.Close <= ind.EVWMA5 || b.Close >= ind.EVWMA5 || c.volRatio <= 1.5 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.High + 0.2*c.atr, target: b.Close - 1.8*c.atr}, true
}

// Group 4: VWAP equilibrium.

// vwapReclaim buys the first close back above VWAP while the larger trend
// (EMA200) agrees.
func vwapReclaim(c *ruleContext) (candidate, bool) {
	b := c.bar
	prev := c.prev()
	if prev.Close == 0 || prev.VWAP == 0 {
		return candidate{}, false
	}
	if prev.Close >= prev.VWAP || b.Close <= b.VWAP || b.Close <= c.ind.EMA200 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.VWAP - 0.1*c.atr, target: b.Close + 2.0*c.atr}, true
}

func vwapReject(c *ruleContext) (candidate, bool) {
	b := c.bar
	prev := c.prev()
	if prev.Close == 0 || prev.VWAP == 0 {
		return candidate{}, false
	}
	if prev.Close <= prev.VWAP || b.Close >= b.VWAP || b.Close >= c.ind.EMA200 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.VWAP + 0.1*c.atr, target: b.Close - 2.0*c.atr}, true
}

// magnet fades an extreme VWAP deviation on a volume spike, targeting the
// pull back to VWAP itself.
func magnet(c *ruleContext) (candidate, bool) {
	b := c.bar
	if b.VWAP <= 0 || c.volRatio <= 2.5 {
		return candidate{}, false
	}
	dist := (b.Close - b.VWAP) / b.VWAP
	if dist > 0.015 {
		return candidate{entry: b.Close, stop: b.Close + 1.5*c.atr, target: b.VWAP}, true
	}
	if dist < -0.015 {
		return candidate{entry: b.Close, stop: b.Close - 1.5*c.atr, target: b.VWAP}, true
	}
	return candidate{}, false
}

// Group 5: time and range.

// orbLong trades the break of the opening-range high once the range window
// has completed.
func orbLong(c *ruleContext) (candidate, bool) {
	b := c.bar
	if c.minute < orbEndMinute || c.orbHigh <= 0 || b.Close <= c.orbHigh || b.PCR <= 0.8 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: (c.orbHigh + c.orbLow) / 2, target: b.Close + 4.0*c.atr}, true
}

func orbShort(c *ruleContext) (candidate, bool) {
	b := c.bar
	if c.minute < orbEndMinute || c.orbLow <= 0 || b.Close >= c.orbLow || b.PCR >= 1.2 || c.volRatio <= 1.2 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: c.orbLow + 0.5*c.atr, target: b.Close - 4.0*c.atr}, true
}

// lateSqueeze joins an end-of-day volume blowout in the direction of the bar.
func lateSqueeze(c *ruleContext) (candidate, bool) {
	b := c.bar
	if c.minute < lateStartMinute || c.volRatio <= 5.0 || b.Close == b.Open {
		return candidate{}, false
	}
	if b.Close > b.Open {
		return candidate{entry: b.Close, stop: b.Low - 0.25*c.atr, target: b.Close + 2.0*c.atr}, true
	}
	return candidate{entry: b.Close, stop: b.High + 0.25*c.atr, target: b.Close - 2.0*c.atr}, true
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
