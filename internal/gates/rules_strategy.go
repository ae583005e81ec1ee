package gates

// Strategy-variant rules. These lean on prior-day context and intraday
// structure rather than single-bar shapes.

// gapGoLong trades the first consolidation breakout of a session that gapped
// above the prior day's high. Morning only.
func gapGoLong(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if c.minute >= morningEndMinute || ind.PrevDayHigh <= 0 || ind.SessionOpen <= ind.PrevDayHigh {
		return candidate{}, false
	}
	hi, lo, ok := c.windowRange(5)
	if !ok || hi-lo >= 1.0*c.atr || b.Close <= hi {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: lo - 0.2*c.atr, target: b.Close + 2.5*c.atr}, true
}

func gapGoShort(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if c.minute >= morningEndMinute || ind.PrevDayLow <= 0 || ind.SessionOpen >= ind.PrevDayLow {
		return candidate{}, false
	}
	hi, lo, ok := c.windowRange(5)
	if !ok || hi-lo >= 1.0*c.atr || b.Close >= lo {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: hi + 0.2*c.atr, target: b.Close - 2.5*c.atr}, true
}

// baseHitLong buys a MACD cross that fires out of a flat base.
func baseHitLong(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if ind.PrevMACD > ind.PrevMACDSignal || ind.MACD <= ind.MACDSignal {
		return candidate{}, false
	}
	hi, lo, ok := c.windowRange(6)
	if !ok || hi-lo >= 1.5*c.atr {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: lo - 0.2*c.atr, target: b.Close + 2.0*c.atr}, true
}

func baseHitShort(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if ind.PrevMACD < ind.PrevMACDSignal || ind.MACD >= ind.MACDSignal {
		return candidate{}, false
	}
	hi, lo, ok := c.windowRange(6)
	if !ok || hi-lo >= 1.5*c.atr {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: hi + 0.2*c.atr, target: b.Close - 2.0*c.atr}, true
}

// fashionLong takes the late EMA9 reclaim above VWAP after the morning
// rotation settles.
func fashionLong(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if c.minute < fashionStartMinute {
		return candidate{}, false
	}
	prev := c.prev()
	if prev.Close == 0 || prev.Close >= ind.PrevEMA9 || b.Close <= ind.EMA9 || b.Close <= b.VWAP {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.VWAP - 0.1*c.atr, target: b.Close + 2.0*c.atr}, true
}

func fashionShort(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if c.minute < fashionStartMinute {
		return candidate{}, false
	}
	prev := c.prev()
	if prev.Close == 0 || prev.Close <= ind.PrevEMA9 || b.Close >= ind.EMA9 || b.Close >= b.VWAP {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.VWAP + 0.1*c.atr, target: b.Close - 2.0*c.atr}, true
}

// retestLong buys the successful retest of a broken prior-day high: the
// session already traded above it, the bar dips back to the level and closes
// above it again.
func retestLong(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if ind.PrevDayHigh <= 0 || ind.SessionHigh <= ind.PrevDayHigh {
		return candidate{}, false
	}
	if b.Low > ind.PrevDayHigh+0.2*c.atr || b.Close <= ind.PrevDayHigh {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: ind.PrevDayHigh - 0.5*c.atr, target: b.Close + 2.5*c.atr}, true
}

func retestShort(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if ind.PrevDayLow <= 0 || ind.SessionLow >= ind.PrevDayLow {
		return candidate{}, false
	}
	if b.High < ind.PrevDayLow-0.2*c.atr || b.Close >= ind.PrevDayLow {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: ind.PrevDayLow + 0.5*c.atr, target: b.Close - 2.5*c.atr}, true
}

// backsideLong plays the reversal from below VWAP once a higher low prints,
// targeting the magnet back to VWAP.
func backsideLong(c *ruleContext) (candidate, bool) {
	b := c.bar
	prev := c.prev()
	if prev.Close == 0 || b.Close >= b.VWAP || b.Low <= prev.Low || b.Close <= b.Open {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.Low - 0.25*c.atr, target: b.VWAP}, true
}

func backsideShort(c *ruleContext) (candidate, bool) {
	b := c.bar
	prev := c.prev()
	if prev.Close == 0 || b.Close <= b.VWAP || b.High >= prev.High || b.Close >= b.Open {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: b.High + 0.25*c.atr, target: b.VWAP}, true
}

// dayTwoLong continues a high-volatility prior day through its high. The
// day-two flag is set at the session boundary when the prior day's range
// exceeded four ATRs.
func dayTwoLong(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if !ind.DayTwoCandidate || ind.PrevDayHigh <= 0 || b.Close <= ind.PrevDayHigh || c.volRatio <= 1.2 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: ind.PrevDayHigh - 0.5*c.atr, target: b.Close + 3.0*c.atr}, true
}

func dayTwoShort(c *ruleContext) (candidate, bool) {
	b, ind := c.bar, c.ind
	if !ind.DayTwoCandidate || ind.PrevDayLow <= 0 || b.Close >= ind.PrevDayLow || c.volRatio <= 1.2 {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: ind.PrevDayLow + 0.5*c.atr, target: b.Close - 3.0*c.atr}, true
}

// middayBreak buys a tight midday coil resolving upward above VWAP, with the
// coil top sitting near a strong prior reference.
func middayBreak(c *ruleContext) (candidate, bool) {
	b := c.bar
	if c.minute < middayStartMinute || c.minute >= middayEndMinute {
		return candidate{}, false
	}
	hi, lo, ok := c.windowRange(12)
	if !ok || hi-lo >= 2.0*c.atr || b.Close <= hi || b.Close <= b.VWAP {
		return candidate{}, false
	}
	if !c.strongNear(hi) {
		return candidate{}, false
	}
	return candidate{entry: b.Close, stop: lo, target: b.Close + 2.5*c.atr}, true
}
