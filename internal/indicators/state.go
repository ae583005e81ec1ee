package indicators

import (
	"math"

	"scalp-core/internal/market"
)

const (
	atrPeriod    = 14
	adxPeriod    = 14
	volumeWindow = 50
)

// State holds the rolling technical values for one symbol. It is mutated only
// by sequential Update calls for that symbol; out-of-order bars corrupt the
// smoothed averages, so callers must feed bars in non-decreasing start-time
// order (documented precondition, not a recoverable error).
type State struct {
	EMA9   float64
	EMA12  float64
	EMA20  float64
	EMA26  float64
	EMA50  float64
	EMA200 float64

	MACD           float64
	MACDSignal     float64
	PrevMACD       float64
	PrevMACDSignal float64
	PrevEMA9       float64

	ATR float64
	ADX float64

	EVWMA5  float64
	EVWMA20 float64

	SessionOpen float64
	SessionHigh float64
	SessionLow  float64

	// Prior-day stats, set at the session boundary by an external trigger.
	PrevDayHigh     float64
	PrevDayLow      float64
	PrevDayClose    float64
	DayTwoCandidate bool

	AvgVolume float64

	// Wilder smoothing internals.
	smoothTR      float64
	smoothPlusDM  float64
	smoothMinusDM float64

	recentVolumes []int64
	prevHigh      float64
	prevLow       float64
	prevClose     float64
	barCount      int
	initialized   bool
}

// Bars returns how many bars have been applied since the last session reset.
func (s *State) Bars() int { return s.barCount }

func (s *State) update(bar market.Bar) {
	close := bar.Close
	high := bar.High
	low := bar.Low

	// Session extremes are running max/min across the trading session.
	if s.SessionHigh == 0 || high > s.SessionHigh {
		s.SessionHigh = high
	}
	if s.SessionLow == 0 || low < s.SessionLow {
		s.SessionLow = low
	}

	s.recentVolumes = append(s.recentVolumes, bar.Volume)
	if len(s.recentVolumes) > volumeWindow {
		s.recentVolumes = s.recentVolumes[1:]
	}
	var volSum int64
	for _, v := range s.recentVolumes {
		volSum += v
	}
	s.AvgVolume = float64(volSum) / float64(len(s.recentVolumes))

	s.barCount++

	if !s.initialized {
		// Cold start: seed every average with the bar's own values.
		s.SessionOpen = bar.Open
		s.EMA9, s.EMA12, s.EMA20, s.EMA26, s.EMA50, s.EMA200 = close, close, close, close, close, close
		s.EVWMA5, s.EVWMA20 = close, close
		s.ATR = high - low
		s.smoothTR = high - low
		s.prevHigh, s.prevLow, s.prevClose = high, low, close
		s.initialized = true
		return
	}

	s.PrevEMA9 = s.EMA9
	s.EMA9 = ema(close, s.EMA9, 9)
	s.EMA12 = ema(close, s.EMA12, 12)
	s.EMA20 = ema(close, s.EMA20, 20)
	s.EMA26 = ema(close, s.EMA26, 26)
	s.EMA50 = ema(close, s.EMA50, 50)
	s.EMA200 = ema(close, s.EMA200, 200)

	s.PrevMACD = s.MACD
	s.PrevMACDSignal = s.MACDSignal
	s.MACD = s.EMA12 - s.EMA26
	s.MACDSignal = ema(s.MACD, s.MACDSignal, 9)

	s.updateEVWMA(close, bar.Volume)
	s.updateDirectional(high, low, close)

	s.prevHigh, s.prevLow, s.prevClose = high, low, close
}

// updateEVWMA blends the elastic volume-weighted averages toward the latest
// price. The period volume floor of max(avgVol*period, vol*period) keeps the
// divisor from collapsing on thin bars.
func (s *State) updateEVWMA(close float64, volume int64) {
	v := float64(volume)
	for _, p := range [...]struct {
		period float64
		dst    *float64
	}{{5, &s.EVWMA5}, {20, &s.EVWMA20}} {
		periodVol := math.Max(s.AvgVolume*p.period, v*p.period)
		if periodVol <= 0 {
			continue
		}
		*p.dst = (v*close + (periodVol-v)*(*p.dst)) / periodVol
	}
}

// updateDirectional advances ATR and ADX using Wilder's smoothing,
// (prev*(n-1)+cur)/n.
func (s *State) updateDirectional(high, low, close float64) {
	tr := math.Max(high-low, math.Max(math.Abs(high-s.prevClose), math.Abs(low-s.prevClose)))
	s.ATR = wilder(s.ATR, tr, atrPeriod)

	upMove := high - s.prevHigh
	downMove := s.prevLow - low
	plusDM, minusDM := 0.0, 0.0
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}

	s.smoothTR = wilder(s.smoothTR, tr, adxPeriod)
	s.smoothPlusDM = wilder(s.smoothPlusDM, plusDM, adxPeriod)
	s.smoothMinusDM = wilder(s.smoothMinusDM, minusDM, adxPeriod)

	if s.smoothTR <= 0 {
		return
	}
	plusDI := 100 * s.smoothPlusDM / s.smoothTR
	minusDI := 100 * s.smoothMinusDM / s.smoothTR
	diSum := plusDI + minusDI
	if diSum <= 0 {
		return
	}
	dx := 100 * math.Abs(plusDI-minusDI) / diSum
	s.ADX = wilder(s.ADX, dx, adxPeriod)
}

func ema(current, previous float64, period int) float64 {
	multiplier := 2.0 / float64(period+1)
	return (current-previous)*multiplier + previous
}

func wilder(previous, current float64, period int) float64 {
	return (previous*float64(period-1) + current) / float64(period)
}
