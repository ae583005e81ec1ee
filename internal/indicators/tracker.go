package indicators

import (
	"sync"

	"scalp-core/internal/market"
)

// Tracker maintains per-symbol rolling indicator state from the bar stream.
// Calls for the same symbol must be serialized by the caller; calls for
// different symbols may run concurrently.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewTracker builds an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]*State)}
}

// Update applies a bar and returns the symbol's state. O(1) amortized.
func (t *Tracker) Update(bar market.Bar) *State {
	st := t.state(bar.Symbol)
	st.update(bar)
	return st
}

// State returns the current state for a symbol, or nil if no bar has arrived.
func (t *Tracker) State(symbol string) *State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[symbol]
}

func (t *Tracker) state(symbol string) *State {
	t.mu.RLock()
	st, ok := t.states[symbol]
	t.mu.RUnlock()
	if ok {
		return st
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok = t.states[symbol]; ok {
		return st
	}
	st = &State{}
	t.states[symbol] = st
	return st
}

// BeginSession resets session-scoped values at a new trading session and
// rolls the previous session into the prior-day stats. The day-two flag is
// set when the previous session's range expanded beyond the volatility
// threshold, marking the symbol as a range-continuation candidate.
func (t *Tracker) BeginSession(symbol string) {
	st := t.state(symbol)

	if st.initialized {
		prevRange := st.SessionHigh - st.SessionLow
		st.PrevDayHigh = st.SessionHigh
		st.PrevDayLow = st.SessionLow
		st.PrevDayClose = st.prevClose
		st.DayTwoCandidate = st.ATR > 0 && prevRange > 4*st.ATR
	}

	st.SessionOpen = 0
	st.SessionHigh = 0
	st.SessionLow = 0
	st.barCount = 0
	st.initialized = false
}

// SetPreviousDay overrides prior-day stats, used when reference data supplies
// them directly instead of deriving from the observed previous session.
func (t *Tracker) SetPreviousDay(symbol string, high, low, close float64, dayTwo bool) {
	st := t.state(symbol)
	st.PrevDayHigh = high
	st.PrevDayLow = low
	st.PrevDayClose = close
	st.DayTwoCandidate = dayTwo
}
