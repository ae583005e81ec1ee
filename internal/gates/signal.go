package gates

import (
	"sync"
)

// Status is the signal lifecycle phase. Transitions run strictly forward:
// Active -> PendingClose -> Closed.
type Status int

const (
	StatusActive Status = iota
	StatusPendingClose
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusPendingClose:
		return "PENDING_CLOSE"
	case StatusClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Signal is a candidate trade produced by one gate for one underlying.
// Entry, stop, and target are underlying-level prices; the sizer may replace
// them when converting to an option instrument.
type Signal struct {
	Underlying string  `json:"underlying"`
	Gate       Gate    `json:"-"`
	GateName   string  `json:"gate"`
	CreatedAt  int64   `json:"created_at"`
	Entry      float64 `json:"entry"`
	Stop       float64 `json:"stop"`
	Target     float64 `json:"target"`
	Score      float64 `json:"score"`
	OIScale    float64 `json:"oi_scale"`

	mu     sync.Mutex
	status Status
	reason string
}

// NewSignal builds an active signal for a gate firing.
func NewSignal(underlying string, gate Gate, createdAt int64, entry, stop, target, score float64) *Signal {
	return &Signal{
		Underlying: underlying,
		Gate:       gate,
		GateName:   gate.String(),
		CreatedAt:  createdAt,
		Entry:      entry,
		Stop:       stop,
		Target:     target,
		Score:      score,
		OIScale:    1.0,
	}
}

// Long reports the directional intent inferred from target versus entry.
func (s *Signal) Long() bool {
	return s.Target > s.Entry
}

// Status returns the current phase and, for PendingClose, its reason.
func (s *Signal) Status() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.reason
}

// MarkPendingClose moves Active -> PendingClose with the exit reason the
// ledger will stamp when it resolves the close. Later calls are ignored so
// the first detected technical exit wins.
func (s *Signal) MarkPendingClose(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return false
	}
	s.status = StatusPendingClose
	s.reason = reason
	return true
}

// MarkClosed finalizes the signal. Valid from any earlier phase.
func (s *Signal) MarkClosed() {
	s.mu.Lock()
	s.status = StatusClosed
	s.mu.Unlock()
}
