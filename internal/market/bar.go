package market

import "time"

// Bar is a fixed-window OHLCV aggregate for one symbol. Bars are trusted once
// received; no validation happens downstream.
type Bar struct {
	Symbol    string  `json:"symbol"`
	StartTime int64   `json:"start_time"` // epoch millis
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	VWAP      float64 `json:"vwap"`
	PCR       float64 `json:"pcr"` // put-call ratio annotation, 1.0 when absent
}

// IST is the exchange session zone. A fixed offset avoids depending on the
// host tzdata; the exchange does not observe DST.
var IST = time.FixedZone("IST", 5*3600+30*60)

// SessionTime converts the bar start to exchange wall-clock time.
func (b Bar) SessionTime() time.Time {
	return time.UnixMilli(b.StartTime).In(IST)
}

// AuctionState classifies the current auction per symbol. The classification
// is supplied by an external collaborator; this core only reads it.
type AuctionState int

const (
	Rotation AuctionState = iota
	DiscoveryUp
	DiscoveryDown
	RejectionUp
	RejectionDown
)

// IsDiscovery reports whether price is in directional discovery.
func (s AuctionState) IsDiscovery() bool {
	return s == DiscoveryUp || s == DiscoveryDown
}

// IsRejection reports whether the auction is rejecting an extreme.
func (s AuctionState) IsRejection() bool {
	return s == RejectionUp || s == RejectionDown
}

func (s AuctionState) String() string {
	switch s {
	case DiscoveryUp:
		return "DISCOVERY_UP"
	case DiscoveryDown:
		return "DISCOVERY_DOWN"
	case RejectionUp:
		return "REJECTION_UP"
	case RejectionDown:
		return "REJECTION_DOWN"
	default:
		return "ROTATION"
	}
}

// ParseAuctionState maps the feed's string form onto the enum. Unknown
// values fall back to rotation, the neutral state.
func ParseAuctionState(s string) AuctionState {
	switch s {
	case "DISCOVERY_UP":
		return DiscoveryUp
	case "DISCOVERY_DOWN":
		return DiscoveryDown
	case "REJECTION_UP":
		return RejectionUp
	case "REJECTION_DOWN":
		return RejectionDown
	default:
		return Rotation
	}
}

// BreadthSnapshot holds market-wide advance/decline counts from the feed.
type BreadthSnapshot struct {
	Advances  int `json:"advances"`
	Declines  int `json:"declines"`
	Unchanged int `json:"unchanged"`
	Total     int `json:"total"`
}

// Ratio returns advances/declines, degenerating to the advance count when
// nothing has declined yet.
func (s BreadthSnapshot) Ratio() float64 {
	if s.Declines == 0 {
		return float64(s.Advances)
	}
	return float64(s.Advances) / float64(s.Declines)
}
