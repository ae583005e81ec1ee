package market

// OptionChainEntry is one strike row of an externally supplied option-chain
// snapshot. Read-only to the core.
type OptionChainEntry struct {
	Strike      int     `json:"strike"`
	Type        string  `json:"type"` // "CE" or "PE"
	Price       float64 `json:"ltp"`
	OI          float64 `json:"oi"`
	OIChangePct float64 `json:"oi_change_percent"` // vs previous snapshot
}

// OptionTick is a raw per-instrument option quote observed on the stream.
type OptionTick struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"ltp"`
	OI          float64 `json:"oi"`
	OIChangePct float64 `json:"oi_change_percent"`
	Timestamp   int64   `json:"ts"`
}
