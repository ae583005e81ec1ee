package ledger

// Side is the signed direction of a position. Long/short arithmetic shares
// one code path through Dir() instead of duplicated per-side branches.
type Side int8

const (
	SideLong  Side = 1
	SideShort Side = -1
)

// Dir returns +1 for long, -1 for short, used to sign price differences.
func (s Side) Dir() float64 { return float64(s) }

func (s Side) String() string {
	if s == SideShort {
		return "SELL"
	}
	return "BUY"
}

// SideFromString maps persisted "BUY"/"SELL" onto Side.
func SideFromString(s string) Side {
	if s == "SELL" {
		return SideShort
	}
	return SideLong
}

// Position is one trade lifecycle for an instrument. Quantity only decreases
// toward zero through partial and full closes; RealizedPnL accumulates once
// per unit closed.
type Position struct {
	ID              string
	Instrument      string
	Quantity        int
	InitialQuantity int
	Side            Side
	EntryPrice      float64
	EntryTime       int64
	StopLoss        float64
	TakeProfit      float64
	Strategy        string

	RealizedPnL float64
	ExitPrice   float64
	ExitTime    int64
	ExitReason  string
}

// UnrealizedPnL values the remaining quantity at ltp.
func (p *Position) UnrealizedPnL(ltp float64) float64 {
	return (ltp - p.EntryPrice) * p.Side.Dir() * float64(p.Quantity)
}
