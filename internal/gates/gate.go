package gates

// Gate identifies one compiled-in pattern rule. The set is closed; rules are
// enabled or disabled through configuration, never added at runtime.
type Gate int

const (
	GateUnknown Gate = iota

	// Rejection at session extremes.
	GateStuffS
	GateCrushL
	GateRebid
	GateReset

	// Trend continuation.
	GateHitchL
	GateHitchS
	GateCloudL
	GateCloudS

	// Elasticity / mean reversion.
	GateRubberL
	GateRubberS
	GateSnapB
	GateSnapS

	// VWAP equilibrium.
	GateVwapRec
	GateVwapRej
	GateMagnet

	// Time and range.
	GateOrbL
	GateOrbS
	GateLateSq

	// Strategy variants.
	GateGapGoL
	GateGapGoS
	GateBaseHitL
	GateBaseHitS
	GateFashionL
	GateFashionS
	GateRetestL
	GateRetestS
	GateBacksideL
	GateBacksideS
	GateDayTwoL
	GateDayTwoS
	GateMiddayBreak
)

var gateNames = map[Gate]string{
	GateStuffS:      "STUFF_S",
	GateCrushL:      "CRUSH_L",
	GateRebid:       "REBID",
	GateReset:       "RESET",
	GateHitchL:      "HITCH_L",
	GateHitchS:      "HITCH_S",
	GateCloudL:      "CLOUD_L",
	GateCloudS:      "CLOUD_S",
	GateRubberL:     "RUBBER_L",
	GateRubberS:     "RUBBER_S",
	GateSnapB:       "SNAP_B",
	GateSnapS:       "SNAP_S",
	GateVwapRec:     "VWAP_REC",
	GateVwapRej:     "VWAP_REJ",
	GateMagnet:      "MAGNET",
	GateOrbL:        "ORB_L",
	GateOrbS:        "ORB_S",
	GateLateSq:      "LATE_SQ",
	GateGapGoL:      "GAP_GO_L",
	GateGapGoS:      "GAP_GO_S",
	GateBaseHitL:    "BASE_HIT_L",
	GateBaseHitS:    "BASE_HIT_S",
	GateFashionL:    "FASHION_L",
	GateFashionS:    "FASHION_S",
	GateRetestL:     "RETEST_L",
	GateRetestS:     "RETEST_S",
	GateBacksideL:   "BACKSIDE_L",
	GateBacksideS:   "BACKSIDE_S",
	GateDayTwoL:     "DAY2_L",
	GateDayTwoS:     "DAY2_S",
	GateMiddayBreak: "MIDDAY_BREAK",
}

func (g Gate) String() string {
	if name, ok := gateNames[g]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseGate maps a configured name back to its Gate. Returns GateUnknown for
// names outside the set.
func ParseGate(name string) Gate {
	for g, n := range gateNames {
		if n == name {
			return g
		}
	}
	return GateUnknown
}

// AllGates lists every gate in its fixed evaluation order.
func AllGates() []Gate {
	return []Gate{
		GateStuffS, GateCrushL, GateRebid, GateReset,
		GateHitchL, GateHitchS, GateCloudL, GateCloudS,
		GateRubberL, GateRubberS, GateSnapB, GateSnapS,
		GateVwapRec, GateVwapRej, GateMagnet,
		GateOrbL, GateOrbS, GateLateSq,
		GateGapGoL, GateGapGoS, GateBaseHitL, GateBaseHitS,
		GateFashionL, GateFashionS, GateRetestL, GateRetestS,
		GateBacksideL, GateBacksideS, GateDayTwoL, GateDayTwoS,
		GateMiddayBreak,
	}
}
