package refdata

import "strings"

// Strike steps are per-index constants: the bank index trades 100-point
// strikes, everything else 50.
const (
	defaultStrikeStep = 50
	bankStrikeStep    = 100
)

// StrikeStep returns the strike spacing for an index symbol.
func StrikeStep(indexSymbol string) int {
	if strings.Contains(strings.ToLower(indexSymbol), "bank") {
		return bankStrikeStep
	}
	return defaultStrikeStep
}

// RoundStep returns the psychological round-number step used by the
// strong-level test: 50 for the bank-index family, 100 otherwise.
func RoundStep(symbol string) float64 {
	if strings.Contains(strings.ToLower(symbol), "bank") {
		return 50
	}
	return 100
}
