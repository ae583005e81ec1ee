package options

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	indexPrefix  = "NSE_INDEX|"
	optionPrefix = "NSE|OPTION|"
	synthPrefix  = "NSE_SYNTH|"
)

// IsIndex reports whether a symbol names an index underlying.
func IsIndex(symbol string) bool {
	return strings.HasPrefix(symbol, indexPrefix)
}

// OptionSymbol is the parsed identity of a listed option instrument.
type OptionSymbol struct {
	Strike int
	Type   string // "CE" or "PE"
}

// ParseOptionSymbol parses "NSE|OPTION|<NAME>_<STRIKE>_<CE|PE>". It returns
// false for anything that is not a well-formed option key.
func ParseOptionSymbol(symbol string) (OptionSymbol, bool) {
	if !strings.HasPrefix(symbol, optionPrefix) {
		return OptionSymbol{}, false
	}
	parts := strings.Split(strings.TrimPrefix(symbol, optionPrefix), "_")
	if len(parts) != 3 {
		return OptionSymbol{}, false
	}
	strike, err := strconv.Atoi(parts[1])
	if err != nil {
		return OptionSymbol{}, false
	}
	typ := parts[2]
	if typ != "CE" && typ != "PE" {
		return OptionSymbol{}, false
	}
	return OptionSymbol{Strike: strike, Type: typ}, true
}

// baseName normalizes an index symbol to the option underlying name, e.g.
// "NSE_INDEX|Nifty 50" -> "NIFTY", "NSE_INDEX|Nifty Bank" -> "BANKNIFTY".
func baseName(indexSymbol string) string {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimPrefix(indexSymbol, indexPrefix), " ", ""))
	switch name {
	case "NIFTY50":
		return "NIFTY"
	case "NIFTYBANK", "BANKNIFTY":
		return "BANKNIFTY"
	}
	return name
}

func synthSymbol(indexSymbol string, strike int, typ string) string {
	return fmt.Sprintf("%s%s%d%s", synthPrefix, baseName(indexSymbol), strike, typ)
}
