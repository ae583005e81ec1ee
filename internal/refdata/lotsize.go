package refdata

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"sync"
)

// LotSizeLookup resolves an instrument to its exchange lot size. The sizer
// depends on this interface so tests can substitute fixed tables.
type LotSizeLookup interface {
	LotSize(symbol string) int
}

// LotSizes is a file-backed lot-size table. Missing instruments fall back to
// the configured default (1 when unset).
type LotSizes struct {
	mu      sync.RWMutex
	bySym   map[string]int
	defSize int
}

type lotSizeRow struct {
	TradingSymbol string `json:"trading_symbol"`
	AssetSymbol   string `json:"asset_symbol"`
	LotSize       int    `json:"lot_size"`
	QtyMultiplier int    `json:"qty_multiplier"`
}

// NewLotSizes builds a lookup seeded from a JSON instrument file. A missing
// or unreadable file is not fatal; the lookup just returns the default.
func NewLotSizes(path string, defaultSize int) *LotSizes {
	if defaultSize < 1 {
		defaultSize = 1
	}
	ls := &LotSizes{
		bySym:   make(map[string]int),
		defSize: defaultSize,
	}
	if path == "" {
		return ls
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("lot sizes: %s not loaded: %v (default %d)", path, err, defaultSize)
		return ls
	}

	var rows []lotSizeRow
	if err := json.Unmarshal(data, &rows); err != nil {
		log.Printf("lot sizes: parse %s: %v (default %d)", path, err, defaultSize)
		return ls
	}

	for _, r := range rows {
		lot := r.LotSize
		if lot <= 0 {
			lot = r.QtyMultiplier
		}
		if lot <= 0 {
			lot = 1
		}
		if r.TradingSymbol != "" {
			ls.bySym[strings.ToUpper(r.TradingSymbol)] = lot
		}
		if r.AssetSymbol != "" {
			ls.bySym[strings.ToUpper(r.AssetSymbol)] = lot
		}
	}
	log.Printf("lot sizes: loaded %d instruments from %s", len(ls.bySym), path)
	return ls
}

// LotSize returns the lot size for a symbol, matching the full symbol first
// and then any known token contained in it.
func (l *LotSizes) LotSize(symbol string) int {
	if symbol == "" {
		return l.defSize
	}
	s := strings.ToUpper(symbol)

	l.mu.RLock()
	defer l.mu.RUnlock()
	if lot, ok := l.bySym[s]; ok {
		return lot
	}
	for key, lot := range l.bySym {
		if strings.Contains(s, key) {
			return lot
		}
	}
	return l.defSize
}

// Set overrides a single instrument's lot size (test and bootstrap helper).
func (l *LotSizes) Set(symbol string, lot int) {
	if lot < 1 {
		lot = 1
	}
	l.mu.Lock()
	l.bySym[strings.ToUpper(symbol)] = lot
	l.mu.Unlock()
}

// FixedLotSize is a LotSizeLookup returning one size for every instrument.
type FixedLotSize int

func (f FixedLotSize) LotSize(string) int {
	if f < 1 {
		return 1
	}
	return int(f)
}
