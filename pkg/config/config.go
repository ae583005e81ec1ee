package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the scalp core.
type Config struct {
	Port string

	// Market data bridge
	FeedURL      string
	IndexSymbols []string

	// Database
	DBPath string

	// Risk and sizing
	RiskPerTrade float64
	MaxQuantity  int

	// Exit management
	PartialTPFraction   float64
	TrailingEnabled     bool
	TrailTriggerATR     float64
	TrailRefEMA9        bool
	TPExtendATR         float64
	BreakEvenBufferFrac float64

	// Reference data
	GateConfigPath  string
	LotSizePath     string
	WeightsPath     string
	DefaultLotSize  int
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:                getEnv("PORT", "8080"),
		FeedURL:             getEnv("FEED_URL", "ws://localhost:9001/stream"),
		IndexSymbols:        splitAndTrim(getEnv("INDEX_SYMBOLS", "NSE_INDEX|Nifty 50,NSE_INDEX|Nifty Bank")),
		DBPath:              getEnv("DB_PATH", "./data/scalp.db"),
		RiskPerTrade:        getEnvFloat("RISK_PER_TRADE", 1000.0),
		MaxQuantity:         getEnvInt("MAX_QUANTITY", 1800),
		PartialTPFraction:   getEnvFloat("PARTIAL_TP_FRACTION", 0.5),
		TrailingEnabled:     getEnv("TRAILING_ENABLED", "true") == "true",
		TrailTriggerATR:     getEnvFloat("TRAIL_TRIGGER_ATR", 1.5),
		TrailRefEMA9:        getEnv("TRAIL_REF", "ema9") != "vwap",
		TPExtendATR:         getEnvFloat("TP_EXTEND_ATR", 1.5),
		BreakEvenBufferFrac: getEnvFloat("BREAKEVEN_BUFFER_FRAC", 0.0005),
		GateConfigPath:      getEnv("GATE_CONFIG_PATH", "./config/gates.yaml"),
		LotSizePath:         getEnv("LOT_SIZE_PATH", "./config/lot_sizes.json"),
		WeightsPath:         getEnv("WEIGHTS_PATH", "./config/index_weights.json"),
		DefaultLotSize:      getEnvInt("DEFAULT_LOT_SIZE", 1),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
