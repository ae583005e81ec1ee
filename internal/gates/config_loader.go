package gates

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls gate evaluation. Loaded from YAML; zero fields fall back
// to defaults so a partial file is valid.
type Config struct {
	// DisabledGates lists gate names that stay registered but never fire.
	DisabledGates []string `yaml:"disabled_gates"`
	// CooldownMinutes is the bar-time window between firings of one
	// (underlying, gate) pair.
	CooldownMinutes int `yaml:"cooldown_minutes"`
	// MinHistory is the bar count required before any gate evaluates.
	MinHistory int `yaml:"min_history"`
	// HistorySize caps the retained per-symbol bar window.
	HistorySize int `yaml:"history_size"`
	// MinADX suppresses all gates below this trend strength.
	MinADX float64 `yaml:"min_adx"`
	// MinVolumeRatio suppresses all gates when bar volume falls under this
	// fraction of the average.
	MinVolumeRatio float64 `yaml:"min_volume_ratio"`
	// SessionStart and SessionEnd bound the trading window, "HH:MM".
	SessionStart string `yaml:"session_start"`
	SessionEnd   string `yaml:"session_end"`

	CooldownMillis  int64 `yaml:"-"`
	disabled        map[Gate]bool
	sessionStartMin int
	sessionEndMin   int
}

// DefaultConfig returns the standard gate configuration. CLOUD_S ships
// disabled; enable it through the YAML file if ever wanted.
func DefaultConfig() Config {
	cfg := Config{
		DisabledGates:   []string{"CLOUD_S"},
		CooldownMinutes: 5,
		MinHistory:      20,
		HistorySize:     500,
		MinADX:          12,
		MinVolumeRatio:  0.25,
		SessionStart:    "09:15",
		SessionEnd:      "15:15",
	}
	if err := cfg.finalize(); err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfig reads gate configuration from a YAML file, merging over the
// defaults. A missing file returns the defaults with a log line rather than
// an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("gate config %s not found, using defaults", path)
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse gate config %s: %w", path, err)
	}
	if err := cfg.finalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	if c.CooldownMinutes <= 0 {
		c.CooldownMinutes = 5
	}
	if c.MinHistory <= 0 {
		c.MinHistory = 20
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 500
	}
	c.CooldownMillis = int64(c.CooldownMinutes) * 60_000

	c.disabled = make(map[Gate]bool, len(c.DisabledGates))
	for _, name := range c.DisabledGates {
		g := ParseGate(name)
		if g == GateUnknown {
			return fmt.Errorf("unknown gate name in config: %q", name)
		}
		c.disabled[g] = true
	}

	var err error
	if c.sessionStartMin, err = parseClock(c.SessionStart, sessionOpenMinute); err != nil {
		return err
	}
	if c.sessionEndMin, err = parseClock(c.SessionEnd, sessionCloseMinute); err != nil {
		return err
	}
	return nil
}

func parseClock(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("bad clock value %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	return h*60 + m, nil
}
