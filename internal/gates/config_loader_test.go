package gates

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.CooldownMinutes != 5 || cfg.MinHistory != 20 || cfg.HistorySize != 500 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.disabled[GateCloudS] {
		t.Fatal("CLOUD_S should be disabled by default")
	}
	if cfg.sessionStartMin != 9*60+15 || cfg.sessionEndMin != 15*60+15 {
		t.Fatalf("session window wrong: %d..%d", cfg.sessionStartMin, cfg.sessionEndMin)
	}
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gates.yaml")
	body := []byte("disabled_gates: [ORB_L, MAGNET]\ncooldown_minutes: 10\nsession_start: \"09:30\"\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.disabled[GateOrbL] || !cfg.disabled[GateMagnet] {
		t.Fatalf("configured gates not disabled: %v", cfg.DisabledGates)
	}
	if cfg.disabled[GateCloudS] {
		t.Fatal("explicit list should replace the default disabled set")
	}
	if cfg.CooldownMillis != 10*60_000 {
		t.Fatalf("cooldown millis = %d", cfg.CooldownMillis)
	}
	if cfg.sessionStartMin != 9*60+30 {
		t.Fatalf("session start = %d", cfg.sessionStartMin)
	}
	if cfg.MinHistory != 20 {
		t.Fatalf("unset field should keep default, got %d", cfg.MinHistory)
	}
}

func TestLoadConfigRejectsUnknownGateName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gates.yaml")
	if err := os.WriteFile(path, []byte("disabled_gates: [NO_SUCH_GATE]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown gate name")
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 100, false},
		{"09:15", 9*60 + 15, false},
		{"15:15", 15*60 + 15, false},
		{"24:00", 0, true},
		{"nine", 0, true},
	}
	for _, tc := range cases {
		got, err := parseClock(tc.in, 100)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseClock(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseClock(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
