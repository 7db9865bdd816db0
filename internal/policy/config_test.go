package policy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"seedvault/internal/domain"
)

const fullPolicyYAML = `
pinTime: 720h
requireThresholds: true
seedThresholds:
  tracker.example.org: 5
  rare.example.net: 10
hnrRules:
  tracker.example.org:
    minSeedTime: 336h
    minRatio: 1.0
  rare.example.net:
    minSeedTime: 720h
weights:
  idle: 2.0
  size: 0.5
  rarity: 8.0
selection:
  seedersCap: 30
  container:
    MKV: 2
    MP4: 1
  resolution:
    2160p: 2
    1080p: 1
  source:
    Bluray: 1
`

func TestParseFullPolicy(t *testing.T) {
	cfg, err := Parse([]byte(fullPolicyYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.PinTime != 720*time.Hour {
		t.Errorf("PinTime = %s, want 720h", cfg.PinTime)
	}
	if !cfg.RequireThresholds {
		t.Error("RequireThresholds = false, want true")
	}
	if got := cfg.SeedThresholds["tracker.example.org"]; got != 5 {
		t.Errorf("seedThresholds[tracker.example.org] = %d, want 5", got)
	}
	rule, ok := cfg.HNRRule("tracker.example.org")
	if !ok {
		t.Fatal("hnrRules[tracker.example.org] missing")
	}
	if rule.MinSeedTime != 336*time.Hour || rule.MinRatio != 1.0 {
		t.Errorf("rule = %+v, want {336h 1.0}", rule)
	}
	if cfg.Weights.Idle != 2.0 || cfg.Weights.Size != 0.5 || cfg.Weights.Rarity != 8.0 {
		t.Errorf("Weights = %+v", cfg.Weights)
	}
	if cfg.Selection.SeedersCap != 30 {
		t.Errorf("SeedersCap = %d, want 30", cfg.Selection.SeedersCap)
	}
	if got := cfg.Selection.Container["MKV"]; got != 2 {
		t.Errorf("container[MKV] = %d, want 2", got)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("pinTime: 24h\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Weights.Idle != 1.0 || cfg.Weights.Size != 1.0 || cfg.Weights.Rarity != 4.0 {
		t.Errorf("default Weights = %+v, want {1 1 4}", cfg.Weights)
	}
	if cfg.Selection.SeedersCap != 20 {
		t.Errorf("default SeedersCap = %d, want 20", cfg.Selection.SeedersCap)
	}
	// Omitting all quality tables installs the stock ones.
	if got := cfg.Selection.Resolution["2160p"]; got != 5 {
		t.Errorf("stock resolution[2160p] = %d, want 5", got)
	}
	if got := cfg.Selection.Source["Bluray"]; got != 4 {
		t.Errorf("stock source[Bluray] = %d, want 4", got)
	}
	if cfg.RequireThresholds {
		t.Error("RequireThresholds defaulted to true")
	}
}

func TestParseConfiguredTablesReplaceStock(t *testing.T) {
	cfg, err := Parse([]byte("pinTime: 24h\nselection:\n  resolution:\n    4320p: 1\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := cfg.Selection.Resolution["2160p"]; ok {
		t.Error("configuring any table should replace the stock set, 2160p still present")
	}
	if cfg.Selection.Container != nil {
		t.Errorf("container table = %v, want nil", cfg.Selection.Container)
	}
}

func TestParseInvalidPolicies(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantSub string
	}{
		{"not yaml", ":\n:", "parse policy"},
		{"missing pinTime", "requireThresholds: true\n", "pinTime is required"},
		{"bad pinTime", "pinTime: fortnight\n", "pinTime"},
		{"negative pinTime", "pinTime: -1h\n", "must be positive"},
		{"negative threshold", "pinTime: 24h\nseedThresholds:\n  t: -1\n", "non-negative"},
		{"empty hnr rule", "pinTime: 24h\nhnrRules:\n  t: {}\n", "neither minSeedTime nor minRatio"},
		{"negative hnr ratio", "pinTime: 24h\nhnrRules:\n  t:\n    minRatio: -0.5\n", "non-negative"},
		{"bad hnr duration", "pinTime: 24h\nhnrRules:\n  t:\n    minSeedTime: soon\n", "minSeedTime"},
		{"zero idle weight", "pinTime: 24h\nweights:\n  idle: 0\n  size: 1\n  rarity: 4\n", "weights.idle"},
		{"negative size weight", "pinTime: 24h\nweights:\n  idle: 1\n  size: -1\n  rarity: 4\n", "weights.size"},
		{"negative table score", "pinTime: 24h\nselection:\n  container:\n    MKV: -1\n", "selection.container"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("err = %q, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(fullPolicyYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PinTime != 720*time.Hour {
		t.Errorf("PinTime = %s, want 720h", cfg.PinTime)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load succeeded, want error")
	}
}

func TestSeedThresholdStrictMode(t *testing.T) {
	cfg := testConfig()

	if _, ok, err := cfg.SeedThreshold("unknown.example.com"); err != nil || ok {
		t.Errorf("lenient mode: ok=%v err=%v, want absent with no error", ok, err)
	}

	threshold, ok, err := cfg.SeedThreshold("guarded.example.org")
	if err != nil || !ok || threshold != 5 {
		t.Errorf("configured tracker: threshold=%d ok=%v err=%v", threshold, ok, err)
	}

	cfg.RequireThresholds = true
	_, _, err = cfg.SeedThreshold("unknown.example.com")
	if !errors.Is(err, domain.ErrMissingThreshold) {
		t.Errorf("strict mode err = %v, want ErrMissingThreshold", err)
	}
}
