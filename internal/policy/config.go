package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"seedvault/internal/domain"
	"seedvault/internal/selector"
)

// HNRRule is a tracker's hit-and-run rule: the minimums a torrent has to
// reach before dropping it is safe. A zero field means the tracker does not
// specify that metric.
type HNRRule struct {
	MinSeedTime time.Duration
	MinRatio    float64
}

// ScoreWeights tunes the eviction priority formula. The formula shape is
// fixed; the relative weighting of its factors is deployment configuration.
type ScoreWeights struct {
	Idle   float64 // points per idle hour
	Size   float64 // points per GiB on disk
	Rarity float64 // swarm-size midpoint; higher protects rare torrents harder
}

// SelectionConfig tunes the quality-aware candidate selection: the seeder cap
// and the three quality lookup tables. Labels absent from a table score
// strictly below every configured value.
type SelectionConfig struct {
	SeedersCap int
	Container  map[string]int
	Resolution map[string]int
	Source     map[string]int
}

// Config is the full decision policy. It is loaded once per process, treated
// as immutable, and passed explicitly into every evaluation so that each
// decision is a pure function of its arguments.
type Config struct {
	PinTime           time.Duration
	RequireThresholds bool
	SeedThresholds    map[domain.Tracker]int
	HNRRules          map[domain.Tracker]HNRRule
	Weights           ScoreWeights
	Selection         SelectionConfig
}

// SeedThreshold returns the minimum seeder count configured for the tracker.
// ok=false means the tracker has no threshold, which is a documented default
// ("no swarm-health protection"), not a failure — except in strict mode,
// where an unconfigured tracker is a refusal to decide.
func (c *Config) SeedThreshold(tracker domain.Tracker) (threshold int, ok bool, err error) {
	threshold, ok = c.SeedThresholds[tracker]
	if !ok && c.RequireThresholds {
		return 0, false, fmt.Errorf("%w: %q", domain.ErrMissingThreshold, tracker)
	}
	return threshold, ok, nil
}

// HNRRule returns the tracker's hit-and-run rule. ok=false means the tracker
// imposes no such rule and never protects torrents on this basis.
func (c *Config) HNRRule(tracker domain.Tracker) (HNRRule, bool) {
	rule, ok := c.HNRRules[tracker]
	return rule, ok
}

const (
	defaultIdleWeight   = 1.0
	defaultSizeWeight   = 1.0
	defaultRarityWeight = 4.0
)

type configDoc struct {
	PinTime           string                `yaml:"pinTime"`
	RequireThresholds bool                  `yaml:"requireThresholds"`
	SeedThresholds    map[string]int        `yaml:"seedThresholds"`
	HNRRules          map[string]hnrRuleDoc `yaml:"hnrRules"`
	Weights           *weightsDoc           `yaml:"weights"`
	Selection         selectionDoc          `yaml:"selection"`
}

type hnrRuleDoc struct {
	MinSeedTime string  `yaml:"minSeedTime"`
	MinRatio    float64 `yaml:"minRatio"`
}

type weightsDoc struct {
	Idle   float64 `yaml:"idle"`
	Size   float64 `yaml:"size"`
	Rarity float64 `yaml:"rarity"`
}

type selectionDoc struct {
	SeedersCap int            `yaml:"seedersCap"`
	Container  map[string]int `yaml:"container"`
	Resolution map[string]int `yaml:"resolution"`
	Source     map[string]int `yaml:"source"`
}

// Load reads and validates a policy file. Any error here is a configuration
// error: the process must refuse to start rather than run with guessed
// defaults for mandatory options.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML policy document.
func Parse(data []byte) (*Config, error) {
	var doc configDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	cfg, err := fromDoc(doc)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromDoc(doc configDoc) (*Config, error) {
	cfg := &Config{
		RequireThresholds: doc.RequireThresholds,
		SeedThresholds:    make(map[domain.Tracker]int, len(doc.SeedThresholds)),
		HNRRules:          make(map[domain.Tracker]HNRRule, len(doc.HNRRules)),
		Weights: ScoreWeights{
			Idle:   defaultIdleWeight,
			Size:   defaultSizeWeight,
			Rarity: defaultRarityWeight,
		},
		Selection: SelectionConfig{
			SeedersCap: doc.Selection.SeedersCap,
			Container:  doc.Selection.Container,
			Resolution: doc.Selection.Resolution,
			Source:     doc.Selection.Source,
		},
	}

	pinTime, err := parseDuration("pinTime", doc.PinTime)
	if err != nil {
		return nil, err
	}
	cfg.PinTime = pinTime

	for tracker, threshold := range doc.SeedThresholds {
		cfg.SeedThresholds[domain.Tracker(tracker)] = threshold
	}
	for tracker, rule := range doc.HNRRules {
		minSeedTime := time.Duration(0)
		if rule.MinSeedTime != "" {
			minSeedTime, err = parseDuration("hnrRules."+tracker+".minSeedTime", rule.MinSeedTime)
			if err != nil {
				return nil, err
			}
		}
		cfg.HNRRules[domain.Tracker(tracker)] = HNRRule{
			MinSeedTime: minSeedTime,
			MinRatio:    rule.MinRatio,
		}
	}

	if doc.Weights != nil {
		cfg.Weights = ScoreWeights{
			Idle:   doc.Weights.Idle,
			Size:   doc.Weights.Size,
			Rarity: doc.Weights.Rarity,
		}
	}
	if cfg.Selection.SeedersCap == 0 {
		cfg.Selection.SeedersCap = selector.DefaultSeedersCap
	}
	// A policy that configures no quality tables at all gets the stock ones;
	// configuring any table replaces the whole set.
	if cfg.Selection.Container == nil && cfg.Selection.Resolution == nil && cfg.Selection.Source == nil {
		tables := selector.DefaultTables()
		cfg.Selection.Container = tables.Container
		cfg.Selection.Resolution = tables.Resolution
		cfg.Selection.Source = tables.Source
	}
	return cfg, nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, fmt.Errorf("policy: %s is required", field)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("policy: %s: %w", field, err)
	}
	return d, nil
}

func (c *Config) validate() error {
	if c.PinTime <= 0 {
		return fmt.Errorf("policy: pinTime must be positive, got %s", c.PinTime)
	}
	for tracker, threshold := range c.SeedThresholds {
		if threshold < 0 {
			return fmt.Errorf("policy: seedThresholds[%s] must be non-negative, got %d", tracker, threshold)
		}
	}
	for tracker, rule := range c.HNRRules {
		if rule.MinSeedTime < 0 {
			return fmt.Errorf("policy: hnrRules[%s].minSeedTime must be non-negative, got %s", tracker, rule.MinSeedTime)
		}
		if rule.MinRatio < 0 {
			return fmt.Errorf("policy: hnrRules[%s].minRatio must be non-negative, got %g", tracker, rule.MinRatio)
		}
		if rule.MinSeedTime == 0 && rule.MinRatio == 0 {
			return fmt.Errorf("policy: hnrRules[%s] specifies neither minSeedTime nor minRatio", tracker)
		}
	}
	// Idle weight keeps non-pinned priorities strictly positive: a torrent
	// can only leave the pin window with idle time >= pinTime > 0.
	if c.Weights.Idle <= 0 {
		return fmt.Errorf("policy: weights.idle must be positive, got %g", c.Weights.Idle)
	}
	if c.Weights.Size < 0 {
		return fmt.Errorf("policy: weights.size must be non-negative, got %g", c.Weights.Size)
	}
	if c.Weights.Rarity < 0 {
		return fmt.Errorf("policy: weights.rarity must be non-negative, got %g", c.Weights.Rarity)
	}
	if c.Selection.SeedersCap <= 0 {
		return fmt.Errorf("policy: selection.seedersCap must be positive, got %d", c.Selection.SeedersCap)
	}
	for name, table := range map[string]map[string]int{
		"container":  c.Selection.Container,
		"resolution": c.Selection.Resolution,
		"source":     c.Selection.Source,
	} {
		for label, score := range table {
			// Unknown labels score -1; configured labels must stay above it.
			if score < 0 {
				return fmt.Errorf("policy: selection.%s[%s] must be non-negative, got %d", name, label, score)
			}
		}
	}
	return nil
}
