package policy

import (
	"fmt"
	"time"

	"seedvault/internal/domain"
)

// IsPinned decides whether a torrent must be retained irrespective of space
// pressure. Rules are evaluated in order and the first match wins:
//
//  1. unmanaged content is never eligible for automatic deletion
//  2. content accessed within the pin window stays protected
//  3. the tracker's seed threshold protects nearly-dead swarms
//  4. an unmet hit-and-run rule protects the user's tracker standing
//
// The status and meta must describe the same content; a mismatch returns
// domain.ErrInconsistentInput and no verdict.
func IsPinned(now time.Time, cfg *Config, status domain.TorrentStatus, meta domain.Meta) (bool, error) {
	if status.InfoHash != meta.InfoHash {
		return false, fmt.Errorf("%w: status %s vs meta %s",
			domain.ErrInconsistentInput, status.InfoHash, meta.InfoHash)
	}
	if !meta.Managed {
		return true, nil
	}
	if now.Sub(meta.AccessedAt) < cfg.PinTime {
		return true, nil
	}
	threshold, ok, err := cfg.SeedThreshold(status.Tracker)
	if err != nil {
		return false, err
	}
	if ok && status.Seeders < threshold {
		return true, nil
	}
	if requiredForHNR(cfg, status) {
		return true, nil
	}
	return false, nil
}

// requiredForHNR reports whether dropping the torrent now would trip the
// tracker's hit-and-run rule. A torrent is required while it is below any
// minimum the rule specifies; trackers without a rule never protect here.
func requiredForHNR(cfg *Config, status domain.TorrentStatus) bool {
	rule, ok := cfg.HNRRule(status.Tracker)
	if !ok {
		return false
	}
	if rule.MinSeedTime > 0 && status.SeedTime < rule.MinSeedTime {
		return true
	}
	if rule.MinRatio > 0 && status.Ratio < rule.MinRatio {
		return true
	}
	return false
}
