package policy

import (
	"time"

	"seedvault/internal/domain"
)

// Evaluation is the eviction verdict for one torrent. Pinned torrents carry
// the sentinel priority 0 and are never selected for deletion.
type Evaluation struct {
	Pinned   bool    `json:"pinned"`
	Priority float64 `json:"priority"`
}

// Evaluate computes the eviction priority of one torrent. The score is
// deterministic, monotonically non-decreasing in idle time and size, and
// scaled down for rare swarms: the sole remaining seed of its content scores
// below an otherwise identical torrent in a healthy swarm.
func Evaluate(now time.Time, cfg *Config, status domain.TorrentStatus, meta domain.Meta) (Evaluation, error) {
	pinned, err := IsPinned(now, cfg, status, meta)
	if err != nil {
		return Evaluation{}, err
	}
	if pinned {
		return Evaluation{Pinned: true}, nil
	}

	idleHours := now.Sub(meta.AccessedAt).Hours()
	if idleHours < 0 {
		idleHours = 0
	}
	sizeGiB := float64(status.SizeBytes) / (1 << 30)
	base := cfg.Weights.Idle*idleHours + cfg.Weights.Size*sizeGiB

	// swarmFactor grows with seeder count and stays in (0,1]. Weights.Rarity
	// is the swarm size at which half the base score is restored.
	seeds := float64(status.Seeders) + 1
	swarmFactor := seeds / (seeds + cfg.Weights.Rarity)

	return Evaluation{Priority: base * swarmFactor}, nil
}
