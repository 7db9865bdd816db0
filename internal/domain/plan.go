package domain

// PlanItem is one deletion candidate in an eviction plan: a non-pinned
// torrent together with the priority it was scored at.
type PlanItem struct {
	InfoHash  InfoHash `json:"infoHash"`
	Priority  float64  `json:"priority"`
	SizeBytes int64    `json:"sizeBytes"`
}

// EvictionPlan is an ordered deletion sequence, descending by priority with
// ties broken by infohash. The deletion executor walks it front to back and
// stops once its space target is met.
type EvictionPlan struct {
	Items      []PlanItem `json:"items"`
	TotalBytes int64      `json:"totalBytes"` // sum of item sizes
	Pinned     int        `json:"pinned"`     // torrents excluded from the plan
}
