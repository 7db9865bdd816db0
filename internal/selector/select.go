package selector

import "seedvault/internal/domain"

// BestWithHeuristics picks the entry with the greatest composite key. The
// result does not depend on input order: the key is a total order over
// distinct entries (the entry ID is its final component).
func BestWithHeuristics(keyer *HeuristicKeyer, entries []domain.TorrentEntry) (domain.TorrentEntry, error) {
	if len(entries) == 0 {
		return domain.TorrentEntry{}, domain.ErrNoCandidates
	}
	best := entries[0]
	bestKey := keyer.Key(best)
	for _, e := range entries[1:] {
		if key := keyer.Key(e); bestKey.less(key) {
			best, bestKey = e, key
		}
	}
	return best, nil
}

// MostSeeds picks the entry with the highest raw seeder count, ignoring
// quality entirely. Ties on seeder count go to the lowest entry ID so that
// repeated runs over the same input pick the same entry.
func MostSeeds(entries []domain.TorrentEntry) (domain.TorrentEntry, error) {
	if len(entries) == 0 {
		return domain.TorrentEntry{}, domain.ErrNoCandidates
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Seeders > best.Seeders || (e.Seeders == best.Seeders && e.ID < best.ID) {
			best = e
		}
	}
	return best, nil
}
