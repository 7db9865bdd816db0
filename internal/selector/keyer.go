package selector

import (
	"errors"

	"seedvault/internal/domain"
)

// QualityKey orders releases by container, resolution and source scores, in
// that significance order.
type QualityKey struct {
	Container  int
	Resolution int
	Source     int
}

func (k QualityKey) less(other QualityKey) bool {
	if k.Container != other.Container {
		return k.Container < other.Container
	}
	if k.Resolution != other.Resolution {
		return k.Resolution < other.Resolution
	}
	return k.Source < other.Source
}

// QualityKeyer maps a release to its quality ordering key.
type QualityKeyer interface {
	Key(e domain.TorrentEntry) QualityKey
}

// unknownScore ranks labels missing from a lookup table strictly below every
// configured label (configured scores are validated non-negative).
const unknownScore = -1

// TableKeyer scores entries through three integer lookup tables.
type TableKeyer struct {
	Container  map[string]int
	Resolution map[string]int
	Source     map[string]int
}

func (t TableKeyer) Key(e domain.TorrentEntry) QualityKey {
	return QualityKey{
		Container:  lookup(t.Container, e.Container),
		Resolution: lookup(t.Resolution, e.Resolution),
		Source:     lookup(t.Source, e.Source),
	}
}

func lookup(table map[string]int, label string) int {
	if score, ok := table[label]; ok {
		return score
	}
	return unknownScore
}

// DefaultTables returns the stock quality tables: resolution dominates the
// choice among common labels, containers are treated as equivalent, and disc
// sources beat over-the-air captures.
func DefaultTables() TableKeyer {
	return TableKeyer{
		Container: map[string]int{
			"MKV": 1, "AVI": 1, "MPEG": 1, "MP4": 1, "WMV": 1, "M4V": 1, "TS": 1,
		},
		Resolution: map[string]int{
			"2160p": 5, "1080p": 4, "720p": 3, "1080i": 2, "SD": 1, "Portable Device": 0,
		},
		Source: map[string]int{
			"Bluray": 4, "WEB-DL": 3, "HDTV": 2, "PDTV": 2, "WEBRip": 1,
		},
	}
}

// Key is the composite ordering key for quality-aware selection. Capped
// seeders dominate: quality only decides between entries that are both
// "seeded enough". Raw seeders and the entry ID are deterministic tie-breaks.
type Key struct {
	CappedSeeders int
	Quality       QualityKey
	Seeders       int
	ID            int64
}

func (k Key) less(other Key) bool {
	if k.CappedSeeders != other.CappedSeeders {
		return k.CappedSeeders < other.CappedSeeders
	}
	if k.Quality != other.Quality {
		return k.Quality.less(other.Quality)
	}
	if k.Seeders != other.Seeders {
		return k.Seeders < other.Seeders
	}
	return k.ID < other.ID
}

// HeuristicKeyer builds composite keys from a quality keyer and a seeder cap.
type HeuristicKeyer struct {
	quality    QualityKeyer
	seedersCap int
}

// NewHeuristicKeyer requires an explicit quality keyer; DefaultTables offers
// the stock tables for callers without their own. A non-positive cap falls
// back to DefaultSeedersCap.
func NewHeuristicKeyer(quality QualityKeyer, seedersCap int) (*HeuristicKeyer, error) {
	if quality == nil {
		return nil, errors.New("selector: quality keyer is required")
	}
	if seedersCap <= 0 {
		seedersCap = DefaultSeedersCap
	}
	return &HeuristicKeyer{quality: quality, seedersCap: seedersCap}, nil
}

// DefaultSeedersCap is the seeder count past which more seeders stop mattering
// for quality-aware selection.
const DefaultSeedersCap = 20

func (h *HeuristicKeyer) Key(e domain.TorrentEntry) Key {
	capped := e.Seeders
	if capped > h.seedersCap {
		capped = h.seedersCap
	}
	return Key{
		CappedSeeders: capped,
		Quality:       h.quality.Key(e),
		Seeders:       e.Seeders,
		ID:            e.ID,
	}
}
