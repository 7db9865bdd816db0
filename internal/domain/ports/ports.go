package ports

import (
	"context"
	"time"

	"seedvault/internal/domain"
)

// StatusFeed exposes the torrent engine's live per-torrent state. The feed is
// externally mutated; callers snapshot it once per decision pass.
type StatusFeed interface {
	// Snapshot returns the status of every torrent currently known to the feed.
	Snapshot(ctx context.Context) ([]domain.TorrentStatus, error)
	// Get returns the current status of a single torrent.
	// Returns domain.ErrNotFound if the torrent is gone.
	Get(ctx context.Context, ih domain.InfoHash) (domain.TorrentStatus, error)
}

// MetaStore holds the library metadata records keyed by infohash.
type MetaStore interface {
	// Get returns domain.ErrNotFound when no record exists for the infohash.
	Get(ctx context.Context, ih domain.InfoHash) (domain.Meta, error)
	Upsert(ctx context.Context, m domain.Meta) error
	// Touch records an access event, bumping the record's access time.
	Touch(ctx context.Context, ih domain.InfoHash, at time.Time) error
	List(ctx context.Context) ([]domain.Meta, error)
}

// Deleter removes a torrent and its payload from disk. Implementations talk
// to the torrent engine; policy code only hands them an ordered plan.
type Deleter interface {
	Delete(ctx context.Context, ih domain.InfoHash) error
}
