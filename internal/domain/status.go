package domain

import "time"

// InfoHash is the hex-encoded identifier of a torrent's content.
type InfoHash string

// Tracker identifies the tracker a torrent was acquired from, e.g. a host
// name taken from its announce URL.
type Tracker string

// TorrentStatus is a point-in-time view of one seeding torrent as reported by
// the torrent engine. Values are refreshed continuously by the engine and are
// read-only to the policy code.
type TorrentStatus struct {
	InfoHash  InfoHash
	Tracker   Tracker
	Seeders   int
	Leechers  int
	SeedTime  time.Duration // cumulative time spent seeding
	Ratio     float64       // uploaded / size
	SizeBytes int64         // reclaimable payload size on disk
}
