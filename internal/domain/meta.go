package domain

import "time"

// Meta is the library metadata record for one torrent's content. It is owned
// by the metadata store and updated by external access events.
//
// Managed=false places the content outside automatic space management: such
// torrents are always pinned.
type Meta struct {
	InfoHash   InfoHash  `json:"infoHash"`
	Managed    bool      `json:"managed"`
	AccessedAt time.Time `json:"accessedAt"`
}
