package domain

// TorrentEntry is one candidate release offered by a tracker for a wanted
// media item. Entries are created per selection query and never mutated.
type TorrentEntry struct {
	ID         int64  `json:"id"`
	Container  string `json:"container"`
	Resolution string `json:"resolution"`
	Source     string `json:"source"`
	Seeders    int    `json:"seeders"`
}
