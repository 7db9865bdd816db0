package anacrolix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"

	"seedvault/internal/domain"
)

// Adapter exposes an in-process anacrolix client as both the status feed and
// the deletion executor, for single-binary deployments where the seeding
// client lives alongside the policy engine.
type Adapter struct {
	client  *torrent.Client
	dataDir string
	logger  *slog.Logger

	mu          sync.Mutex
	completedAt map[metainfo.Hash]time.Time
}

func New(client *torrent.Client, dataDir string, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:      client,
		dataDir:     dataDir,
		logger:      logger,
		completedAt: make(map[metainfo.Hash]time.Time),
	}
}

// Snapshot reports every torrent with resolved metadata, ordered by infohash.
// Torrents still fetching metadata hold no reclaimable payload yet.
func (a *Adapter) Snapshot(ctx context.Context) ([]domain.TorrentStatus, error) {
	torrents := a.client.Torrents()
	statuses := make([]domain.TorrentStatus, 0, len(torrents))
	for _, t := range torrents {
		select {
		case <-t.GotInfo():
		default:
			continue
		}
		statuses = append(statuses, a.status(t))
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].InfoHash < statuses[j].InfoHash
	})
	return statuses, nil
}

func (a *Adapter) Get(ctx context.Context, ih domain.InfoHash) (domain.TorrentStatus, error) {
	t, err := a.torrent(ih)
	if err != nil {
		return domain.TorrentStatus{}, err
	}
	return a.status(t), nil
}

// Delete drops the torrent from the client and removes its payload files
// under the data dir.
func (a *Adapter) Delete(ctx context.Context, ih domain.InfoHash) error {
	t, err := a.torrent(ih)
	if err != nil {
		return err
	}
	var paths []string
	if t.Info() != nil {
		for _, f := range t.Files() {
			paths = append(paths, f.Path())
		}
	}
	t.Drop()
	a.mu.Lock()
	delete(a.completedAt, t.InfoHash())
	a.mu.Unlock()

	if err := removeFiles(a.dataDir, paths); err != nil {
		return err
	}
	a.logger.Info("dropped torrent",
		slog.String("infoHash", string(ih)),
		slog.Int("files", len(paths)),
	)
	return nil
}

func (a *Adapter) torrent(ih domain.InfoHash) (*torrent.Torrent, error) {
	var hash metainfo.Hash
	if err := hash.FromHexString(string(ih)); err != nil {
		return nil, fmt.Errorf("infohash %q: %w", ih, err)
	}
	t, ok := a.client.Torrent(hash)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (a *Adapter) status(t *torrent.Torrent) domain.TorrentStatus {
	stats := t.Stats()
	size := t.Length()
	var ratio float64
	if size > 0 {
		ratio = float64(stats.BytesWrittenData.Int64()) / float64(size)
	}
	leechers := stats.ActivePeers - stats.ConnectedSeeders
	if leechers < 0 {
		leechers = 0
	}
	return domain.TorrentStatus{
		InfoHash:  domain.InfoHash(t.InfoHash().HexString()),
		Tracker:   trackerOf(t),
		Seeders:   stats.ConnectedSeeders,
		Leechers:  leechers,
		SeedTime:  a.seedTime(t),
		Ratio:     ratio,
		SizeBytes: t.BytesCompleted(),
	}
}

// seedTime approximates cumulative seed time as time since the torrent
// completed within this process lifetime. Engines with persistent seed-time
// accounting should publish through the redis status feed instead.
func (a *Adapter) seedTime(t *torrent.Torrent) time.Duration {
	if t.Length() == 0 || t.BytesCompleted() < t.Length() {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	since, ok := a.completedAt[t.InfoHash()]
	if !ok {
		a.completedAt[t.InfoHash()] = time.Now()
		return 0
	}
	return time.Since(since)
}

// trackerOf reports the host of the torrent's primary announce URL.
func trackerOf(t *torrent.Torrent) domain.Tracker {
	mi := t.Metainfo()
	announce := mi.Announce
	if announce == "" {
		for _, tier := range mi.AnnounceList {
			if len(tier) > 0 {
				announce = tier[0]
				break
			}
		}
	}
	if announce == "" {
		return ""
	}
	u, err := url.Parse(announce)
	if err != nil {
		return ""
	}
	return domain.Tracker(u.Hostname())
}

// removeFiles deletes payload files, refusing paths that escape the data dir.
func removeFiles(baseDir string, paths []string) error {
	if strings.TrimSpace(baseDir) == "" {
		return errors.New("data dir not configured")
	}
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return err
	}
	baseAbs = filepath.Clean(baseAbs)

	for _, p := range paths {
		if strings.TrimSpace(p) == "" || filepath.IsAbs(p) {
			return fmt.Errorf("invalid payload path %q", p)
		}
		full := filepath.Clean(filepath.Join(baseAbs, filepath.FromSlash(p)))
		if !strings.HasPrefix(full, baseAbs+string(os.PathSeparator)) {
			return fmt.Errorf("invalid payload path %q", p)
		}
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
