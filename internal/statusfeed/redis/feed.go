package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"seedvault/internal/domain"
)

const (
	statusKeyPrefix  = "seedvault:status:"
	deletionQueueKey = "seedvault:deletions"
)

// Feed reads per-torrent status documents published by the torrent engine,
// one JSON document per infohash under statusKeyPrefix. The engine refreshes
// them continuously; stale entries expire with their TTL.
type Feed struct {
	client *redis.Client
}

type statusDoc struct {
	InfoHash    string  `json:"infoHash"`
	Tracker     string  `json:"tracker"`
	Seeders     int     `json:"seeders"`
	Leechers    int     `json:"leechers"`
	SeedTimeSec int64   `json:"seedTimeSec"`
	Ratio       float64 `json:"ratio"`
	SizeBytes   int64   `json:"sizeBytes"`
}

func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func (f *Feed) Get(ctx context.Context, ih domain.InfoHash) (domain.TorrentStatus, error) {
	data, err := f.client.Get(ctx, statusKeyPrefix+string(ih)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TorrentStatus{}, domain.ErrNotFound
		}
		return domain.TorrentStatus{}, err
	}
	var doc statusDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.TorrentStatus{}, fmt.Errorf("decode status %s: %w", ih, err)
	}
	return fromDoc(doc), nil
}

// Snapshot returns every published status, ordered by infohash so repeated
// snapshots over unchanged data are identical.
func (f *Feed) Snapshot(ctx context.Context) ([]domain.TorrentStatus, error) {
	var statuses []domain.TorrentStatus
	iter := f.client.Scan(ctx, 0, statusKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := f.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Expired between scan and read.
				continue
			}
			return nil, err
		}
		var doc statusDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode status %s: %w", iter.Val(), err)
		}
		statuses = append(statuses, fromDoc(doc))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].InfoHash < statuses[j].InfoHash
	})
	return statuses, nil
}

// Publish writes one status document. The engine side of the feed uses this;
// a zero ttl keeps the document until overwritten.
func (f *Feed) Publish(ctx context.Context, status domain.TorrentStatus, ttl time.Duration) error {
	data, err := json.Marshal(toDoc(status))
	if err != nil {
		return err
	}
	return f.client.Set(ctx, statusKeyPrefix+string(status.InfoHash), data, ttl).Err()
}

// Delete enqueues a deletion request for the torrent engine and drops the
// published status so the torrent stops appearing in snapshots immediately.
// The engine consumes the queue and removes the session plus payload files.
func (f *Feed) Delete(ctx context.Context, ih domain.InfoHash) error {
	pipe := f.client.TxPipeline()
	pipe.LPush(ctx, deletionQueueKey, string(ih))
	pipe.Del(ctx, statusKeyPrefix+string(ih))
	_, err := pipe.Exec(ctx)
	return err
}

// PopDeletion blocks up to timeout waiting for the next queued deletion
// request. It returns domain.ErrNotFound when the queue stays empty.
func (f *Feed) PopDeletion(ctx context.Context, timeout time.Duration) (domain.InfoHash, error) {
	vals, err := f.client.BRPop(ctx, timeout, deletionQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	// BRPop returns [key, value].
	return domain.InfoHash(vals[len(vals)-1]), nil
}

func (f *Feed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

func toDoc(s domain.TorrentStatus) statusDoc {
	return statusDoc{
		InfoHash:    string(s.InfoHash),
		Tracker:     string(s.Tracker),
		Seeders:     s.Seeders,
		Leechers:    s.Leechers,
		SeedTimeSec: int64(s.SeedTime / time.Second),
		Ratio:       s.Ratio,
		SizeBytes:   s.SizeBytes,
	}
}

func fromDoc(doc statusDoc) domain.TorrentStatus {
	return domain.TorrentStatus{
		InfoHash:  domain.InfoHash(doc.InfoHash),
		Tracker:   domain.Tracker(doc.Tracker),
		Seeders:   doc.Seeders,
		Leechers:  doc.Leechers,
		SeedTime:  time.Duration(doc.SeedTimeSec) * time.Second,
		Ratio:     doc.Ratio,
		SizeBytes: doc.SizeBytes,
	}
}
