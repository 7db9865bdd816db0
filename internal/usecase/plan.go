package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"seedvault/internal/domain"
	"seedvault/internal/domain/ports"
	"seedvault/internal/policy"
)

// Snapshot is one consistent view of the collaborators' state, taken before a
// decision pass so every deletion is justified by the same data it was scored
// from.
type Snapshot struct {
	Statuses []domain.TorrentStatus
	Metas    map[domain.InfoHash]domain.Meta
}

// TakeSnapshot reads the status feed and the metadata store once.
func TakeSnapshot(ctx context.Context, feed ports.StatusFeed, store ports.MetaStore) (Snapshot, error) {
	statuses, err := feed.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, wrapFeed(err)
	}
	metas, err := store.List(ctx)
	if err != nil {
		return Snapshot{}, wrapStore(err)
	}
	snap := Snapshot{
		Statuses: statuses,
		Metas:    make(map[domain.InfoHash]domain.Meta, len(metas)),
	}
	for _, m := range metas {
		snap.Metas[m.InfoHash] = m
	}
	return snap, nil
}

// BuildPlan scores a snapshot and orders the non-pinned torrents for
// deletion, descending by priority with ties broken by infohash, so repeated
// runs over unchanged input produce an identical deletion order.
type BuildPlan struct {
	Policy *policy.Config
	Logger *slog.Logger
}

func (uc BuildPlan) Execute(now time.Time, snap Snapshot) (domain.EvictionPlan, error) {
	var plan domain.EvictionPlan
	for _, status := range snap.Statuses {
		meta, ok := snap.Metas[status.InfoHash]
		if !ok {
			// Authority over this content is unknown; treat it as unmanaged
			// rather than risk deleting data the system does not own.
			uc.Logger.Warn("no metadata record, treating torrent as unmanaged",
				slog.String("infoHash", string(status.InfoHash)),
			)
			plan.Pinned++
			continue
		}
		ev, err := policy.Evaluate(now, uc.Policy, status, meta)
		if err != nil {
			return domain.EvictionPlan{}, err
		}
		if ev.Pinned {
			plan.Pinned++
			continue
		}
		plan.Items = append(plan.Items, domain.PlanItem{
			InfoHash:  status.InfoHash,
			Priority:  ev.Priority,
			SizeBytes: status.SizeBytes,
		})
		plan.TotalBytes += status.SizeBytes
	}
	sort.Slice(plan.Items, func(i, j int) bool {
		if plan.Items[i].Priority != plan.Items[j].Priority {
			return plan.Items[i].Priority > plan.Items[j].Priority
		}
		return plan.Items[i].InfoHash < plan.Items[j].InfoHash
	})
	return plan, nil
}
