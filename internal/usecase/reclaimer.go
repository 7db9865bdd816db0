package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"seedvault/internal/domain"
	"seedvault/internal/domain/ports"
	"seedvault/internal/metrics"
	"seedvault/internal/policy"
)

// CycleResult is the outcome of one reclaim cycle.
type CycleResult struct {
	StartedAt  time.Time `json:"startedAt"`
	FreeBytes  int64     `json:"freeBytes"`
	Torrents   int       `json:"torrents"`
	Pinned     int       `json:"pinned"`
	Planned    int       `json:"planned"`
	Deleted    int       `json:"deleted"`
	FreedBytes int64     `json:"freedBytes"`
	Skipped    bool      `json:"skipped"` // enough free space, no plan was built
}

// CycleNotifier receives the outcome of each completed reclaim cycle.
type CycleNotifier interface {
	NotifyCycle(result CycleResult)
}

// Reclaimer frees disk space by deleting the lowest-value seeded torrents.
// Each tick it checks free space under DataDir; when free space drops below
// MinFreeBytes it snapshots status+meta once, builds an eviction plan from
// that snapshot, and walks the plan until free space reaches TargetFreeBytes
// (hysteresis prevents a plan per tick). Pin status is re-checked against
// fresh status and metadata immediately before every deletion to close the
// window between scoring and acting.
type Reclaimer struct {
	Feed    ports.StatusFeed
	Meta    ports.MetaStore
	Deleter ports.Deleter
	Policy  *policy.Config
	Logger  *slog.Logger
	Notify  CycleNotifier // optional

	DataDir         string
	MinFreeBytes    int64
	TargetFreeBytes int64
	Interval        time.Duration
	DeletesPerMin   int // deletion pacing; 0 = unpaced

	// FreeBytes overrides the statfs lookup when set.
	FreeBytes func(path string) (int64, error)
}

// Run starts the periodic reclaim loop. It blocks until ctx is cancelled.
// A failed cycle has no lasting effect beyond delayed reclamation: the whole
// decision set is recomputed from scratch on the next tick.
func (r Reclaimer) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Cycle(ctx); err != nil {
				r.Logger.Warn("reclaim cycle failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Cycle runs one reclaim pass and reports what it did.
func (r Reclaimer) Cycle(ctx context.Context) (CycleResult, error) {
	now := time.Now()
	result := CycleResult{StartedAt: now}

	target := r.TargetFreeBytes
	if target <= r.MinFreeBytes {
		target = r.MinFreeBytes * 2
	}

	free, err := r.diskFree()
	if err != nil {
		metrics.ReclaimCycleFailures.Inc()
		return result, err
	}
	metrics.DiskFreeBytes.Set(float64(free))
	result.FreeBytes = free
	if free >= r.MinFreeBytes {
		result.Skipped = true
		return result, nil
	}

	snap, err := TakeSnapshot(ctx, r.Feed, r.Meta)
	if err != nil {
		metrics.ReclaimCycleFailures.Inc()
		return result, err
	}
	plan, err := BuildPlan{Policy: r.Policy, Logger: r.Logger}.Execute(now, snap)
	if err != nil {
		// Configuration or input errors refuse the whole cycle: deleting on
		// a partial or guessed policy is worse than delayed reclamation.
		metrics.ReclaimCycleFailures.Inc()
		r.Logger.Error("refusing reclaim cycle",
			slog.String("error", err.Error()),
		)
		return result, err
	}
	result.Torrents = len(snap.Statuses)
	result.Pinned = plan.Pinned
	result.Planned = len(plan.Items)
	metrics.PlanItems.Set(float64(len(plan.Items)))
	metrics.PlanBytes.Set(float64(plan.TotalBytes))
	metrics.PinnedTorrents.Set(float64(plan.Pinned))

	var limiter *rate.Limiter
	if r.DeletesPerMin > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.DeletesPerMin)), 1)
	}

	for _, item := range plan.Items {
		if free >= target {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return result, err
			}
		}
		pinned, err := r.recheckPin(ctx, now, item.InfoHash)
		if err != nil {
			r.Logger.Warn("pin re-check failed, keeping torrent",
				slog.String("infoHash", string(item.InfoHash)),
				slog.String("error", err.Error()),
			)
			continue
		}
		if pinned {
			continue
		}
		if err := r.Deleter.Delete(ctx, item.InfoHash); err != nil {
			metrics.EvictionFailures.Inc()
			r.Logger.Warn("eviction failed",
				slog.String("infoHash", string(item.InfoHash)),
				slog.String("error", err.Error()),
			)
			continue
		}
		metrics.Evictions.Inc()
		metrics.BytesReclaimed.Add(float64(item.SizeBytes))
		result.Deleted++
		result.FreedBytes += item.SizeBytes
		r.Logger.Info("evicted torrent",
			slog.String("infoHash", string(item.InfoHash)),
			slog.Float64("priority", item.Priority),
			slog.Int64("sizeBytes", item.SizeBytes),
		)
		if f, err := r.diskFree(); err == nil {
			free = f
			metrics.DiskFreeBytes.Set(float64(free))
		}
	}
	result.FreeBytes = free
	metrics.ReclaimCycles.Inc()

	if r.Notify != nil {
		r.Notify.NotifyCycle(result)
	}
	return result, nil
}

// recheckPin re-reads live status and metadata for one torrent. The swarm may
// have changed since the plan was scored; a torrent that went missing or lost
// its metadata record is reported pinned so it is left alone.
func (r Reclaimer) recheckPin(ctx context.Context, now time.Time, ih domain.InfoHash) (bool, error) {
	status, err := r.Feed.Get(ctx, ih)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return true, nil
		}
		return true, wrapFeed(err)
	}
	meta, err := r.Meta.Get(ctx, ih)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return true, nil
		}
		return true, wrapStore(err)
	}
	return policy.IsPinned(now, r.Policy, status, meta)
}

func (r Reclaimer) diskFree() (int64, error) {
	if r.FreeBytes != nil {
		return r.FreeBytes(r.DataDir)
	}
	return diskFreeBytes(r.DataDir)
}
