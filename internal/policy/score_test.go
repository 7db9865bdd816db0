package policy

import (
	"errors"
	"testing"
	"time"

	"seedvault/internal/domain"
)

func TestEvaluatePinnedScoresZero(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()

	status := domain.TorrentStatus{InfoHash: "aaa", Tracker: "open.example.com", Seeders: 100, SizeBytes: 50 << 30}
	meta := domain.Meta{InfoHash: "aaa", Managed: false, AccessedAt: now.Add(-400 * 24 * time.Hour)}

	ev, err := Evaluate(now, cfg, status, meta)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ev.Pinned {
		t.Fatal("expected pinned")
	}
	if ev.Priority != 0 {
		t.Errorf("pinned priority = %g, want 0", ev.Priority)
	}
}

func TestEvaluatePositiveAndDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()

	status := domain.TorrentStatus{InfoHash: "aaa", Tracker: "open.example.com", Seeders: 50, SizeBytes: 10 << 30}
	meta := domain.Meta{InfoHash: "aaa", Managed: true, AccessedAt: now.Add(-400 * 24 * time.Hour)}

	first, err := Evaluate(now, cfg, status, meta)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if first.Pinned {
		t.Fatal("expected not pinned")
	}
	if first.Priority <= 0 {
		t.Errorf("priority = %g, want > 0", first.Priority)
	}

	for i := 0; i < 10; i++ {
		again, err := Evaluate(now, cfg, status, meta)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if again != first {
			t.Fatalf("run %d: evaluation %+v differs from first %+v", i, again, first)
		}
	}
}

func TestEvaluateMonotonicInIdleTime(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()
	status := domain.TorrentStatus{InfoHash: "aaa", Tracker: "open.example.com", Seeders: 50, SizeBytes: 10 << 30}

	var prev float64
	for _, days := range []int{31, 60, 120, 400} {
		meta := domain.Meta{InfoHash: "aaa", Managed: true, AccessedAt: now.Add(-time.Duration(days) * 24 * time.Hour)}
		ev, err := Evaluate(now, cfg, status, meta)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if ev.Priority <= prev {
			t.Errorf("idle %d days: priority %g not above %g", days, ev.Priority, prev)
		}
		prev = ev.Priority
	}
}

func TestEvaluateMonotonicInSize(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()
	meta := domain.Meta{InfoHash: "aaa", Managed: true, AccessedAt: now.Add(-60 * 24 * time.Hour)}

	var prev float64
	for _, sizeGiB := range []int64{1, 5, 20, 100} {
		status := domain.TorrentStatus{InfoHash: "aaa", Tracker: "open.example.com", Seeders: 50, SizeBytes: sizeGiB << 30}
		ev, err := Evaluate(now, cfg, status, meta)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if ev.Priority <= prev {
			t.Errorf("size %d GiB: priority %g not above %g", sizeGiB, ev.Priority, prev)
		}
		prev = ev.Priority
	}
}

func TestEvaluateRareSwarmScoresLower(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()
	meta := domain.Meta{InfoHash: "aaa", Managed: true, AccessedAt: now.Add(-60 * 24 * time.Hour)}

	soleSeed := domain.TorrentStatus{InfoHash: "aaa", Tracker: "open.example.com", Seeders: 0, SizeBytes: 10 << 30}
	healthy := domain.TorrentStatus{InfoHash: "aaa", Tracker: "open.example.com", Seeders: 100, SizeBytes: 10 << 30}

	rare, err := Evaluate(now, cfg, soleSeed, meta)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	common, err := Evaluate(now, cfg, healthy, meta)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rare.Priority >= common.Priority {
		t.Errorf("sole seed priority %g should be below healthy swarm priority %g", rare.Priority, common.Priority)
	}
	if rare.Priority <= 0 {
		t.Errorf("sole seed priority = %g, want > 0", rare.Priority)
	}
}

func TestEvaluateFutureAccessTimeClamps(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()
	// An access timestamp ahead of the clock stays inside the pin window, so
	// the clamp only matters with a zero pin window.
	cfg.PinTime = time.Nanosecond

	status := domain.TorrentStatus{InfoHash: "aaa", Tracker: "open.example.com", Seeders: 50, SizeBytes: 10 << 30}
	meta := domain.Meta{InfoHash: "aaa", Managed: true, AccessedAt: now.Add(-time.Hour)}

	ev, err := Evaluate(now, cfg, status, meta)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Priority < 0 {
		t.Errorf("priority = %g, want >= 0", ev.Priority)
	}
}

func TestEvaluateInconsistentInput(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	status := domain.TorrentStatus{InfoHash: "aaa"}
	meta := domain.Meta{InfoHash: "bbb", Managed: true}

	_, err := Evaluate(now, cfg, status, meta)
	if !errors.Is(err, domain.ErrInconsistentInput) {
		t.Fatalf("err = %v, want ErrInconsistentInput", err)
	}
}

func TestEvaluateLongIdleScenario(t *testing.T) {
	// managed, last accessed 400 days ago, 30-day pin window, no threshold,
	// no hit-and-run rule, healthy swarm: eligible with a positive priority.
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := testConfig()

	status := domain.TorrentStatus{
		InfoHash:  "deadbeef",
		Tracker:   "open.example.com",
		Seeders:   50,
		SeedTime:  400 * 24 * time.Hour,
		Ratio:     3.5,
		SizeBytes: 8 << 30,
	}
	meta := domain.Meta{InfoHash: "deadbeef", Managed: true, AccessedAt: now.Add(-400 * 24 * time.Hour)}

	pinned, err := IsPinned(now, cfg, status, meta)
	if err != nil {
		t.Fatalf("IsPinned: %v", err)
	}
	if pinned {
		t.Fatal("expected not pinned")
	}

	ev, err := Evaluate(now, cfg, status, meta)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Priority <= 0 {
		t.Fatalf("priority = %g, want > 0", ev.Priority)
	}

	// Doubling idle time and size each raises the score.
	olderMeta := meta
	olderMeta.AccessedAt = now.Add(-800 * 24 * time.Hour)
	older, err := Evaluate(now, cfg, status, olderMeta)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if older.Priority <= ev.Priority {
		t.Errorf("doubled idle: priority %g not above %g", older.Priority, ev.Priority)
	}

	bigger := status
	bigger.SizeBytes *= 2
	big, err := Evaluate(now, cfg, bigger, meta)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if big.Priority <= ev.Priority {
		t.Errorf("doubled size: priority %g not above %g", big.Priority, ev.Priority)
	}
}
