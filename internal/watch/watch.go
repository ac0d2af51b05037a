// Package watch polls a classpath snapshot and reports when it stops being
// Equal to the last one observed.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cpsnap/internal/logging"
	"cpsnap/internal/snapshot"
)

// DefaultInterval is used when Options.Interval is not positive.
const DefaultInterval = 5 * time.Second

// SnapshotFunc produces the current snapshot of the watched classpath.
type SnapshotFunc func(ctx context.Context) (snapshot.Snapshot, error)

// Change describes one detected transition.
type Change struct {
	Previous   snapshot.Snapshot
	Current    snapshot.Snapshot
	Difference snapshot.Difference
	DetectedAt time.Time
}

// Options tunes the watcher.
type Options struct {
	Interval time.Duration
	Logger   *slog.Logger
	// OnChange runs for every detected change. When it returns an error the
	// previous snapshot is kept, so the same change is reported again on the
	// next poll. It runs with the watcher locked and must not call back into it.
	OnChange func(ctx context.Context, change Change) error
}

// Stats are point-in-time counters.
type Stats struct {
	Checks          int64 `json:"checks"`
	ChangesDetected int64 `json:"changes_detected"`
	Errors          int64 `json:"errors"`
}

// Watcher polls a SnapshotFunc. It is safe for concurrent use.
type Watcher struct {
	source   SnapshotFunc
	interval time.Duration
	onChange func(context.Context, Change) error
	logger   *slog.Logger

	mu      sync.Mutex
	current snapshot.Snapshot
	seeded  bool

	checks  atomic.Int64
	changes atomic.Int64
	errors  atomic.Int64
}

// New returns a Watcher over source.
func New(source SnapshotFunc, opts Options) (*Watcher, error) {
	if source == nil {
		return nil, errors.New("watch: nil snapshot source")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Watcher{
		source:   source,
		interval: opts.Interval,
		onChange: opts.OnChange,
		logger:   logging.NewComponentLogger(opts.Logger, "watch"),
	}, nil
}

// ForRoots watches the given roots through s.
func ForRoots(s *snapshot.Snapshotter, roots []string, opts Options) (*Watcher, error) {
	if s == nil {
		return nil, errors.New("watch: nil snapshotter")
	}
	return New(func(ctx context.Context) (snapshot.Snapshot, error) {
		return s.Snapshot(ctx, roots)
	}, opts)
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Checks:          w.checks.Load(),
		ChangesDetected: w.changes.Load(),
		Errors:          w.errors.Load(),
	}
}

// Current returns the last accepted snapshot and whether one exists yet.
func (w *Watcher) Current() (snapshot.Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current, w.seeded
}

// Check takes one snapshot and compares it with the last accepted one. The
// first successful check only seeds the baseline and reports no change.
func (w *Watcher) Check(ctx context.Context) (bool, error) {
	w.checks.Add(1)
	snap, err := w.source(ctx)
	if err != nil {
		w.errors.Add(1)
		return false, fmt.Errorf("take snapshot: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.seeded {
		w.current, w.seeded = snap, true
		w.logger.Debug("watch baseline taken",
			logging.String(logging.FieldDigest, snap.Digest().String()),
			logging.Int("file_count", snap.Len()))
		return false, nil
	}
	if w.current.Equal(snap) {
		return false, nil
	}

	w.changes.Add(1)
	change := Change{
		Previous:   w.current,
		Current:    snap,
		Difference: snapshot.Compare(w.current, snap),
		DetectedAt: time.Now().UTC(),
	}
	attrs := append([]logging.Attr{
		logging.String(logging.FieldEventType, "classpath_changed"),
		logging.String("previous_digest", change.Previous.Digest().String()),
		logging.String(logging.FieldDigest, snap.Digest().String()),
	}, change.Difference.Attrs()...)
	w.logger.Info("classpath changed", logging.Args(attrs...)...)

	if w.onChange != nil {
		if err := w.onChange(ctx, change); err != nil {
			w.errors.Add(1)
			return true, fmt.Errorf("change handler: %w", err)
		}
	}
	w.current = snap
	return true, nil
}

// Run polls until ctx is done. Failed checks are logged and counted; the
// loop keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watch started", logging.Duration("interval", w.interval))
	w.runCheck(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped",
				logging.Int64("checks", w.checks.Load()),
				logging.Int64("changes_detected", w.changes.Load()),
				logging.Int64("errors", w.errors.Load()))
			return nil
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *Watcher) runCheck(ctx context.Context) {
	if _, err := w.Check(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(w.logger, "classpath check failed", "watch_check_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the check is retried on the next interval"),
			logging.String(logging.FieldImpact, "changes may be reported late"))
	}
}
