package app

import (
	"context"
	"io"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
)

// SyncOption configures a SyncDispatcher.
type SyncOption func(*SyncDispatcher)

// WithSyncLogger routes sync diagnostics to logger.
func WithSyncLogger(logger *charmLog.Logger) SyncOption {
	return func(d *SyncDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSyncTimeout bounds each push.
func WithSyncTimeout(timeout time.Duration) SyncOption {
	return func(d *SyncDispatcher) {
		d.timeout = timeout
	}
}

// WithSyncClock sets the clock used to stamp snapshots.
func WithSyncClock(clock Clock) SyncOption {
	return func(d *SyncDispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithSyncObserver registers a callback run after every push attempt.
func WithSyncObserver(fn func(Snapshot, error)) SyncOption {
	return func(d *SyncDispatcher) {
		d.observe = fn
	}
}

// SyncDispatcher pushes store snapshots to a Syncer off the caller's path.
// Triggers that arrive while a push is pending collapse into one push, and
// failures are logged rather than returned to the trigger site.
type SyncDispatcher struct {
	repo    Repository
	syncer  Syncer
	clock   Clock
	logger  *charmLog.Logger
	timeout time.Duration
	observe func(Snapshot, error)

	pending   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewSyncDispatcher builds a dispatcher. A nil syncer yields a disabled dispatcher.
func NewSyncDispatcher(repo Repository, syncer Syncer, opts ...SyncOption) *SyncDispatcher {
	d := &SyncDispatcher{
		repo:    repo,
		syncer:  syncer,
		clock:   time.Now,
		logger:  charmLog.New(io.Discard),
		pending: make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Enabled reports whether a syncer is configured.
func (d *SyncDispatcher) Enabled() bool {
	return d != nil && d.syncer != nil
}

// Trigger schedules a push without blocking. It reports false when the
// dispatcher is disabled or closed.
func (d *SyncDispatcher) Trigger() bool {
	if !d.Enabled() {
		return false
	}
	select {
	case <-d.closed:
		return false
	default:
	}
	select {
	case d.pending <- struct{}{}:
	default:
	}
	return true
}

// Run drains triggers until ctx is done or Close is called.
func (d *SyncDispatcher) Run(ctx context.Context) error {
	if !d.Enabled() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.closed:
			return nil
		case <-d.pending:
			_, _ = d.push(ctx)
		}
	}
}

// SyncNow pushes once on the calling goroutine.
func (d *SyncDispatcher) SyncNow(ctx context.Context) error {
	if !d.Enabled() {
		return nil
	}
	_, err := d.push(ctx)
	return err
}

// Startup pushes once when the store holds any data.
func (d *SyncDispatcher) Startup(ctx context.Context) error {
	if !d.Enabled() {
		return nil
	}
	snap, err := ExportSnapshot(ctx, d.repo, d.clock())
	if err != nil {
		return err
	}
	if snap.Empty() {
		d.logger.Debug("startup sync skipped, store is empty")
		return nil
	}
	d.Trigger()
	return nil
}

// Close stops Run and rejects further triggers.
func (d *SyncDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.closed)
	})
}

func (d *SyncDispatcher) push(ctx context.Context) (Snapshot, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	snap, err := ExportSnapshot(ctx, d.repo, d.clock())
	if err != nil {
		d.logger.Warn("sync snapshot failed", "err", err)
		d.notify(Snapshot{}, err)
		return Snapshot{}, err
	}
	ack, err := d.syncer.Push(ctx, snap)
	if err != nil {
		d.logger.Warn("sync push failed", "projects", len(snap.Projects), "tasks", len(snap.Tasks), "err", err)
		d.notify(snap, err)
		return snap, err
	}
	d.logger.Debug("sync push complete", "projects", len(ack.Projects), "tasks", len(ack.Tasks))
	d.notify(ack, nil)
	return ack, nil
}

func (d *SyncDispatcher) notify(snap Snapshot, err error) {
	if d.observe != nil {
		d.observe(snap, err)
	}
}
