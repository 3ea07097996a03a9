// Client-side lifecycle for following one podcast generation job: poll
// the status endpoint on a fixed cadence, absorb exactly one terminal
// outcome, and deliver it exactly once.

package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/podmill/podmill-go/internal/models"
)

const (
	// DefaultInterval is the fixed delay between poll ticks.
	DefaultInterval = 2 * time.Second

	// completionResolveTimeout bounds the best-effort lookup of the
	// full podcast record after a completed status.
	completionResolveTimeout = 10 * time.Second
)

// StatusClient is the transport the tracker polls through. The API
// client implements it.
type StatusClient interface {
	PodcastStatus(ctx context.Context, id string) (*models.StatusSnapshot, error)
	ListPodcasts(ctx context.Context) ([]*models.Podcast, error)
}

// Result is the single terminal outcome of a tracked job. Podcast is
// set when completion resolution succeeded; Snapshot is the last
// accepted observation; Err is nil exactly when the job completed.
type Result struct {
	Podcast  *models.Podcast
	Snapshot *models.StatusSnapshot
	Err      error
}

// Tracker follows one podcast generation job until it reaches a
// terminal state or is stopped. The state machine is absorbing: once
// stopped, every input is discarded, including responses from fetches
// that were still in flight.
type Tracker struct {
	client    StatusClient
	podcastID string
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	stopped  bool
	seq      uint64 // Sequence number of the most recently issued fetch
	snapshot *models.StatusSnapshot
	ticker   *time.Ticker

	resultOnce sync.Once
	resultCh   chan Result
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithInterval overrides the poll interval. Non-positive values keep
// the default.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// New creates a tracker for the given podcast. Nothing happens, and
// nothing is ever delivered, until Start is called.
func New(client StatusClient, podcastID string, opts ...Option) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		client:    client,
		podcastID: podcastID,
		interval:  DefaultInterval,
		ctx:       ctx,
		cancel:    cancel,
		resultCh:  make(chan Result, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Result returns the one-shot channel the terminal outcome is
// delivered on. It receives at most one value per tracker.
func (t *Tracker) Result() <-chan Result {
	return t.resultCh
}

// Snapshot returns a copy of the last accepted observation, or nil
// before the first successful fetch.
func (t *Tracker) Snapshot() *models.StatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot == nil {
		return nil
	}
	c := *t.snapshot
	return &c
}

// Start launches the poll loop: one immediate fetch, then one per
// tick. Calling Start again, or after Stop, does nothing.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.ticker = time.NewTicker(t.interval)
	t.mu.Unlock()

	go t.loop()
}

// Stop cancels polling and suppresses any future delivery, unless a
// terminal state was already absorbed, in which case its delivery
// stands. Stop is idempotent and safe to call concurrently.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopLocked()
}

// stopLocked moves the machine into the absorbed stopped state. The
// caller holds mu.
func (t *Tracker) stopLocked() {
	t.stopped = true
	t.cancel()
	if t.ticker != nil {
		t.ticker.Stop()
	}
}

func (t *Tracker) loop() {
	t.launchFetch()
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.ticker.C:
			t.launchFetch()
		}
	}
}

// launchFetch issues the next fetch in its own goroutine so a slow
// response never delays the cadence. Each fetch carries a sequence
// number; only the most recently issued one can be accepted.
func (t *Tracker) launchFetch() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	go func() {
		snapshot, err := t.client.PodcastStatus(t.ctx, t.podcastID)
		t.handleResponse(seq, snapshot, err)
	}()
}

func (t *Tracker) handleResponse(seq uint64, snapshot *models.StatusSnapshot, err error) {
	t.mu.Lock()
	if t.stopped || seq != t.seq {
		t.mu.Unlock()
		return
	}

	if err != nil {
		if !IsTerminalError(err) {
			// Transient: keep polling, nothing surfaces.
			t.mu.Unlock()
			return
		}
		last := t.snapshot
		t.stopLocked()
		t.mu.Unlock()
		t.deliver(Result{Snapshot: last, Err: errors.New(FailureMessage(err))})
		return
	}

	accepted := *snapshot
	if accepted.Progress < 0 {
		accepted.Progress = 0
	} else if accepted.Progress > 100 {
		accepted.Progress = 100
	}

	switch accepted.Status {
	case models.StatusProcessing:
		t.snapshot = &accepted
		t.mu.Unlock()

	case models.StatusCompleted:
		t.snapshot = &accepted
		t.stopLocked()
		t.mu.Unlock()
		t.deliver(Result{Podcast: t.resolveCompletion(accepted.PodcastID), Snapshot: &accepted})

	case models.StatusFailed:
		t.snapshot = &accepted
		message := accepted.ErrorMessage
		if message == "" {
			message = "podcast generation failed"
		}
		t.stopLocked()
		t.mu.Unlock()
		t.deliver(Result{Snapshot: &accepted, Err: errors.New(message)})

	default:
		// An unknown status value breaks the wire contract; the
		// snapshot is not stored.
		last := t.snapshot
		t.stopLocked()
		t.mu.Unlock()
		t.deliver(Result{Snapshot: last, Err: fmt.Errorf("unexpected status %q in status response", string(accepted.Status))})
	}
}

// resolveCompletion fetches the full podcast record after completion.
// Best-effort: on any failure the result degrades to the snapshot
// alone. The poll context is already cancelled, so this runs under its
// own deadline.
func (t *Tracker) resolveCompletion(id string) *models.Podcast {
	ctx, cancel := context.WithTimeout(context.Background(), completionResolveTimeout)
	defer cancel()

	podcasts, err := t.client.ListPodcasts(ctx)
	if err != nil {
		return nil
	}
	for _, p := range podcasts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (t *Tracker) deliver(res Result) {
	t.resultOnce.Do(func() {
		t.resultCh <- res
	})
}
