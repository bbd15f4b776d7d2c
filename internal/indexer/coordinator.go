package indexer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"genai-gallery/internal/logging"
	"genai-gallery/internal/metrics"
)

const (
	// DefaultCooldown is the minimum time between successful passes.
	DefaultCooldown = 2 * time.Second

	// DefaultFileWait bounds how long ReconcileFile waits for a running pass.
	DefaultFileWait = 30 * time.Second
)

// ErrBusy is returned by ReconcileFile when the coordinator lock could not
// be taken within the wait budget.
var ErrBusy = errors.New("reconciliation in progress")

// Runner is the work the coordinator serializes.
type Runner interface {
	Run(ctx context.Context) (Result, error)
	ReconcileFile(ctx context.Context, relPath string, opts FileOptions) (FileResult, error)
}

// Coordinator is the single-flight gate in front of the reconciler. Callers
// may ask for a pass before every read; at most one pass runs at a time and
// none starts within the cooldown of the last successful one.
type Coordinator struct {
	runner   Runner
	cooldown time.Duration
	fileWait time.Duration

	// sem is the pass lock; a buffered channel allows both try-lock and
	// bounded waits.
	sem chan struct{}

	// ctx bounds every pass. Callers only decide whether a pass starts.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	lastRun    time.Time
	lastResult Result
	lastErr    error

	now func() time.Time
	log zerolog.Logger
}

// NewCoordinator creates a coordinator. A cooldown <= 0 selects
// DefaultCooldown.
func NewCoordinator(runner Runner, cooldown time.Duration) *Coordinator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:      ctx,
		cancel:   cancel,
		runner:   runner,
		cooldown: cooldown,
		fileWait: DefaultFileWait,
		sem:      make(chan struct{}, 1),
		now:      time.Now,
		log:      logging.Component("coordinator"),
	}
}

// SetFileWait sets how long ReconcileFile waits for the lock.
func (c *Coordinator) SetFileWait(d time.Duration) {
	if d > 0 {
		c.fileWait = d
	}
}

// Reconcile runs a pass unless one succeeded within the cooldown or one is
// already running; both of those return immediately with ran=false and a
// nil error. A failed pass returns its error and does not start the
// cooldown. Cancelling ctx after the pass has started does not abort it;
// only Close does.
func (c *Coordinator) Reconcile(ctx context.Context) (ran bool, err error) {
	if c.coolingDown() {
		metrics.CoordinatorDecisionsTotal.WithLabelValues("cooldown").Inc()
		return false, nil
	}

	select {
	case c.sem <- struct{}{}:
	default:
		metrics.CoordinatorDecisionsTotal.WithLabelValues("busy").Inc()
		c.log.Debug().Msg("reconcile already running, serving current state")
		return false, nil
	}
	defer c.release()

	// Another caller may have finished a pass between the check and the lock.
	if c.coolingDown() {
		metrics.CoordinatorDecisionsTotal.WithLabelValues("cooldown").Inc()
		return false, nil
	}

	metrics.CoordinatorDecisionsTotal.WithLabelValues("ran").Inc()
	passCtx, done := c.passContext(ctx)
	defer done()
	res, err := c.runner.Run(passCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	if err != nil {
		return true, err
	}
	c.lastRun = c.now()
	c.lastResult = res
	return true, nil
}

// ReconcileFile runs a single-file reconciliation under the pass lock,
// waiting up to the file-wait budget for a running pass to finish. It does
// not consult or reset the cooldown.
func (c *Coordinator) ReconcileFile(ctx context.Context, relPath string, opts FileOptions) (FileResult, error) {
	timer := time.NewTimer(c.fileWait)
	defer timer.Stop()

	select {
	case c.sem <- struct{}{}:
	case <-timer.C:
		return FileResult{}, ErrBusy
	case <-ctx.Done():
		return FileResult{}, ctx.Err()
	}
	defer c.release()

	passCtx, done := c.passContext(ctx)
	defer done()
	return c.runner.ReconcileFile(passCtx, relPath, opts)
}

// Close aborts any running pass and makes later passes fail immediately.
func (c *Coordinator) Close() {
	c.cancel()
}

// passContext keeps the caller's values but takes cancellation from the
// coordinator lifetime instead of the caller.
func (c *Coordinator) passContext(ctx context.Context) (context.Context, context.CancelFunc) {
	passCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if c.ctx.Err() != nil {
		cancel()
	}
	stop := context.AfterFunc(c.ctx, cancel)
	return passCtx, func() {
		stop()
		cancel()
	}
}

// Running reports whether a pass or single-file reconciliation holds the
// lock.
func (c *Coordinator) Running() bool {
	return len(c.sem) > 0
}

// LastRun returns the completion time of the last successful pass, or the
// zero time if none has succeeded.
func (c *Coordinator) LastRun() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun
}

// LastResult returns the summary of the last successful pass and the error
// of the most recent attempt, if it failed.
func (c *Coordinator) LastResult() (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult, c.lastErr
}

func (c *Coordinator) coolingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.lastRun.IsZero() && c.now().Sub(c.lastRun) < c.cooldown
}

func (c *Coordinator) release() {
	<-c.sem
}
