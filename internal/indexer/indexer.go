package indexer

import (
	"context"
	"sync"
	"time"

	"genai-gallery/internal/database"
	"genai-gallery/internal/logging"
)

// Indexer runs the initial reconciliation at startup and, when a poll
// interval is set, keeps reconciling in the background through the
// coordinator.
type Indexer struct {
	coord        *Coordinator
	db           *database.Database
	pollInterval time.Duration
	startTime    time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu                sync.Mutex
	initialComplete   bool
	initialSyncError  error
	onInitialComplete func()
}

// New creates an Indexer. A pollInterval of 0 disables background polling;
// reads still reconcile on demand.
func New(coord *Coordinator, db *database.Database, pollInterval time.Duration) *Indexer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		coord:        coord,
		db:           db,
		pollInterval: pollInterval,
		startTime:    time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetOnInitialComplete sets a callback invoked after the first successful
// pass.
func (idx *Indexer) SetOnInitialComplete(callback func()) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.onInitialComplete = callback
}

// Start launches the initial pass and the poller in the background.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial sync in background...")
		idx.initialSync()
		if idx.pollInterval > 0 {
			idx.poll()
		}
	}()
}

// Stop ends the background loop and waits for it. A pass already in flight
// runs to completion unless the coordinator is closed first.
func (idx *Indexer) Stop() {
	idx.cancel()
	idx.wg.Wait()
}

func (idx *Indexer) initialSync() {
	// A busy coordinator means another caller is already running a pass;
	// keep trying until one succeeds so readiness is meaningful.
	retry := time.NewTicker(time.Second)
	defer retry.Stop()

	for {
		_, err := idx.coord.Reconcile(idx.ctx)
		if err == nil && !idx.coord.LastRun().IsZero() {
			idx.markInitialComplete(nil)
			return
		}
		if err != nil {
			logging.Error("Initial sync error: %v", err)
			idx.markInitialComplete(err)
		}

		select {
		case <-retry.C:
		case <-idx.ctx.Done():
			return
		}
	}
}

func (idx *Indexer) markInitialComplete(err error) {
	idx.mu.Lock()
	idx.initialSyncError = err
	var callback func()
	if err == nil && !idx.initialComplete {
		idx.initialComplete = true
		callback = idx.onInitialComplete
	}
	idx.mu.Unlock()

	if callback != nil {
		callback()
	}
}

// poll reconciles on every tick until stopped.
func (idx *Indexer) poll() {
	logging.Info("Starting background sync polling (interval: %v)", idx.pollInterval)

	ticker := time.NewTicker(idx.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := idx.coord.Reconcile(idx.ctx); err != nil {
				logging.Error("Background sync failed: %v", err)
			}
		case <-idx.ctx.Done():
			logging.Info("Background sync polling stopped")
			return
		}
	}
}

// IsReady returns true once a pass has succeeded.
func (idx *Indexer) IsReady() bool {
	return !idx.coord.LastRun().IsZero()
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready            bool                   `json:"ready"`
	Syncing          bool                   `json:"syncing"`
	StartTime        time.Time              `json:"startTime"`
	Uptime           string                 `json:"uptime"`
	LastSync         *database.SyncRecord   `json:"lastSync,omitempty"`
	LastResult       *Result                `json:"lastResult,omitempty"`
	LastError        string                 `json:"lastError,omitempty"`
	InitialSyncError string                 `json:"initialSyncError,omitempty"`
	Catalog          *database.CatalogStats `json:"catalog,omitempty"`
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Ready:     idx.IsReady(),
		Syncing:   idx.coord.Running(),
		StartTime: idx.startTime,
		Uptime:    time.Since(idx.startTime).String(),
	}

	res, err := idx.coord.LastResult()
	if res.RunID != "" {
		status.LastResult = &res
	}
	if err != nil {
		status.LastError = err.Error()
	}

	idx.mu.Lock()
	if idx.initialSyncError != nil {
		status.InitialSyncError = idx.initialSyncError.Error()
	}
	idx.mu.Unlock()

	if idx.db == nil {
		return status
	}

	if rec, ok, err := idx.db.LastSync(ctx); err != nil {
		logging.Warn("Failed to read last sync record: %v", err)
	} else if ok {
		status.LastSync = &rec
	}

	if stats, err := idx.db.CalculateStats(ctx); err != nil {
		logging.Warn("Failed to calculate catalog stats: %v", err)
	} else {
		status.Catalog = &stats
	}

	return status
}
