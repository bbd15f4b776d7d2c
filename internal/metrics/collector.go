package metrics

import (
	"context"
	"os"
	"time"

	"genai-gallery/internal/logging"
)

// StatsProvider supplies catalog totals to the collector.
type StatsProvider interface {
	CollectorStats(ctx context.Context) (Stats, error)
}

// Stats holds the current catalog statistics
type Stats struct {
	TotalEntries        int
	EntriesWithMetadata int
	TotalMetadataPairs  int
	DistinctKeys        int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectDBSize()

	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	stats, err := c.statsProvider.CollectorStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	CatalogEntriesTotal.Set(float64(stats.TotalEntries))
	CatalogEntriesWithMetadata.Set(float64(stats.EntriesWithMetadata))
	CatalogMetadataPairsTotal.Set(float64(stats.TotalMetadataPairs))
	CatalogMetadataKeysTotal.Set(float64(stats.DistinctKeys))

	logging.Debug("Metrics collected: entries=%d, with_metadata=%d, pairs=%d, keys=%d",
		stats.TotalEntries, stats.EntriesWithMetadata, stats.TotalMetadataPairs, stats.DistinctKeys)
}

// collectDBSize records the size of the SQLite main, WAL and SHM files.
// Missing files report zero.
func (c *Collector) collectDBSize() {
	if c.dbPath == "" {
		return
	}
	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		var size int64
		if info, err := os.Stat(c.dbPath + suffix); err == nil {
			size = info.Size()
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(size))
	}
}
