package metrics

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"
)

// StoreStats contains contact store statistics for metrics
type StoreStats struct {
	Contacts int
	Segments int
}

// StoreStatsProvider provides contact store statistics for metrics
type StoreStatsProvider interface {
	Stats(ctx context.Context) (*StoreStats, error)
}

// Collector periodically refreshes system and store gauges
type Collector struct {
	metrics     *Metrics
	store       StoreStatsProvider
	storagePath string
	interval    time.Duration
	startTime   time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollector creates a new gauge collector. store and storagePath are optional.
func NewCollector(m *Metrics, store StoreStatsProvider, storagePath string, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Collector{
		metrics:     m,
		store:       store,
		storagePath: storagePath,
		interval:    interval,
		startTime:   time.Now(),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the collector background loop
func (c *Collector) Start(ctx context.Context) {
	c.collect(ctx)

	c.wg.Add(1)
	go c.loop(ctx)
}

// Stop stops the background loop and waits for it to exit
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Collector) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

// collect updates all gauges from the current state
func (c *Collector) collect(ctx context.Context) {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.storagePath != "" {
		if info, err := os.Stat(c.storagePath); err == nil {
			c.metrics.StorageUsedBytes.Set(float64(info.Size()))
		}
	}

	if c.store != nil {
		stats, err := c.store.Stats(ctx)
		if err == nil && stats != nil {
			c.metrics.ContactsTotal.Set(float64(stats.Contacts))
			c.metrics.SegmentsTotal.Set(float64(stats.Segments))
		}
	}
}
