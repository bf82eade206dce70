package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// HostStats is a point-in-time snapshot of the host the service runs on
type HostStats struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsed    uint64    `json:"memory_used"`
	MemoryTotal   uint64    `json:"memory_total"`
	CollectedAt   time.Time `json:"collected_at"`
}

// MetricsCollector samples host CPU and memory usage on an interval and
// publishes snapshots on the bus. The latest snapshot backs /health.
type MetricsCollector struct {
	logger   *zap.Logger
	js       nats.JetStreamContext
	interval time.Duration
	mu       sync.RWMutex
	latest   *HostStats
	stop     chan struct{}
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(js nats.JetStreamContext, interval time.Duration, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		logger:   logger.Named("metrics-collector"),
		js:       js,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start starts the collection loop
func (c *MetricsCollector) Start(ctx context.Context) error {
	if c.js != nil {
		_, err := c.js.StreamInfo("METRICS")
		if err != nil {
			if err != nats.ErrStreamNotFound {
				return fmt.Errorf("failed to get stream info: %w", err)
			}
			_, err = c.js.AddStream(&nats.StreamConfig{
				Name:     "METRICS",
				Subjects: []string{"metrics.*"},
				Storage:  nats.FileStorage,
				MaxAge:   24 * time.Hour,
			})
			if err != nil {
				return fmt.Errorf("failed to create stream: %w", err)
			}
		}
	}

	c.logger.Info("Starting metrics collector")
	go c.collectLoop(ctx)
	return nil
}

// Stop stops the metrics collector
func (c *MetricsCollector) Stop() {
	c.logger.Info("Stopping metrics collector")
	close(c.stop)
}

// Latest returns the most recent host snapshot, or nil before the first pass
func (c *MetricsCollector) Latest() *HostStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// collectLoop runs the metrics collection loop
func (c *MetricsCollector) collectLoop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.collectMetrics()
		}
	}
}

// collectMetrics collects one host snapshot and publishes it
func (c *MetricsCollector) collectMetrics() {
	stats := &HostStats{CollectedAt: time.Now()}

	cpuPercent, err := cpu.Percent(0, false)
	if err != nil {
		c.logger.Error("Failed to get CPU usage", zap.Error(err))
		return
	}
	if len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		c.logger.Error("Failed to get memory usage", zap.Error(err))
		return
	}
	stats.MemoryPercent = memInfo.UsedPercent
	stats.MemoryUsed = memInfo.Used
	stats.MemoryTotal = memInfo.Total

	c.mu.Lock()
	c.latest = stats
	c.mu.Unlock()

	if c.js == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		c.logger.Error("Failed to marshal host stats", zap.Error(err))
		return
	}
	if _, err := c.js.Publish("metrics.host", data); err != nil {
		c.logger.Error("Failed to publish host stats", zap.Error(err))
		return
	}

	c.logger.Debug("Host stats collected",
		zap.Float64("cpu_percent", stats.CPUPercent),
		zap.Float64("memory_percent", stats.MemoryPercent))
}
