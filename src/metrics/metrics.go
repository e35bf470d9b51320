// Package metrics 统计迁移执行情况，并以 Prometheus 文本格式导出
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lending-desk/lending/src/pkg/migration"
)

const namespace = "lending"

// Collector 实现 migration.Observer
type Collector struct {
	registry *prometheus.Registry

	applied       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	duration      prometheus.Histogram
	schemaVersion prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

var _ migration.Observer = (*Collector)(nil)

// New 创建独立 Registry 上的指标集合
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "applied_total",
			Help:      "Number of migrations applied, by version.",
		}, []string{"version"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "failures_total",
			Help:      "Number of migration scripts that failed, by version.",
		}, []string{"version"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "duration_seconds",
			Help:      "Time spent executing a single migration script.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		schemaVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schema_version",
			Help:      "Highest schema version recorded in the ledger.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successfully applied migration.",
		}),
	}
	c.registry.MustRegister(c.applied, c.failures, c.duration, c.schemaVersion, c.lastSuccess)
	return c
}

func (c *Collector) MigrationApplied(m migration.Migration, elapsed time.Duration) {
	c.applied.WithLabelValues(strconv.FormatUint(uint64(m.Version), 10)).Inc()
	c.duration.Observe(elapsed.Seconds())
	c.lastSuccess.SetToCurrentTime()
}

func (c *Collector) MigrationFailed(m migration.Migration, _ error) {
	c.failures.WithLabelValues(strconv.FormatUint(uint64(m.Version), 10)).Inc()
}

func (c *Collector) SchemaVersion(version uint) {
	c.schemaVersion.Set(float64(version))
}

// WriteTextfile 把当前指标写入 path（node_exporter textfile collector 格式）
func (c *Collector) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
