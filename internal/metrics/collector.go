// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 工作流指标收集器，实现 workflow.MetricsRecorder
type Collector struct {
	// 运行指标
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	lastRunFinish *prometheus.GaugeVec

	// 步骤指标
	stepExecutionsTotal *prometheus.CounterVec
	stepDuration        *prometheus.HistogramVec

	// 回滚指标
	rollbackInvocationsTotal *prometheus.CounterVec

	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewCollector 创建指标收集器
// 指标注册在独立的 Registry 上，进程内可以存在多个 Collector。
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total number of workflow runs",
		},
		[]string{"goal", "status"},
	)

	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_run_duration_seconds",
			Help:      "Workflow run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"goal"},
	)

	c.lastRunFinish = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflow_last_run_timestamp_seconds",
			Help:      "Unix time the last workflow run finished",
		},
		[]string{"goal", "status"},
	)

	c.stepExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_executions_total",
			Help:      "Total number of processing step executions",
		},
		[]string{"goal", "step", "section", "status"},
	)

	c.stepDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Processing step duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"goal", "step", "section"},
	)

	c.rollbackInvocationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollback_invocations_total",
			Help:      "Total number of rollback handler invocations",
		},
		[]string{"goal", "step", "handler", "status"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// Registry 返回收集器使用的 Registry，可用于 promhttp 或 textfile 导出
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// =============================================================================
// 🔁 工作流指标记录
// =============================================================================

// RecordRun 记录一次工作流运行
func (c *Collector) RecordRun(goal, status string, duration time.Duration) {
	c.runsTotal.WithLabelValues(goal, status).Inc()
	c.runDuration.WithLabelValues(goal).Observe(duration.Seconds())
	c.lastRunFinish.WithLabelValues(goal, status).SetToCurrentTime()
}

// RecordStep 记录一次步骤执行
func (c *Collector) RecordStep(goal, step, section, status string, duration time.Duration) {
	c.stepExecutionsTotal.WithLabelValues(goal, step, section, status).Inc()
	c.stepDuration.WithLabelValues(goal, step, section).Observe(duration.Seconds())
}

// RecordRollback 记录一次回滚处理器调用
func (c *Collector) RecordRollback(goal, step, handler, status string) {
	c.rollbackInvocationsTotal.WithLabelValues(goal, step, handler, status).Inc()
}

// =============================================================================
// 📤 导出
// =============================================================================

// WriteTextfile 以 node_exporter textfile collector 格式写出全部指标
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	c.logger.Debug("metrics written", zap.String("path", path))
	return nil
}
