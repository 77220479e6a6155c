// Package metrics 提供定价运行的 Prometheus 指标
// 指标注册在共享的服务注册表上 (含 Go 运行时与进程指标，可经 HTTP 暴露)，
// 同时登记到私有注册表，批处理结束时导出为 textfile。
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	basemetrics "github.com/wyfcoding/pkg/metrics"

	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	base     *basemetrics.Metrics
	registry *prometheus.Registry

	// 定价次数，按模型与结果状态
	PricingRunsTotal *prometheus.CounterVec
	// 定价耗时
	PricingDuration *prometheus.HistogramVec
	// 树方法最终步数
	LatticeSteps *prometheus.HistogramVec
	// 格式回退次数
	SchemeFallbacksTotal *prometheus.CounterVec
	// 未收敛告警次数
	ConvergenceWarningsTotal *prometheus.CounterVec
	// 希腊字母计算次数，按估计方法
	GreeksTotal *prometheus.CounterVec
}

// New 创建指标实例
func New(namespace, serviceName string) *Metrics {
	base := basemetrics.NewMetrics(serviceName)
	return &Metrics{
		base:     base,
		registry: prometheus.NewRegistry(),
		PricingRunsTotal: base.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "pricing_runs_total",
			Help:      "Total pricing runs",
		}, []string{"model", "status"}),
		PricingDuration: base.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "pricing_duration_seconds",
			Help:      "Pricing run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"model"}),
		LatticeSteps: base.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "lattice_steps",
			Help:      "Final lattice step count after adaptive refinement",
			Buckets:   prometheus.ExponentialBuckets(25, 2, 10),
		}, nil),
		SchemeFallbacksTotal: base.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "scheme_fallbacks_total",
			Help:      "Invalid schemes substituted by the fallback scheme",
		}, []string{"scheme"}),
		ConvergenceWarningsTotal: base.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "convergence_warnings_total",
			Help:      "Adaptive refinements that hit the step ceiling",
		}, []string{"scheme"}),
		GreeksTotal: base.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "greeks_total",
			Help:      "Greeks computed by estimation method",
		}, []string{"greek", "method"}),
	}
}

// Register 将定价指标登记到 textfile 注册表
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.PricingRunsTotal,
		m.PricingDuration,
		m.LatticeSteps,
		m.SchemeFallbacksTotal,
		m.ConvergenceWarningsTotal,
		m.GreeksTotal,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	logger.Debug(context.Background(), "Metrics registered", "count", len(collectors))
	return nil
}

// Registry textfile 注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 服务注册表的 HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return m.base.Handler()
}

// Serve 在 port 上暴露 /metrics，返回关闭函数
func (m *Metrics) Serve(port string) func() {
	logger.Info(context.Background(), "Metrics endpoint started", "port", port)
	return m.base.ExposeHttp(port)
}

// WriteTextfile 以 node-exporter textfile 格式写出全部指标
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return err
	}
	logger.Info(context.Background(), "Metrics written", "path", path)
	return nil
}

// MetricsCollector 指标收集器接口
type MetricsCollector interface {
	// 记录一次定价
	RecordPricing(model, status string, seconds float64)
	// 记录树方法最终步数
	RecordLatticeSteps(steps int)
	// 记录格式回退
	RecordSchemeFallback(scheme string)
	// 记录未收敛告警
	RecordConvergenceWarning(scheme string)
	// 记录希腊字母估计方法
	RecordGreek(greek, method string)
}

// DefaultMetricsCollector 默认指标收集器实现
type DefaultMetricsCollector struct {
	metrics *Metrics
}

// NewDefaultMetricsCollector 创建默认指标收集器
func NewDefaultMetricsCollector(metrics *Metrics) *DefaultMetricsCollector {
	return &DefaultMetricsCollector{metrics: metrics}
}

func (c *DefaultMetricsCollector) RecordPricing(model, status string, seconds float64) {
	c.metrics.PricingRunsTotal.WithLabelValues(model, status).Inc()
	c.metrics.PricingDuration.WithLabelValues(model).Observe(seconds)
}

func (c *DefaultMetricsCollector) RecordLatticeSteps(steps int) {
	c.metrics.LatticeSteps.WithLabelValues().Observe(float64(steps))
}

func (c *DefaultMetricsCollector) RecordSchemeFallback(scheme string) {
	c.metrics.SchemeFallbacksTotal.WithLabelValues(scheme).Inc()
}

func (c *DefaultMetricsCollector) RecordConvergenceWarning(scheme string) {
	c.metrics.ConvergenceWarningsTotal.WithLabelValues(scheme).Inc()
}

func (c *DefaultMetricsCollector) RecordGreek(greek, method string) {
	c.metrics.GreeksTotal.WithLabelValues(greek, method).Inc()
}

// NopCollector 不记录任何指标，用于关闭指标时
type NopCollector struct{}

func (NopCollector) RecordPricing(string, string, float64) {}
func (NopCollector) RecordLatticeSteps(int)                {}
func (NopCollector) RecordSchemeFallback(string)           {}
func (NopCollector) RecordConvergenceWarning(string)       {}
func (NopCollector) RecordGreek(string, string)            {}
