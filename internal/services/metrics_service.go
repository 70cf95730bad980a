package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService 指标服务
type MetricsService struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inputBytes *prometheus.HistogramVec
}

// NewMetricsService 创建指标服务，使用独立的Registry
func NewMetricsService() *MetricsService {
	ms := &MetricsService{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "doctools",
				Name:      "operations_total",
				Help:      "Total number of document operations by outcome",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "doctools",
				Name:      "operation_duration_seconds",
				Help:      "Time spent processing a document operation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		inputBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "doctools",
				Name:      "input_bytes",
				Help:      "Size of uploaded payloads",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
			},
			[]string{"operation"},
		),
	}

	ms.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ms.operations,
		ms.duration,
		ms.inputBytes,
	)
	return ms
}

// Observe 记录一次操作的结果与耗时
func (ms *MetricsService) Observe(operation string, start time.Time, err error) {
	if ms == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	ms.operations.WithLabelValues(operation, status).Inc()
	ms.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveInput 记录上传内容大小
func (ms *MetricsService) ObserveInput(operation string, size int) {
	if ms == nil {
		return
	}
	ms.inputBytes.WithLabelValues(operation).Observe(float64(size))
}

// Registry 返回内部Registry
func (ms *MetricsService) Registry() *prometheus.Registry {
	return ms.registry
}

// Handler 返回Prometheus指标的HTTP处理器
func (ms *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(ms.registry, promhttp.HandlerOpts{})
}

// ServeHTTP 实现http.Handler接口
func (ms *MetricsService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ms.Handler().ServeHTTP(w, r)
}
