package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

// Image upload outcomes.
const (
	ImageResultStored       = "stored"
	ImageResultDeduplicated = "deduplicated"
	ImageResultRejected     = "rejected"
)

// MetricsService owns the Prometheus registry and keeps a few counters for the summary endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	equipmentWrites *prometheus.CounterVec
	imageUploads    *prometheus.CounterVec
	thumbnailJobs   *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	imagesStored         uint64
	imagesDeduplicated   uint64
	thumbnailFailures    uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		equipmentWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_equipment_writes_total",
			Help: "Equipment create, update and delete operations",
		}, []string{"action"}),
		imageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_image_uploads_total",
			Help: "Image uploads by outcome",
		}, []string{"result"}),
		thumbnailJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_thumbnail_jobs_total",
			Help: "Thumbnail jobs by outcome",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheHits, m.cacheMisses,
		m.equipmentWrites, m.imageUploads, m.thumbnailJobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// RecordEquipmentWrite counts an equipment mutation.
func (m *MetricsService) RecordEquipmentWrite(action string) {
	if m == nil {
		return
	}
	m.equipmentWrites.WithLabelValues(action).Inc()
}

// RecordImageUpload counts an upload outcome.
func (m *MetricsService) RecordImageUpload(result string) {
	if m == nil {
		return
	}
	m.imageUploads.WithLabelValues(result).Inc()
	switch result {
	case ImageResultStored:
		atomic.AddUint64(&m.imagesStored, 1)
	case ImageResultDeduplicated:
		atomic.AddUint64(&m.imagesDeduplicated, 1)
	}
}

// RecordThumbnail counts a finished thumbnail job.
func (m *MetricsService) RecordThumbnail(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.thumbnailJobs.WithLabelValues("ok").Inc()
		return
	}
	m.thumbnailJobs.WithLabelValues("failed").Inc()
	atomic.AddUint64(&m.thumbnailFailures, 1)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{GeneratedAt: time.Now().UTC()}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	var avgMs float64
	if requests > 0 {
		avgMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            ratio,
		ImagesStored:             atomic.LoadUint64(&m.imagesStored),
		ImagesDeduplicated:       atomic.LoadUint64(&m.imagesDeduplicated),
		ThumbnailFailures:        atomic.LoadUint64(&m.thumbnailFailures),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
