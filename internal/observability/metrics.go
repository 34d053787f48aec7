package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/mumble-backend/internal/domain/jobs"
	"github.com/yungbote/mumble-backend/internal/platform/envutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	rateLimited  *CounterVec
	jobRuns      *CounterVec
	jobDuration  *HistogramVec
	upstream     *CounterVec
	upstreamTime *HistogramVec
	queueDepth   *GaugeVec
}

var (
	initMu   sync.Mutex
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current is nil unless Init ran with metrics enabled. All methods accept a
// nil receiver.
func Current() *Metrics {
	initMu.Lock()
	defer initMu.Unlock()
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initMu.Lock()
	defer initMu.Unlock()
	if instance == nil {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	}
	return instance
}

// New builds an unregistered Metrics; Init installs the process-wide one.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("mumble_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"mumble_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		apiInflight: NewGauge("mumble_api_inflight_requests", "In-flight API requests."),
		rateLimited: NewCounterVec("mumble_rate_limited_total", "Requests rejected by the rate limiter.", []string{"route"}),
		jobRuns:     NewCounterVec("mumble_job_runs_total", "Finished job runs by type/status.", []string{"job_type", "status"}),
		jobDuration: NewHistogramVec(
			"mumble_job_duration_seconds",
			"Job run duration in seconds by type.",
			[]string{"job_type"},
			[]float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		),
		upstream: NewCounterVec("mumble_upstream_requests_total", "Upstream collaborator calls by service/operation/status.", []string{"service", "operation", "status"}),
		upstreamTime: NewHistogramVec(
			"mumble_upstream_request_duration_seconds",
			"Upstream collaborator latency in seconds.",
			[]string{"service", "operation"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		queueDepth: NewGaugeVec("mumble_job_queue_depth", "job_run rows by status.", []string{"status"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.rateLimited,
		m.jobRuns, m.jobDuration, m.upstream, m.upstreamTime, m.queueDepth,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.Inc(route)
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(jobType, status)
	m.jobDuration.Observe(dur.Seconds(), jobType)
}

// ObserveUpstream records one call to an external collaborator. status is an
// HTTP status or "error" when no response was received.
func (m *Metrics) ObserveUpstream(service, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.upstream.Inc(service, operation, status)
	m.upstreamTime.Observe(dur.Seconds(), service, operation)
}

func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := envutil.Millis("METRICS_SCRAPE_INTERVAL_MS", 15*time.Second)
	statuses := []string{types.StatusQueued, types.StatusRunning, types.StatusSucceeded, types.StatusFailed}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range statuses {
					m.queueDepth.Set(0, s)
				}
				var rows []struct {
					Status string
					Count  int64
				}
				if err := db.WithContext(ctx).
					Model(&types.JobRun{}).
					Select("status, count(*) as count").
					Group("status").
					Scan(&rows).Error; err != nil {
					if log != nil {
						log.Warn("metrics: job queue depth query failed", "error", err)
					}
					continue
				}
				for _, row := range rows {
					status := strings.TrimSpace(row.Status)
					if status == "" {
						status = "unknown"
					}
					m.queueDepth.Set(float64(row.Count), status)
				}
			}
		}
	}()
}
