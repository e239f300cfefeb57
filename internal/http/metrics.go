package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "spendwise"

// appMetrics holds the server's Prometheus registry. Counters are incremented by
// handlers; gauges and request totals are read from their owners on scrape.
type appMetrics struct {
	uptime   time.Time
	registry *prometheus.Registry

	registrations  prometheus.Counter
	logins         prometheus.Counter
	failedLogins   prometheus.Counter
	imports        prometheus.Counter
	importedRows   prometheus.Counter
	skippedRows    prometheus.Counter
	reassignments  prometheus.Counter
	categoryWrites *prometheus.CounterVec
}

func newAppMetrics(s *Server) *appMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: metricsNamespace, Name: name, Help: help})
	}
	m := &appMetrics{
		uptime:         time.Now(),
		registry:       prometheus.NewRegistry(),
		registrations:  counter("registrations_total", "Accounts created"),
		logins:         counter("logins_total", "Successful logins"),
		failedLogins:   counter("failed_logins_total", "Rejected logins"),
		imports:        counter("imports_total", "Statements imported"),
		importedRows:   counter("imported_transactions_total", "Transactions appended by imports"),
		skippedRows:    counter("skipped_rows_total", "Statement rows rejected during import"),
		reassignments:  counter("category_reassignments_total", "Transaction category changes"),
		categoryWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "category_writes_total",
			Help:      "Categories created, updated or deleted",
		}, []string{"operation"}),
	}

	gauge := func(name, help string, f func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Namespace: metricsNamespace, Name: name, Help: help}, f)
	}
	counterFunc := func(name, help string, f func() float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{Namespace: metricsNamespace, Name: name, Help: help}, f)
	}

	m.registry.MustRegister(
		m.registrations, m.logins, m.failedLogins,
		m.imports, m.importedRows, m.skippedRows,
		m.reassignments, m.categoryWrites,
		counterFunc("http_requests_total", "Total number of HTTP requests", func() float64 {
			return float64(s.tracer.GetMetrics().TotalRequests)
		}),
		counterFunc("http_server_errors_total", "Responses with a 5xx status", func() float64 {
			return float64(s.tracer.GetMetrics().ServerErrors)
		}),
		gauge("http_response_time_avg_microseconds", "Average response time", func() float64 {
			return float64(s.tracer.GetMetrics().AverageResponseTime)
		}),
		gauge("active_sessions", "Live sessions", func() float64 {
			return float64(s.sessions.Len())
		}),
		counterFunc("rate_limit_hits_total", "Requests refused by the rate limiter", func() float64 {
			return float64(s.limiter.Hits())
		}),
		gauge("rate_limit_clients", "Clients tracked by the rate limiter", func() float64 {
			return float64(s.limiter.ActiveClients())
		}),
		counterFunc("suspicious_requests_total", "Requests flagged by the detector", func() float64 {
			return float64(s.detector.Suspicious())
		}),
		gauge("uptime_seconds", "Seconds since the server started", func() float64 {
			return time.Since(m.uptime).Seconds()
		}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *appMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
