// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on a private registry, so tests can build
// as many instances as they like.
type Metrics struct {
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	payslipAnalyses *prometheus.CounterVec
	summaryCache    *prometheus.CounterVec
	events          *prometheus.CounterVec
	mirror          *prometheus.CounterVec
	chatCommands    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "financas_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_uploads_total",
			Help: "File uploads by kind and outcome.",
		}, []string{"kind", "result"}),
		payslipAnalyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_payslip_analyses_total",
			Help: "Payslip analyses by final status.",
		}, []string{"status"}),
		summaryCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_summary_cache_total",
			Help: "Summary cache lookups by result.",
		}, []string{"result"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_ledger_events_total",
			Help: "Ledger events published to the broker by outcome.",
		}, []string{"action", "result"}),
		mirror: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_sheets_mirror_total",
			Help: "Ledger events mirrored to Google Sheets by outcome.",
		}, []string{"action", "result"}),
		chatCommands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "financas_chat_commands_total",
			Help: "Chat messages by interpreted command.",
		}, []string{"command"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) Upload(kind, result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) PayslipAnalysis(status string) {
	if m == nil {
		return
	}
	m.payslipAnalyses.WithLabelValues(status).Inc()
}

func (m *Metrics) SummaryCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.summaryCache.WithLabelValues(result).Inc()
}

func (m *Metrics) Event(action, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Mirror(action, result string) {
	if m == nil {
		return
	}
	m.mirror.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ChatCommand(command string) {
	if m == nil {
		return
	}
	m.chatCommands.WithLabelValues(command).Inc()
}
