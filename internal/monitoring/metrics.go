// Package monitoring implements the counters, histograms, alert
// evaluation, and audit ring buffer described in spec §4.6 (C6). It is
// instance-owned: one Registry is constructed in cmd/gateway and threaded
// to every other component, never looked up through a package global.
package monitoring

import (
	"bytes"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/expfmt"
)

// Registry holds every required instrument (spec §4.6) plus the audit
// ring buffer and alert evaluator that consume them.
type Registry struct {
	reg *prometheus.Registry

	rpcRequestsTotal   *prometheus.CounterVec
	rpcLatencySeconds  *prometheus.HistogramVec
	nlpParseConfidence prometheus.Histogram
	backendRequests    *prometheus.CounterVec
	backendLatency     *prometheus.HistogramVec
	securityEvents     *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	rateLimitRejects   *prometheus.CounterVec

	audit  *AuditRing
	alerts *AlertEvaluator
}

// NewRegistry builds a fresh, process-local metric registry.
func NewRegistry(auditCapacity int) *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		rpcRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_requests_total", Help: "JSON-RPC requests handled, by method and status.",
		}, []string{"method", "status"}),
		rpcLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "rpc_latency_seconds", Help: "JSON-RPC request handling latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		nlpParseConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "nlp_parse_confidence", Help: "Self-reported NLP parse confidence.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backend_requests_total", Help: "Backend HTTP calls, by endpoint and status.",
		}, []string{"endpoint", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "backend_latency_seconds", Help: "Backend HTTP call latency.", Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		securityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "security_events_total", Help: "Security events emitted, by kind and severity.",
		}, []string{"kind", "severity"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_sessions", Help: "Number of currently connected peer sessions.",
		}),
		rateLimitRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_rejections_total", Help: "Requests denied by the per-principal rate limiter.",
		}, []string{"principal_role"}),
		audit: NewAuditRing(auditCapacity),
	}

	reg.MustRegister(r.rpcRequestsTotal, r.rpcLatencySeconds, r.nlpParseConfidence,
		r.backendRequests, r.backendLatency, r.securityEvents, r.activeSessions, r.rateLimitRejects)

	r.alerts = NewAlertEvaluator(r)
	return r
}

func (r *Registry) IncRPCRequests(method, status string) {
	r.rpcRequestsTotal.WithLabelValues(method, status).Inc()
}

func (r *Registry) ObserveRPCLatency(method string, d time.Duration) {
	r.rpcLatencySeconds.WithLabelValues(method).Observe(d.Seconds())
}

func (r *Registry) ObserveNLPConfidence(confidence float64) {
	r.nlpParseConfidence.Observe(confidence)
}

func (r *Registry) IncBackendRequests(endpoint, status string) {
	r.backendRequests.WithLabelValues(endpoint, status).Inc()
}

func (r *Registry) ObserveBackendLatency(endpoint string, d time.Duration) {
	r.backendLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (r *Registry) IncSecurityEvents(kind, severity string) {
	r.securityEvents.WithLabelValues(kind, severity).Inc()
}

func (r *Registry) SetActiveSessions(n int) {
	r.activeSessions.Set(float64(n))
}

func (r *Registry) IncRateLimitRejections(principalRole string) {
	r.rateLimitRejects.WithLabelValues(principalRole).Inc()
}

// RecordSecurityEvent appends ev to the audit ring buffer and increments
// the corresponding counter in one call, matching the spec's pairing of
// "internal_error always paired with an audit event".
func (r *Registry) RecordSecurityEvent(ev SecurityEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	r.audit.Append(ev)
	r.IncSecurityEvents(ev.Kind, string(ev.Severity))
}

// Audit exposes the ring buffer for read-only queries (system://status).
func (r *Registry) Audit() *AuditRing { return r.audit }

// Alerts exposes the alert evaluator for wiring into a periodic runner.
func (r *Registry) Alerts() *AlertEvaluator { return r.alerts }

// ExposeText renders the registry in Prometheus text exposition format.
// No catalog resource serves this output; it has no caller in the gateway.
func (r *Registry) ExposeText() (string, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// StatusSnapshot is the JSON shape returned by system://status.
type StatusSnapshot struct {
	ActiveSessions int              `json:"active_sessions"`
	RecentEvents   []SecurityEvent  `json:"recent_security_events"`
	ActiveAlerts   []Alert          `json:"active_alerts"`
}

// Snapshot builds the system://status JSON payload.
func (r *Registry) Snapshot(activeSessions int) StatusSnapshot {
	return StatusSnapshot{
		ActiveSessions: activeSessions,
		RecentEvents:   r.audit.Recent(50),
		ActiveAlerts:   r.alerts.Active(),
	}
}
