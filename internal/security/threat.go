package security

import (
	"sync"
	"time"

	"github.com/skywire-labs/drone-nlp-gateway/internal/monitoring"
)

// ThreatSummary is the payload exposed via system://health.
type ThreatSummary struct {
	CriticalCount   int      `json:"critical_count"`
	HighCount       int      `json:"high_count"`
	Recommendations []string `json:"recommendations"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// ThreatAnalyzer periodically aggregates recent SecurityEvents from the
// audit ring buffer into a summary (spec §4.5). It is driven by
// internal/periodic.Run on a 30s cadence started in cmd/gateway.
type ThreatAnalyzer struct {
	audit *monitoring.AuditRing

	mu      sync.RWMutex
	summary ThreatSummary
}

// NewThreatAnalyzer builds an analyzer reading from audit.
func NewThreatAnalyzer(audit *monitoring.AuditRing) *ThreatAnalyzer {
	return &ThreatAnalyzer{audit: audit}
}

// Evaluate recomputes the summary from the current audit ring contents.
// It looks back over the full retained buffer, so the look-back is bounded
// only by the ring's capacity; the ring has no time-based eviction.
func (a *ThreatAnalyzer) Evaluate(now time.Time) {
	events := a.audit.All()

	var critical, high int
	var recs []string
	for _, ev := range events {
		switch ev.Severity {
		case monitoring.SeverityCritical:
			critical++
		case monitoring.SeverityHigh:
			high++
		}
	}

	if critical > 0 {
		recs = append(recs, "investigate critical security events immediately")
	}
	if high >= 5 {
		recs = append(recs, "high-severity event rate elevated; consider tightening rate limits")
	}

	a.mu.Lock()
	a.summary = ThreatSummary{
		CriticalCount:   critical,
		HighCount:       high,
		Recommendations: recs,
		EvaluatedAt:     now,
	}
	a.mu.Unlock()
}

// Summary returns the most recently computed summary.
func (a *ThreatAnalyzer) Summary() ThreatSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summary
}
