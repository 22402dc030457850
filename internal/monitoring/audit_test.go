package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRing_FIFOEviction(t *testing.T) {
	ring := NewAuditRing(3)
	for i := 0; i < 5; i++ {
		ring.Append(SecurityEvent{Kind: "evt", Description: string(rune('a' + i))})
	}

	require.Equal(t, 3, ring.Len())
	all := ring.All()
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Description)
	assert.Equal(t, "d", all[1].Description)
	assert.Equal(t, "e", all[2].Description)
}

func TestAuditRing_RecentReturnsNewestLast(t *testing.T) {
	ring := NewAuditRing(10)
	for i := 0; i < 4; i++ {
		ring.Append(SecurityEvent{Kind: "evt", Description: string(rune('w' + i))})
	}
	recent := ring.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "y", recent[0].Description)
	assert.Equal(t, "z", recent[1].Description)
}

func TestAuditRing_DefaultCapacity(t *testing.T) {
	ring := NewAuditRing(0)
	assert.Equal(t, 10000, ring.capacity)
}

func TestAlertEvaluator_FiresAfterSustainedBreach(t *testing.T) {
	reg := NewRegistry(0)
	eval := reg.Alerts()
	eval.AddRule(AlertRule{Name: "high-sessions", Metric: "active_sessions", Threshold: 10, Duration: 30 * time.Second, Severity: SeverityHigh})

	base := time.Now()
	eval.Evaluate(map[string]float64{"active_sessions": 20}, base)
	assert.Empty(t, eval.Active(), "must not fire on the first sample")

	eval.Evaluate(map[string]float64{"active_sessions": 20}, base.Add(31*time.Second))
	active := eval.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "high-sessions", active[0].Rule)
}

func TestAlertEvaluator_AutoResolvesWhenConditionClears(t *testing.T) {
	reg := NewRegistry(0)
	eval := reg.Alerts()
	eval.AddRule(AlertRule{Name: "high-sessions", Metric: "active_sessions", Threshold: 10, Duration: time.Second, Severity: SeverityHigh})

	base := time.Now()
	eval.Evaluate(map[string]float64{"active_sessions": 20}, base)
	eval.Evaluate(map[string]float64{"active_sessions": 20}, base.Add(2*time.Second))
	require.Len(t, eval.Active(), 1)

	eval.Evaluate(map[string]float64{"active_sessions": 1}, base.Add(3*time.Second))
	assert.Empty(t, eval.Active(), "alert must clear once the metric drops back below threshold")
}

func TestRegistry_RecordSecurityEventAppendsToAudit(t *testing.T) {
	reg := NewRegistry(5)
	reg.RecordSecurityEvent(SecurityEvent{Kind: "command_started", Severity: SeverityLow, Description: "x"})
	assert.Equal(t, 1, reg.Audit().Len())
}

func TestRegistry_ExposeTextProducesPrometheusFormat(t *testing.T) {
	reg := NewRegistry(0)
	reg.IncRPCRequests("tools/call", "success")
	text, err := reg.ExposeText()
	require.NoError(t, err)
	assert.Contains(t, text, "rpc_requests_total")
}
