package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skywire-labs/drone-nlp-gateway/internal/security"
)

func TestManager_OpenTouchClose(t *testing.T) {
	m := NewManager(time.Hour)
	p := security.Principal{ID: "alice", Role: security.RoleOperator}

	m.Open(p)
	assert.Equal(t, 1, m.Count())

	m.Touch("alice")
	m.Touch("alice")
	assert.Equal(t, 1, m.Count())

	m.Close("alice")
	assert.Equal(t, 0, m.Count())
}

func TestManager_TouchEvictsIdleSession(t *testing.T) {
	m := NewManager(time.Millisecond)
	m.Open(security.Principal{ID: "bob"})
	time.Sleep(5 * time.Millisecond)

	m.Touch("bob")
	assert.Equal(t, 0, m.Count(), "a session idle beyond the TTL must be evicted on next touch")
}

func TestManager_CloseAllClearsEverySession(t *testing.T) {
	m := NewManager(time.Hour)
	m.Open(security.Principal{ID: "a"})
	m.Open(security.Principal{ID: "b"})
	assert.Equal(t, 2, m.Count())

	m.CloseAll()
	assert.Equal(t, 0, m.Count())
}

func TestManager_TouchUnknownSessionIsNoop(t *testing.T) {
	m := NewManager(time.Hour)
	m.Touch("ghost")
	assert.Equal(t, 0, m.Count())
}
