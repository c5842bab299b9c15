package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	r := NewRegistry(time.Minute, nil, 0)

	entry := r.Create()
	require.NotEmpty(t, entry.ID)
	require.NotNil(t, entry.Store)
	require.NotNil(t, entry.Engine)
	require.Equal(t, entry.ID, entry.Engine.SessionID)

	got, ok := r.Get(entry.ID)
	require.True(t, ok)
	require.Same(t, entry, got)

	_, ok = r.Get("missing")
	require.False(t, ok)
}

func TestSessionsAreIsolated(t *testing.T) {
	r := NewRegistry(time.Minute, nil, 0)
	a := r.Create()
	b := r.Create()
	require.NotEqual(t, a.ID, b.ID)
	require.NotSame(t, a.Store, b.Store)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	now := time.Now()
	r := NewRegistry(time.Minute, nil, 0)
	r.Now = func() time.Time { return now }

	stale := r.Create()
	fresh := r.Create()

	// Touch "fresh" after the clock advances, leaving "stale" behind.
	now = now.Add(2 * time.Minute)
	_, ok := r.Get(fresh.ID)
	require.True(t, ok)

	evicted := r.Sweep()
	require.Equal(t, 1, evicted)
	require.Equal(t, 1, r.Len())

	_, ok = r.Get(stale.ID)
	require.False(t, ok)
	_, ok = r.Get(fresh.ID)
	require.True(t, ok)
}

func TestGetRefreshesIdleDeadline(t *testing.T) {
	now := time.Now()
	r := NewRegistry(time.Minute, nil, 0)
	r.Now = func() time.Time { return now }

	entry := r.Create()

	// Keep touching the session; it must survive repeated sweeps.
	for i := 0; i < 3; i++ {
		now = now.Add(45 * time.Second)
		_, ok := r.Get(entry.ID)
		require.True(t, ok)
		require.Zero(t, r.Sweep())
	}
}

func TestDelete(t *testing.T) {
	r := NewRegistry(time.Minute, nil, 0)
	entry := r.Create()
	r.Delete(entry.ID)
	require.Zero(t, r.Len())
}
