package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_PutAndGet(t *testing.T) {
	store := NewSessionStore(time.Minute)

	assert.Nil(t, store.Get("1"))

	store.Put("1", &Session{Step: StepAwaitContact, PendingCheckCode: "AAAA2222"})
	session := store.Get("1")
	require.NotNil(t, session)
	assert.Equal(t, StepAwaitContact, session.Step)
	assert.Equal(t, "AAAA2222", session.PendingCheckCode)

	store.Clear("1")
	assert.Nil(t, store.Get("1"))
}

func TestSessionStore_TTLExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	current := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Put("1", &Session{Step: StepAwaitName})

	current = current.Add(30 * time.Second)
	assert.NotNil(t, store.Get("1"))

	current = current.Add(2 * time.Minute)
	assert.Nil(t, store.Get("1"))
}

func TestSessionStore_PurgesExpiredOnPut(t *testing.T) {
	store := NewSessionStore(time.Minute)
	current := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Put("stale", &Session{Step: StepAwaitContact})
	current = current.Add(5 * time.Minute)
	store.Put("fresh", &Session{Step: StepAwaitContact})

	store.mu.Lock()
	_, staleKept := store.sessions["stale"]
	store.mu.Unlock()
	assert.False(t, staleKept)
	assert.NotNil(t, store.Get("fresh"))
}

func TestSessionStore_RefreshOnPut(t *testing.T) {
	store := NewSessionStore(time.Minute)
	current := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Put("1", &Session{Step: StepAwaitName})
	current = current.Add(50 * time.Second)
	store.Put("1", store.Get("1"))
	current = current.Add(50 * time.Second)

	assert.NotNil(t, store.Get("1"))
}
