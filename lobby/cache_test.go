package lobby

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache()

	_, ok := c.Get()
	assert.False(t, ok, "fresh cache must be empty")

	rec := Record{
		LobbyID: "L1",
		Roster:  json.RawMessage(`[{"name":"alice"},{"name":"bob"}]`),
		Status:  "waiting",
	}
	require.NoError(t, c.Set(rec))

	got, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, "L1", got.LobbyID)
	assert.Equal(t, "waiting", got.Status)
	assert.JSONEq(t, string(rec.Roster), string(got.Roster))
	assert.False(t, got.UpdatedAt.IsZero(), "Set must stamp UpdatedAt")
}

func TestCacheSetReplacesWholesale(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Set(Record{LobbyID: "L1", Status: "waiting"}))
	require.NoError(t, c.Set(Record{LobbyID: "L2"}))

	got, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, "L2", got.LobbyID)
	// no merging: the old status must not leak into the new record
	assert.Empty(t, got.Status)
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Set(Record{LobbyID: "L1"}))

	c.Clear()

	_, ok := c.Get()
	assert.False(t, ok)

	// clearing an empty cache is fine
	c.Clear()
}

func TestCacheRejectsRecordWithoutID(t *testing.T) {
	c := NewCache()

	err := c.Set(Record{Status: "waiting"})
	assert.ErrorIs(t, err, ErrMissingLobbyID)

	_, ok := c.Get()
	assert.False(t, ok, "a rejected record must not be stored")
}

func TestCacheKeepsExplicitTimestamp(t *testing.T) {
	c := NewCache()
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, c.Set(Record{LobbyID: "L1", UpdatedAt: stamp}))

	got, _ := c.Get()
	assert.Equal(t, stamp, got.UpdatedAt)
}

// Get hands out a copy; mutating it must not reach into the cache.
func TestCacheGetReturnsCopy(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Set(Record{LobbyID: "L1"}))

	got, _ := c.Get()
	got.LobbyID = "tampered"

	again, _ := c.Get()
	assert.Equal(t, "L1", again.LobbyID)
}
