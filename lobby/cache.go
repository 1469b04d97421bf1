// Package lobby holds the last known lobby facts in a store that outlives
// any single screen. Screens are destroyed and recreated on every
// transition, so the screen that learns the lobby id is usually gone by the
// time another screen (the rematch path on the result screen) needs it.
// This cache is deliberately the only piece of cross-screen persistent game
// state in the core.
package lobby

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrMissingLobbyID is returned by Set for a record without a lobby id.
// A record that cannot be targeted later is not worth caching.
var ErrMissingLobbyID = errors.New("lobby record missing lobby id")

// Record is the last known fact about the lobby the local player is in.
// Roster and Status are opaque to the core; they are carried for the
// presentation layer.
type Record struct {
	LobbyID   string
	Roster    json.RawMessage
	Status    string
	UpdatedAt time.Time
}

// Cache holds zero or one Record. The single-lobby-membership assumption is
// built in: writing a new record replaces the old one wholesale, never
// merges. Callers performing any leave action must Clear synchronously
// before transitioning away, otherwise a later rematch targets a lobby the
// player already left.
type Cache struct {
	mu  sync.RWMutex
	rec *Record
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns a copy of the current record, or false if none is held.
func (c *Cache) Get() (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rec == nil {
		return Record{}, false
	}
	return *c.rec, true
}

// Set replaces the record wholesale. A zero UpdatedAt is stamped with the
// current time.
func (c *Cache) Set(rec Record) error {
	if rec.LobbyID == "" {
		return ErrMissingLobbyID
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	c.mu.Lock()
	c.rec = &rec
	c.mu.Unlock()
	return nil
}

// Clear removes the record. Called on intentional leave, never on screen
// destruction.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.rec = nil
	c.mu.Unlock()
}
